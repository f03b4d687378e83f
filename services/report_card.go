package services

import (
	"fmt"
	"strings"

	"kafe-pos/lang"
	"kafe-pos/models"
)

// BuildReportCard renders a daily or monthly report. pdfURL, when set, becomes a URL
// button; the PDF itself is rendered by the server.
func BuildReportCard(r *models.Report, pdfURL, langCode string) CardContent {
	var b strings.Builder
	if r.Date != "" {
		b.WriteString(lang.T(langCode, "report_daily_title", r.Date))
	} else {
		b.WriteString(lang.T(langCode, "report_monthly_title", fmt.Sprintf("%04d-%02d", r.Year, r.Month)))
	}
	b.WriteString("\n\n")
	b.WriteString(lang.T(langCode, "report_orders", r.OrderCount))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "report_total", FormatMoney(r.TotalRevenue)))
	b.WriteString("\n\n")
	b.WriteString(lang.T(langCode, "report_channels"))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "report_salon", FormatMoney(r.SalonRevenue)))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "report_guest", FormatMoney(r.GuestRevenue)))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "report_delivery", FormatMoney(r.DeliveryRevenue)))
	b.WriteString("\n\n")
	b.WriteString(lang.T(langCode, "report_methods"))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "report_cash", FormatMoney(r.CashRevenue)))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "report_card", FormatMoney(r.CardRevenue)))

	var buttons [][]CardButton
	if pdfURL != "" {
		buttons = append(buttons, []CardButton{{Text: lang.T(langCode, "btn_pdf"), URL: pdfURL}})
	}
	buttons = append(buttons, []CardButton{{Text: lang.T(langCode, "btn_back"), CallbackData: CbAdmin + "menu"}})
	return CardContent{Text: b.String(), Buttons: buttons}
}
