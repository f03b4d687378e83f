package services

import (
	"fmt"
	"strings"

	"kafe-pos/lang"
	"kafe-pos/models"
)

// CardButton is one inline button (text + callback_data or url).
type CardButton struct {
	Text         string
	CallbackData string
	URL          string // if set, use as URL button instead of callback
}

// CardContent is the text and optional inline keyboard of one bot message.
type CardContent struct {
	Text    string
	Buttons [][]CardButton
}

const (
	boardColumns   = 3
	productColumns = 2
	maxChipsPerRow = 3
)

func stateIcon(s TableState) string {
	switch s {
	case StateOccupied:
		return "🔴"
	case StateGuest:
		return "🟣"
	case StateDelivery:
		return "🟠"
	default:
		return "🟢"
	}
}

// BuildBoardCard renders the table grid with a legend and the table count.
func BuildBoardCard(snap *BoardSnapshot, langCode string) CardContent {
	if snap == nil {
		return CardContent{
			Text:    lang.T(langCode, "board_loading"),
			Buttons: [][]CardButton{{{Text: lang.T(langCode, "btn_refresh"), CallbackData: CbBoardRefresh}}},
		}
	}
	var b strings.Builder
	b.WriteString(lang.T(langCode, "board_title", len(snap.Tables)))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "board_legend",
		stateIcon(StateFree), snap.Count(StateFree),
		stateIcon(StateOccupied), snap.Count(StateOccupied),
		stateIcon(StateGuest), snap.Count(StateGuest),
		stateIcon(StateDelivery), snap.Count(StateDelivery)))
	if len(snap.Tables) == 0 {
		b.WriteString("\n\n")
		b.WriteString(lang.T(langCode, "board_empty"))
	}
	b.WriteString("\n\n")
	b.WriteString(lang.T(langCode, "board_updated", snap.FetchedAt.Format("15:04:05")))

	var rows [][]CardButton
	var row []CardButton
	for _, tv := range snap.Tables {
		row = append(row, CardButton{
			Text:         stateIcon(tv.State) + " " + TableLabel(langCode, tv.Table),
			CallbackData: CbTable + itoa(tv.Table.ID),
		})
		if len(row) == boardColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []CardButton{{Text: lang.T(langCode, "btn_refresh"), CallbackData: CbBoardRefresh}})
	return CardContent{Text: b.String(), Buttons: rows}
}

// BuildCartCard renders the order screen: the current items with +/- controls, the
// category chips and the products of the active category.
func BuildCartCard(c *Cart, activeCategory int64, langCode string) CardContent {
	sel := c.Selection()
	order := c.Order()

	var b strings.Builder
	b.WriteString(lang.T(langCode, "cart_title", sel.Label))
	if order.ID != 0 {
		b.WriteString("  ")
		b.WriteString(lang.T(langCode, "cart_order_id", order.ID))
	}
	b.WriteString("\n\n")
	if len(order.Items) == 0 {
		b.WriteString(lang.T(langCode, "cart_empty"))
	} else {
		for _, it := range order.Items {
			line := it.PriceAtOrder.Mul(decimalFromInt(it.Quantity))
			b.WriteString(fmt.Sprintf("• %s × %d  %s\n", it.ProductName, it.Quantity, FormatMoney(line)))
		}
		b.WriteString("\n")
		b.WriteString(lang.T(langCode, "cart_total", FormatMoney(order.TotalAmount)))
		if order.AmountPaid.IsPositive() {
			b.WriteString("\n")
			b.WriteString(lang.T(langCode, "cart_paid", FormatMoney(order.AmountPaid), FormatMoney(order.Remaining())))
		}
	}
	if c.State() == CartClosed {
		b.WriteString("\n\n")
		b.WriteString(lang.T(langCode, "cart_closed"))
	}

	var rows [][]CardButton
	for _, it := range order.Items {
		busy := c.Busy(ItemKey(it.ID))
		label := fmt.Sprintf("%s ×%d", it.ProductName, it.Quantity)
		if busy {
			label = "⏳ " + label
		}
		rows = append(rows, []CardButton{
			{Text: "➖", CallbackData: fmt.Sprintf("%s%d:-1", CbQty, it.ID)},
			{Text: label, CallbackData: CbNoop},
			{Text: "➕", CallbackData: fmt.Sprintf("%s%d:1", CbQty, it.ID)},
		})
	}

	var chips []CardButton
	for _, cat := range c.Categories() {
		text := cat.Name
		if cat.ID == activeCategory {
			text = "• " + text + " •"
		}
		chips = append(chips, CardButton{Text: text, CallbackData: CbCategory + itoa(cat.ID)})
		if len(chips) == maxChipsPerRow {
			rows = append(rows, chips)
			chips = nil
		}
	}
	if len(chips) > 0 {
		rows = append(rows, chips)
	}

	var row []CardButton
	for _, p := range c.Products(activeCategory) {
		text := p.Name + " " + FormatMoney(p.Price)
		if n := c.QuantityOf(p.ID); n > 0 {
			text = fmt.Sprintf("%s (%d)", text, n)
		}
		if c.Busy(ProductKey(p.ID)) {
			text = "⏳ " + text
		}
		row = append(row, CardButton{Text: text, CallbackData: CbAdd + itoa(p.ID)})
		if len(row) == productColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	nav := []CardButton{{Text: lang.T(langCode, "btn_back"), CallbackData: CbBack}}
	if len(order.Items) > 0 && c.State() != CartClosed {
		nav = append(nav, CardButton{Text: lang.T(langCode, "btn_pay"), CallbackData: CbPay})
	}
	nav = append(nav, CardButton{Text: lang.T(langCode, "btn_refresh"), CallbackData: CbOrderRefresh})
	rows = append(rows, nav)
	return CardContent{Text: b.String(), Buttons: rows}
}

// BuildPaymentCard renders the split-check selector.
func BuildPaymentCard(d *PaymentDraft, label, langCode string) CardContent {
	order := d.Order()

	var b strings.Builder
	b.WriteString(lang.T(langCode, "pay_title", label))
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "pay_remaining", FormatMoney(order.Remaining())))
	b.WriteString("\n\n")
	if len(order.Items) == 0 {
		b.WriteString(lang.T(langCode, "cart_empty"))
		b.WriteString("\n")
	}
	for _, it := range order.Items {
		n := d.Selected(it.ID)
		due := "—"
		if n > 0 {
			due = FormatMoney(it.PriceAtOrder.Mul(decimalFromInt(n)))
		}
		b.WriteString(fmt.Sprintf("• %s  %s × %d  → %d  %s\n",
			it.ProductName, FormatMoney(it.PriceAtOrder), it.Quantity, n, due))
	}
	b.WriteString("\n")
	b.WriteString(lang.T(langCode, "pay_selected", FormatMoney(d.Amount())))

	var rows [][]CardButton
	for _, it := range order.Items {
		n := d.Selected(it.ID)
		rows = append(rows, []CardButton{
			{Text: "−", CallbackData: fmt.Sprintf("%s%d:-1", CbPaySel, it.ID)},
			{Text: fmt.Sprintf("%s %d/%d", it.ProductName, n, it.Quantity), CallbackData: CbNoop},
			{Text: "+", CallbackData: fmt.Sprintf("%s%d:1", CbPaySel, it.ID)},
		})
	}
	rows = append(rows, []CardButton{
		{Text: lang.T(langCode, "btn_select_all"), CallbackData: CbPayAll},
		{Text: lang.T(langCode, "btn_clear_all"), CallbackData: CbPayClear},
	})
	receipt := "⬜ "
	if d.Receipt() {
		receipt = "✅ "
	}
	rows = append(rows, []CardButton{{Text: receipt + lang.T(langCode, "btn_receipt"), CallbackData: CbPayReceipt}})
	rows = append(rows, []CardButton{
		{Text: lang.T(langCode, "btn_cash"), CallbackData: CbPayMethod + models.PaymentCash},
		{Text: lang.T(langCode, "btn_card"), CallbackData: CbPayMethod + models.PaymentCard},
	})
	rows = append(rows, []CardButton{{Text: lang.T(langCode, "btn_back"), CallbackData: CbPayBack}})
	return CardContent{Text: b.String(), Buttons: rows}
}

// BuildLanguageCard lets a chat pick its language.
func BuildLanguageCard(langCode string) CardContent {
	return CardContent{
		Text: lang.T(langCode, "lang_choose"),
		Buttons: [][]CardButton{{
			{Text: "🇹🇷 Türkçe", CallbackData: CbLang + lang.Tr},
			{Text: "🇬🇧 English", CallbackData: CbLang + lang.En},
		}},
	}
}
