package services

import (
	"fmt"
	"strings"

	"kafe-pos/lang"
	"kafe-pos/models"
)

// Admin sections addressed by CbAdmin + section.
const (
	AdmMenu       = "menu"
	AdmProducts   = "products"
	AdmCategories = "categories"
)

// Kinds for CbAdmConfirm.
const (
	ConfirmProduct  = "p"
	ConfirmCategory = "c"
)

func BuildAdminMenu(langCode string) CardContent {
	return CardContent{
		Text: lang.T(langCode, "adm_menu"),
		Buttons: [][]CardButton{
			{{Text: lang.T(langCode, "adm_btn_products"), CallbackData: CbAdmin + AdmProducts}},
			{{Text: lang.T(langCode, "adm_btn_categories"), CallbackData: CbAdmin + AdmCategories}},
			{
				{Text: lang.T(langCode, "adm_btn_daily"), CallbackData: CbAdmReport + "daily"},
				{Text: lang.T(langCode, "adm_btn_monthly"), CallbackData: CbAdmReport + "monthly"},
			},
			{{Text: lang.T(langCode, "adm_btn_exit"), CallbackData: CbAdmExit}},
		},
	}
}

func categoryName(cats []models.Category, id int64) string {
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return "—"
}

// BuildProductListCard lists products, inactive ones marked, with a category filter.
// filter 0 shows every category.
func BuildProductListCard(products []models.Product, cats []models.Category, filter int64, langCode string) CardContent {
	var b strings.Builder
	b.WriteString(lang.T(langCode, "adm_products_title", len(products)))
	if filter != 0 {
		b.WriteString("\n")
		b.WriteString(lang.T(langCode, "adm_filter", categoryName(cats, filter)))
	}

	var rows [][]CardButton
	all := lang.T(langCode, "adm_all")
	if filter == 0 {
		all = "• " + all + " •"
	}
	chips := []CardButton{{Text: all, CallbackData: CbAdmProdFilt + "0"}}
	for _, c := range cats {
		text := c.Name
		if c.ID == filter {
			text = "• " + text + " •"
		}
		chips = append(chips, CardButton{Text: text, CallbackData: CbAdmProdFilt + itoa(c.ID)})
		if len(chips) == maxChipsPerRow {
			rows = append(rows, chips)
			chips = nil
		}
	}
	if len(chips) > 0 {
		rows = append(rows, chips)
	}

	for _, p := range products {
		text := p.Name + " " + FormatMoney(p.Price)
		if !p.IsActive {
			text += " " + lang.T(langCode, "adm_inactive")
		}
		rows = append(rows, []CardButton{{Text: text, CallbackData: CbAdmProduct + itoa(p.ID)}})
	}
	rows = append(rows, []CardButton{
		{Text: lang.T(langCode, "adm_btn_new_product"), CallbackData: CbAdmProdNew},
		{Text: lang.T(langCode, "btn_back"), CallbackData: CbAdmin + AdmMenu},
	})
	return CardContent{Text: b.String(), Buttons: rows}
}

func BuildProductDetailCard(p *models.Product, cats []models.Category, langCode string) CardContent {
	status := lang.T(langCode, "adm_active")
	if !p.IsActive {
		status = lang.T(langCode, "adm_inactive")
	}
	text := lang.T(langCode, "adm_product_detail", p.Name, FormatMoney(p.Price), categoryName(cats, p.Category), status)
	return CardContent{
		Text: text,
		Buttons: [][]CardButton{
			{
				{Text: lang.T(langCode, "adm_btn_edit"), CallbackData: CbAdmProdEdit + itoa(p.ID)},
				{Text: lang.T(langCode, "adm_btn_delete"), CallbackData: CbAdmProdDel + itoa(p.ID)},
			},
			{{Text: lang.T(langCode, "btn_back"), CallbackData: CbAdmin + AdmProducts}},
		},
	}
}

// BuildCategoryPickCard asks for the category of a product being created or edited.
func BuildCategoryPickCard(cats []models.Category, langCode string) CardContent {
	var rows [][]CardButton
	for _, c := range cats {
		rows = append(rows, []CardButton{{Text: c.Name, CallbackData: CbAdmProdCat + itoa(c.ID)}})
	}
	rows = append(rows, []CardButton{{Text: lang.T(langCode, "btn_cancel"), CallbackData: CbAdmCancel}})
	text := lang.T(langCode, "adm_pick_category")
	if len(cats) == 0 {
		text = lang.T(langCode, "adm_no_categories")
	}
	return CardContent{Text: text, Buttons: rows}
}

func BuildCategoryListCard(cats []models.Category, langCode string) CardContent {
	var b strings.Builder
	b.WriteString(lang.T(langCode, "adm_categories_title", len(cats)))
	var rows [][]CardButton
	for _, c := range cats {
		rows = append(rows, []CardButton{
			{Text: fmt.Sprintf("%d. %s", c.Order, c.Name), CallbackData: CbNoop},
			{Text: "🗑", CallbackData: CbAdmCatDel + itoa(c.ID)},
		})
	}
	rows = append(rows, []CardButton{
		{Text: lang.T(langCode, "adm_btn_new_category"), CallbackData: CbAdmCatNew},
		{Text: lang.T(langCode, "btn_back"), CallbackData: CbAdmin + AdmMenu},
	})
	return CardContent{Text: b.String(), Buttons: rows}
}

// BuildConfirmCard asks before a delete.
func BuildConfirmCard(question, kind string, id int64, langCode string) CardContent {
	return CardContent{
		Text: question,
		Buttons: [][]CardButton{{
			{Text: lang.T(langCode, "btn_yes"), CallbackData: fmt.Sprintf("%s%s:%d", CbAdmConfirm, kind, id)},
			{Text: lang.T(langCode, "btn_no"), CallbackData: CbAdmCancel},
		}},
	}
}
