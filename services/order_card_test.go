package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"kafe-pos/lang"
	"kafe-pos/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allButtons(c CardContent) []CardButton {
	var out []CardButton
	for _, row := range c.Buttons {
		out = append(out, row...)
	}
	return out
}

func findButton(c CardContent, data string) (CardButton, bool) {
	for _, b := range allButtons(c) {
		if b.CallbackData == data {
			return b, true
		}
	}
	return CardButton{}, false
}

func TestBuildBoardCard(t *testing.T) {
	snap := &BoardSnapshot{
		FetchedAt: time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC),
		Tables: []TableView{
			{Table: models.Table{ID: 1, Number: 1, Type: models.TableTypeRegular}, State: StateFree},
			{Table: models.Table{ID: 2, Number: 2, Type: models.TableTypeRegular}, State: StateOccupied},
			{Table: models.Table{ID: 3, Number: 3, Type: models.TableTypeRegular}, State: StateFree},
			{Table: models.Table{ID: 4, Number: 1, Type: models.TableTypeDelivery}, State: StateDelivery},
		},
	}
	card := BuildBoardCard(snap, "tr")
	assert.Contains(t, card.Text, lang.T("tr", "board_title", 4))
	assert.Contains(t, card.Text, "12:30:00")
	require.Len(t, card.Buttons, 3, "two table rows and the refresh row")
	assert.Len(t, card.Buttons[0], 3)

	b, ok := findButton(card, "tbl:2")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(b.Text, "🔴"))
	b, ok = findButton(card, "tbl:4")
	require.True(t, ok)
	assert.Contains(t, b.Text, lang.T("tr", "table_label_delivery", 1))

	loading := BuildBoardCard(nil, "en")
	assert.Equal(t, lang.T("en", "board_loading"), loading.Text)
}

func TestBuildCartCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.loadedCart(t, f.table)

	empty := BuildCartCard(cart, f.drinks.ID, "tr")
	assert.Contains(t, empty.Text, lang.T("tr", "cart_empty"))
	_, ok := findButton(empty, CbPay)
	assert.False(t, ok, "no pay button for an empty cart")

	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	card := BuildCartCard(cart, f.drinks.ID, "tr")
	assert.Contains(t, card.Text, "Çay × 2")
	assert.Contains(t, card.Text, "₺40.00")

	b, ok := findButton(card, CbAdd+itoa(f.tea.ID))
	require.True(t, ok)
	assert.Contains(t, b.Text, "(2)")
	_, ok = findButton(card, CbAdd+itoa(f.cake.ID))
	assert.False(t, ok, "products of other categories are hidden")
	_, ok = findButton(card, CbPay)
	assert.True(t, ok)

	item, _ := cart.Order().ItemByProduct(f.tea.ID)
	_, ok = findButton(card, CbQty+itoa(item.ID)+":-1")
	assert.True(t, ok)
}

func TestBuildPaymentCard(t *testing.T) {
	o := models.Order{
		ID:               3,
		Items:            []models.OrderItem{{ID: 1, ProductName: "Çay", PriceAtOrder: decimal.RequireFromString("20"), Quantity: 2}},
		TotalAmount:      decimal.RequireFromString("40"),
		RemainingBalance: decimal.NewNullDecimal(decimal.RequireFromString("25")),
	}
	d := NewPaymentDraft(o)
	_, _ = d.Change(1, 1)

	card := BuildPaymentCard(d, "Masa 1", "tr")
	assert.Contains(t, card.Text, lang.T("tr", "pay_remaining", "₺25.00"))
	assert.Contains(t, card.Text, lang.T("tr", "pay_selected", "₺20.00"))

	b, ok := findButton(card, CbPayReceipt)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(b.Text, "⬜"))
	_, ok = findButton(card, CbPayMethod+models.PaymentCash)
	assert.True(t, ok)

	o.RemainingBalance = decimal.NullDecimal{}
	card = BuildPaymentCard(NewPaymentDraft(o), "Masa 1", "tr")
	assert.Contains(t, card.Text, lang.T("tr", "pay_remaining", "₺40.00"), "falls back to the total")
}

func TestBuildReportCard(t *testing.T) {
	r := &models.Report{
		Date:         "2026-01-05",
		OrderCount:   4,
		TotalRevenue: decimal.RequireFromString("250.5"),
		CashRevenue:  decimal.RequireFromString("100"),
		CardRevenue:  decimal.RequireFromString("150.5"),
	}
	card := BuildReportCard(r, "https://pos.example/api/reports/daily-pdf/?date=2026-01-05", "en")
	assert.Contains(t, card.Text, lang.T("en", "report_total", "₺250.50"))
	assert.Contains(t, card.Text, lang.T("en", "report_card", "₺150.50"))
	require.NotEmpty(t, card.Buttons)
	assert.Equal(t, "https://pos.example/api/reports/daily-pdf/?date=2026-01-05", card.Buttons[0][0].URL)

	monthly := BuildReportCard(&models.Report{Year: 2026, Month: 2}, "", "en")
	assert.Contains(t, monthly.Text, lang.T("en", "report_monthly_title", "2026-02"))
	assert.Len(t, monthly.Buttons, 1)
}

func TestParseCallbacks(t *testing.T) {
	id, err := ParseID("tbl:12", CbTable)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	_, err = ParseID("tbl:x", CbTable)
	assert.Error(t, err)

	id, delta, err := ParseIDDelta("qty:5:-1", CbQty)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.Equal(t, -1, delta)
	_, _, err = ParseIDDelta("qty:5", CbQty)
	assert.Error(t, err)
}
