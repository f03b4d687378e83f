package services

import (
	"context"
	"testing"
	"time"

	"kafe-pos/api"
	"kafe-pos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductForm(t *testing.T) {
	tests := []struct {
		name, price string
		category    int64
		want        models.ProductInput
		wantErr     bool
	}{
		{"  Çay  ", "20", 1, models.ProductInput{Name: "Çay", Price: "20.00", Category: 1}, false},
		{"Kahve", "35,5", 2, models.ProductInput{Name: "Kahve", Price: "35.50", Category: 2}, false},
		{"Su", "₺7.125", 2, models.ProductInput{Name: "Su", Price: "7.13", Category: 2}, false},
		{"", "10", 1, models.ProductInput{}, true},
		{"Çay", "", 1, models.ProductInput{}, true},
		{"Çay", "abc", 1, models.ProductInput{}, true},
		{"Çay", "-1", 1, models.ProductInput{}, true},
		{"Çay", "10", 0, models.ProductInput{}, true},
	}
	for _, tt := range tests {
		got, err := ProductForm(tt.name, tt.price, tt.category)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidProduct, "%q %q %d", tt.name, tt.price, tt.category)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNextCategoryOrder(t *testing.T) {
	assert.Equal(t, 1, NextCategoryOrder(nil))
	assert.Equal(t, 8, NextCategoryOrder([]models.Category{{Order: 3}, {Order: 7}, {Order: 2}}))
}

func TestParseReportDateAndMonth(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	d, err := ParseReportDate("", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", d)
	_, err = ParseReportDate("14.03.2026", now)
	assert.Error(t, err)

	tests := []struct {
		in          string
		year, month int
		wantErr     bool
	}{
		{"", 2026, 3, false},
		{"2026 02", 2026, 2, false},
		{"2025-12", 2025, 12, false},
		{"04 2026", 2026, 4, false},
		{"2026 13", 0, 0, true},
		{"march", 0, 0, true},
	}
	for _, tt := range tests {
		y, m, err := ParseReportMonth(tt.in, now)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.year, y, tt.in)
		assert.Equal(t, tt.month, m, tt.in)
	}
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.n++
	return nil
}

func TestAdminCatalogWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &countingInvalidator{}
	admin := NewAdmin(f.conn, inv, nil)

	all, err := admin.Products(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4, "admin sees inactive products too")
	drinks, err := admin.Products(ctx, f.drinks.ID)
	require.NoError(t, err)
	assert.Len(t, drinks, 3)

	in, err := ProductForm("Limonata", "42.5", f.drinks.ID)
	require.NoError(t, err)
	p, err := admin.SaveProduct(ctx, 0, in)
	require.NoError(t, err)
	assert.Equal(t, "42.5", p.Price.String())

	in.Price = "45.00"
	p, err = admin.SaveProduct(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "45", p.Price.String())

	got, err := admin.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Limonata", got.Name)

	require.NoError(t, admin.DeleteProduct(ctx, p.ID))
	_, err = admin.Product(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	cat, err := admin.CreateCategory(ctx, "  Kahvaltı ")
	require.NoError(t, err)
	assert.Equal(t, "Kahvaltı", cat.Name)
	assert.Equal(t, 3, cat.Order)

	err = admin.DeleteCategory(ctx, f.drinks.ID)
	require.Error(t, err)
	assert.NotEmpty(t, api.Message(err))

	require.NoError(t, admin.DeleteCategory(ctx, cat.ID))
	_, err = admin.CreateCategory(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	assert.Equal(t, 5, inv.n)
}

func TestAdminReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := NewAdmin(f.conn, nil, nil)

	order, err := f.conn.CreateOrder(ctx, f.guest.ID)
	require.NoError(t, err)
	_, err = f.conn.AddOrderItem(ctx, order.ID, f.tea.ID, 1)
	require.NoError(t, err)
	_, err = f.conn.CreatePayment(ctx, models.CreatePaymentInput{Order: order.ID, Amount: "20.00", Method: models.PaymentCard})
	require.NoError(t, err)

	daily, err := admin.DailyReport(ctx, f.srv.Today)
	require.NoError(t, err)
	assert.Equal(t, "20", daily.GuestRevenue.String())
	assert.Equal(t, "20", daily.CardRevenue.String())

	today, err := time.Parse(ReportDateLayout, f.srv.Today)
	require.NoError(t, err)
	monthly, err := admin.MonthlyReport(ctx, today.Year(), int(today.Month()))
	require.NoError(t, err)
	assert.Equal(t, 1, monthly.OrderCount)
	assert.Equal(t, today.Year(), monthly.Year)

	_, err = admin.MonthlyReport(ctx, 2026, 13)
	assert.Error(t, err)
}
