package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kafe-pos/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AdminAPI is the catalog and report surface of the API.
type AdminAPI interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	DailyReport(ctx context.Context, date string) (*models.Report, error)
	MonthlyReport(ctx context.Context, year, month int) (*models.Report, error)
}

// Invalidator drops cached catalog data after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

const ReportDateLayout = "2006-01-02"

// ProductForm validates raw admin input into an API payload. The name is trimmed, the
// price accepts a decimal comma and is sent with two decimals.
func ProductForm(name, price string, categoryID int64) (models.ProductInput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ProductInput{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	p, err := ParsePrice(price)
	if err != nil {
		return models.ProductInput{}, err
	}
	if categoryID <= 0 {
		return models.ProductInput{}, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	return models.ProductInput{Name: name, Price: p.StringFixed(2), Category: categoryID}, nil
}

func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "₺"))
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: price is required", ErrInvalidProduct)
	}
	p, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil || p.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: price %q is not a valid amount", ErrInvalidProduct, raw)
	}
	return p, nil
}

// NextCategoryOrder places a new category after every existing one.
func NextCategoryOrder(cats []models.Category) int {
	max := 0
	for _, c := range cats {
		if c.Order > max {
			max = c.Order
		}
	}
	return max + 1
}

// FilterProducts keeps products of categoryID; 0 keeps all.
func FilterProducts(products []models.Product, categoryID int64) []models.Product {
	if categoryID == 0 {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Category == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// ParseReportDate accepts YYYY-MM-DD; empty means today.
func ParseReportDate(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Format(ReportDateLayout), nil
	}
	if _, err := time.Parse(ReportDateLayout, raw); err != nil {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return raw, nil
}

// ParseReportMonth accepts "YYYY MM", "YYYY-MM" or "MM YYYY"; empty means this month.
func ParseReportMonth(raw string, now time.Time) (year, month int, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Year(), int(now.Month()), nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == '-' || r == '/' || r == '.' })
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid month %q, want YYYY MM", raw)
	}
	a, errA := strconv.Atoi(parts[0])
	b, errB := strconv.Atoi(parts[1])
	if errA != nil || errB != nil {
		return 0, 0, fmt.Errorf("invalid month %q, want YYYY MM", raw)
	}
	year, month = a, b
	if a <= 12 && b > 12 {
		year, month = b, a
	}
	if month < 1 || month > 12 || year < 2000 {
		return 0, 0, fmt.Errorf("invalid month %q, want YYYY MM", raw)
	}
	return year, month, nil
}

// Admin runs catalog maintenance and reports for the admin panel.
type Admin struct {
	api   AdminAPI
	cache Invalidator
	log   *logrus.Entry
}

// NewAdmin wires the admin operations; cache may be nil.
func NewAdmin(api AdminAPI, cache Invalidator, log *logrus.Entry) *Admin {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Admin{api: api, cache: cache, log: log}
}

func (a *Admin) invalidate(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		a.log.WithError(err).Warn("catalog cache invalidation failed")
	}
}

func (a *Admin) Categories(ctx context.Context) ([]models.Category, error) {
	return a.api.ListCategories(ctx)
}

// Products lists every product, inactive ones included, optionally by category.
func (a *Admin) Products(ctx context.Context, categoryID int64) ([]models.Product, error) {
	all, err := a.api.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return nil, err
	}
	return FilterProducts(all, categoryID), nil
}

// Product finds one product by id in the full list.
func (a *Admin) Product(ctx context.Context, id int64) (*models.Product, error) {
	all, err := a.api.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: product %d not found", ErrInvalidProduct, id)
}

// SaveProduct creates the product when id is 0 and updates it otherwise.
func (a *Admin) SaveProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	var (
		p   *models.Product
		err error
	)
	if id == 0 {
		p, err = a.api.CreateProduct(ctx, in)
	} else {
		p, err = a.api.UpdateProduct(ctx, id, in)
	}
	if err != nil {
		return nil, err
	}
	a.invalidate(ctx)
	a.log.WithFields(logrus.Fields{"product_id": p.ID, "name": p.Name}).Info("product saved")
	return p, nil
}

func (a *Admin) DeleteProduct(ctx context.Context, id int64) error {
	if err := a.api.DeleteProduct(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx)
	a.log.WithField("product_id", id).Info("product deleted")
	return nil
}

// CreateCategory appends a category after the existing ones.
func (a *Admin) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	cats, err := a.api.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c, err := a.api.CreateCategory(ctx, models.CategoryInput{Name: name, Order: NextCategoryOrder(cats)})
	if err != nil {
		return nil, err
	}
	a.invalidate(ctx)
	return c, nil
}

// DeleteCategory fails when the server still has products in the category.
func (a *Admin) DeleteCategory(ctx context.Context, id int64) error {
	if err := a.api.DeleteCategory(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx)
	return nil
}

func (a *Admin) DailyReport(ctx context.Context, date string) (*models.Report, error) {
	r, err := a.api.DailyReport(ctx, date)
	if err != nil {
		return nil, err
	}
	if r.Date == "" {
		r.Date = date
	}
	return r, nil
}

func (a *Admin) MonthlyReport(ctx context.Context, year, month int) (*models.Report, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	r, err := a.api.MonthlyReport(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if r.Year == 0 {
		r.Year, r.Month = year, month
	}
	return r, nil
}
