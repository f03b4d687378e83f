package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"kafe-pos/models"
)

func idPath(resource string, id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%s: %w", resource, ErrInvalidID)
	}
	return resource + "/" + strconv.FormatInt(id, 10) + "/", nil
}

func (c *Conn) ListTables(ctx context.Context) ([]models.Table, error) {
	var out []models.Table
	if err := c.getList(ctx, "tables/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOpenOrders returns orders the server considers open. Callers still check IsPaid.
func (c *Conn) ListOpenOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.getList(ctx, "orders/open/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches one order. An id of 0 means "no order yet" and is rejected locally.
func (c *Conn) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	path, err := idPath("orders", id)
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := c.getJSON(ctx, path, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Conn) CreateOrder(ctx context.Context, tableID int64) (*models.Order, error) {
	var o models.Order
	if err := c.sendJSON(ctx, http.MethodPost, "orders/", models.CreateOrderInput{Table: tableID}, &o); err != nil {
		return nil, err
	}
	if o.ID <= 0 {
		return nil, fmt.Errorf("create order: response has no id")
	}
	return &o, nil
}

func (c *Conn) AddOrderItem(ctx context.Context, orderID, productID int64, quantity int) (*models.OrderItem, error) {
	in := models.AddOrderItemInput{Order: orderID, Product: productID, Quantity: quantity}
	var it models.OrderItem
	if err := c.sendJSON(ctx, http.MethodPost, "order-items/", in, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Conn) UpdateOrderItem(ctx context.Context, itemID int64, quantity int) (*models.OrderItem, error) {
	path, err := idPath("order-items", itemID)
	if err != nil {
		return nil, err
	}
	var it models.OrderItem
	if err := c.sendJSON(ctx, http.MethodPatch, path, map[string]int{"quantity": quantity}, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Conn) DeleteOrderItem(ctx context.Context, itemID int64) error {
	path, err := idPath("order-items", itemID)
	if err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Conn) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.getList(ctx, "categories/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	var cat models.Category
	if err := c.sendJSON(ctx, http.MethodPost, "categories/", in, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Conn) DeleteCategory(ctx context.Context, id int64) error {
	path, err := idPath("categories", id)
	if err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Conn) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	var q url.Values
	if f.ActiveOnly {
		q = url.Values{"active_only": {"true"}}
	}
	var out []models.Product
	if err := c.getList(ctx, "products/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Conn) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.sendJSON(ctx, http.MethodPost, "products/", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Conn) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	path, err := idPath("products", id)
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := c.sendJSON(ctx, http.MethodPatch, path, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Conn) DeleteProduct(ctx context.Context, id int64) error {
	path, err := idPath("products", id)
	if err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Conn) CreatePayment(ctx context.Context, in models.CreatePaymentInput) (*models.Payment, error) {
	var p models.Payment
	if err := c.sendJSON(ctx, http.MethodPost, "payments/", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DailyReport fetches the report for date (YYYY-MM-DD).
func (c *Conn) DailyReport(ctx context.Context, date string) (*models.Report, error) {
	var r models.Report
	if err := c.getJSON(ctx, "reports/daily/", url.Values{"date": {date}}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Conn) MonthlyReport(ctx context.Context, year, month int) (*models.Report, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	var r models.Report
	if err := c.getJSON(ctx, "reports/monthly/", q, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
