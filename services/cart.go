package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"kafe-pos/metrics"
	"kafe-pos/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// OrderAPI is the part of the API the cart mutates orders through.
type OrderAPI interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	CreateOrder(ctx context.Context, tableID int64) (*models.Order, error)
	AddOrderItem(ctx context.Context, orderID, productID int64, quantity int) (*models.OrderItem, error)
	UpdateOrderItem(ctx context.Context, itemID int64, quantity int) (*models.OrderItem, error)
	DeleteOrderItem(ctx context.Context, itemID int64) error
}

// CatalogSource lists what can be ordered.
type CatalogSource interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
}

type CartState int

const (
	CartUninitialized CartState = iota
	CartLoading
	CartReady
	CartClosed
)

func (s CartState) String() string {
	switch s {
	case CartLoading:
		return "loading"
	case CartReady:
		return "ready"
	case CartClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// orderCreation collapses concurrent first adds for one table into a single
// POST /orders/, across every cart in the process.
var orderCreation singleflight.Group

func ProductKey(productID int64) string { return "product:" + strconv.FormatInt(productID, 10) }
func ItemKey(itemID int64) string       { return "item:" + strconv.FormatInt(itemID, 10) }

// Cart is the order screen for one table visit. The server is the source of truth:
// every mutation is followed by a fetch of the whole order.
type Cart struct {
	orders  OrderAPI
	catalog CatalogSource
	sel     Selection
	log     *logrus.Entry

	mu         sync.Mutex
	state      CartState
	detached   bool
	orderID    int64
	order      *models.Order
	categories []models.Category
	products   []models.Product
	busy       map[string]struct{}
}

func NewCart(orders OrderAPI, catalog CatalogSource, sel Selection, log *logrus.Entry) *Cart {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Cart{
		orders:  orders,
		catalog: catalog,
		sel:     sel,
		orderID: sel.OrderID,
		order:   models.EmptyOrder(sel.TableID),
		busy:    make(map[string]struct{}),
		log:     log.WithField("table_id", sel.TableID),
	}
}

func (c *Cart) Selection() Selection { return c.sel }

// Load fetches the catalog and, when the table already has an order, that order.
// Without an order id the cart starts from an empty shell and GET /orders/ is skipped.
func (c *Cart) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state == CartLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	prev := c.state
	c.state = CartLoading
	orderID := c.orderID
	c.mu.Unlock()

	var (
		cats  []models.Category
		prods []models.Product
		order *models.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = c.catalog.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		prods, err = c.catalog.ListProducts(gctx, models.ProductFilter{ActiveOnly: true})
		return err
	})
	if orderID != 0 {
		g.Go(func() error {
			var err error
			order, err = c.orders.GetOrder(gctx, orderID)
			return err
		})
	}
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = prev
		return fmt.Errorf("load cart: %w", err)
	}
	if c.detached {
		return nil
	}
	c.categories = cats
	c.products = prods
	if order == nil {
		order = models.EmptyOrder(c.sel.TableID)
	}
	c.setOrderLocked(order)
	if c.state != CartClosed {
		c.state = CartReady
	}
	return nil
}

// Detach marks the cart as torn down; responses still in flight are not applied.
func (c *Cart) Detach() {
	c.mu.Lock()
	c.detached = true
	c.mu.Unlock()
}

func (c *Cart) State() CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Cart) OrderID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderID
}

// Order returns a copy of the last order fetched from the server.
func (c *Cart) Order() models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := *c.order
	o.Items = append([]models.OrderItem(nil), c.order.Items...)
	return o
}

func (c *Cart) Categories() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Category(nil), c.categories...)
}

// Products returns active products of categoryID, or all of them for 0.
func (c *Cart) Products(categoryID int64) []models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		if categoryID == 0 || p.Category == categoryID {
			out = append(out, p)
		}
	}
	return out
}

// QuantityOf is the in-cart badge for a product button.
func (c *Cart) QuantityOf(productID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.order.ItemByProduct(productID); ok {
		return it.Quantity
	}
	return 0
}

func (c *Cart) Busy(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.busy[key]
	return ok
}

func (c *Cart) setOrderLocked(o *models.Order) {
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}
	c.order = o
	if o.ID != 0 {
		c.orderID = o.ID
	}
	if o.IsPaid {
		c.state = CartClosed
	}
}

func (c *Cart) acquire(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case CartReady:
	case CartClosed:
		return ErrOrderClosed
	default:
		return ErrNotReady
	}
	if len(c.busy) > 0 {
		return ErrBusy
	}
	c.busy[key] = struct{}{}
	return nil
}

func (c *Cart) release(key string) {
	c.mu.Lock()
	delete(c.busy, key)
	c.mu.Unlock()
}

// mutate runs fn while key is marked busy, then replaces the local order with a fresh
// copy from the server. fn returns the order id it touched and a metrics label.
func (c *Cart) mutate(ctx context.Context, key string, fn func(ctx context.Context) (int64, string, error)) error {
	if err := c.acquire(key); err != nil {
		return err
	}
	defer c.release(key)

	orderID, op, err := fn(ctx)
	metrics.RecordCartMutation(op, err)
	if err != nil {
		c.log.WithError(err).WithField("op", op).Info("cart mutation failed")
		return err
	}
	return c.reload(ctx, orderID)
}

func (c *Cart) reload(ctx context.Context, orderID int64) error {
	o, err := c.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reload order %d: %w", orderID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return nil
	}
	c.setOrderLocked(o)
	return nil
}

// ensureOrder returns the cart's order id, creating the order on first use.
func (c *Cart) ensureOrder(ctx context.Context) (int64, error) {
	c.mu.Lock()
	id := c.orderID
	c.mu.Unlock()
	if id != 0 {
		return id, nil
	}

	v, err, _ := orderCreation.Do(strconv.FormatInt(c.sel.TableID, 10), func() (interface{}, error) {
		c.mu.Lock()
		id := c.orderID
		c.mu.Unlock()
		if id != 0 {
			return id, nil
		}
		o, err := c.orders.CreateOrder(ctx, c.sel.TableID)
		if err != nil {
			return int64(0), err
		}
		c.mu.Lock()
		if c.orderID == 0 {
			c.orderID = o.ID
		}
		c.mu.Unlock()
		c.log.WithField("order_id", o.ID).Info("order created")
		return o.ID, nil
	})
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	id = v.(int64)

	c.mu.Lock()
	if c.orderID == 0 {
		c.orderID = id
	}
	id = c.orderID
	c.mu.Unlock()
	return id, nil
}

// AddProduct puts one more of productID on the order. The order is created on the
// first add; a product already on the order has its quantity bumped instead of a
// second line being added.
func (c *Cart) AddProduct(ctx context.Context, productID int64) error {
	return c.mutate(ctx, ProductKey(productID), func(ctx context.Context) (int64, string, error) {
		orderID, err := c.ensureOrder(ctx)
		if err != nil {
			return 0, "create", err
		}
		c.mu.Lock()
		existing, ok := c.order.ItemByProduct(productID)
		c.mu.Unlock()
		if ok {
			_, err = c.orders.UpdateOrderItem(ctx, existing.ID, existing.Quantity+1)
			return orderID, "update", err
		}
		_, err = c.orders.AddOrderItem(ctx, orderID, productID, 1)
		return orderID, "add", err
	})
}

// ChangeQuantity applies delta to a line item. A result of zero or less deletes the
// line instead of storing it.
func (c *Cart) ChangeQuantity(ctx context.Context, itemID int64, delta int) error {
	return c.mutate(ctx, ItemKey(itemID), func(ctx context.Context) (int64, string, error) {
		c.mu.Lock()
		orderID := c.orderID
		item, ok := c.order.ItemByID(itemID)
		c.mu.Unlock()
		if orderID == 0 {
			return 0, "update", ErrNoOrder
		}
		if !ok {
			return 0, "update", ErrUnknownItem
		}
		qty := item.Quantity + delta
		if qty <= 0 {
			return orderID, "delete", c.orders.DeleteOrderItem(ctx, itemID)
		}
		_, err := c.orders.UpdateOrderItem(ctx, itemID, qty)
		return orderID, "update", err
	})
}

// Reload fetches the order again, e.g. after another device changed it.
func (c *Cart) Reload(ctx context.Context) error {
	id := c.OrderID()
	if id == 0 {
		return nil
	}
	return c.reload(ctx, id)
}

// AfterPayment refreshes the order once a payment went through and reports whether
// it is now fully settled.
func (c *Cart) AfterPayment(ctx context.Context) (settled bool, err error) {
	id := c.OrderID()
	if id == 0 {
		return false, ErrNoOrder
	}
	if err := c.reload(ctx, id); err != nil {
		return false, err
	}
	return c.Order().IsPaid, nil
}
