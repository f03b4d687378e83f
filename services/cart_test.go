package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"kafe-pos/apitest"
	"kafe-pos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart := f.loadedCart(t, f.table)
	assert.Equal(t, CartReady, cart.State())
	assert.Zero(t, cart.OrderID())
	assert.Empty(t, cart.Order().Items)
	assert.Equal(t, 0, f.srv.Hits(apitest.RouteGetOrder), "no order id means no GET /orders/{id}/")
	assert.Equal(t, 0, f.srv.OrderCount(f.table.ID), "opening a table creates nothing")

	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	order := cart.Order()
	require.Len(t, order.Items, 1)
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, "20", order.TotalAmount.String())

	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	order = cart.Order()
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "40", order.TotalAmount.String())
	assert.Equal(t, 2, cart.QuantityOf(f.tea.ID))
	assert.Equal(t, 1, f.srv.OrderCount(f.table.ID))

	require.NoError(t, cart.ChangeQuantity(ctx, order.Items[0].ID, -1))
	order = cart.Order()
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, "20", order.TotalAmount.String())

	draft := NewPaymentDraft(order)
	draft.SelectAll()
	draft.SetReceipt(true)
	_, err := draft.Submit(ctx, f.conn, models.PaymentCash)
	require.NoError(t, err)

	settled, err := cart.AfterPayment(ctx)
	require.NoError(t, err)
	assert.True(t, settled)
	assert.Equal(t, CartClosed, cart.State())
	assert.ErrorIs(t, cart.AddProduct(ctx, f.tea.ID), ErrOrderClosed)

	snap, err := NewBoard(f.conn, nil).Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFree, stateOf(t, snap, f.table.ID))
}

func TestCartLoadsExistingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.conn.CreateOrder(ctx, f.table.ID)
	require.NoError(t, err)
	_, err = f.conn.AddOrderItem(ctx, order.ID, f.cake.ID, 2)
	require.NoError(t, err)

	cart := f.loadedCart(t, f.table)
	assert.Equal(t, order.ID, cart.OrderID())
	assert.Equal(t, "100", cart.Order().TotalAmount.String())
	assert.Equal(t, 1, f.srv.Hits(apitest.RouteGetOrder))

	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	assert.Equal(t, 1, f.srv.OrderCount(f.table.ID), "the existing order is reused")
	assert.Len(t, cart.Order().Items, 2)
}

func TestCartCatalogIsActiveOnly(t *testing.T) {
	f := newFixture(t)
	cart := f.loadedCart(t, f.table)

	assert.Len(t, cart.Categories(), 2)
	drinks := cart.Products(f.drinks.ID)
	names := make([]string, 0, len(drinks))
	for _, p := range drinks {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Çay", "Türk Kahvesi"}, names)
	assert.Len(t, cart.Products(0), 3)
}

func TestCartQuantityFloorDeletesLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.loadedCart(t, f.table)

	require.NoError(t, cart.AddProduct(ctx, f.coffee.ID))
	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	item, ok := cart.Order().ItemByProduct(f.coffee.ID)
	require.True(t, ok)

	require.NoError(t, cart.ChangeQuantity(ctx, item.ID, -1))
	order := cart.Order()
	_, ok = order.ItemByProduct(f.coffee.ID)
	assert.False(t, ok)
	require.Len(t, order.Items, 1)
	for _, it := range order.Items {
		assert.Positive(t, it.Quantity)
	}
	assert.Equal(t, 1, f.srv.Hits(apitest.RouteDeleteItem))

	assert.ErrorIs(t, cart.ChangeQuantity(ctx, item.ID, 1), ErrUnknownItem)
}

func TestCartChangeQuantityWithoutOrder(t *testing.T) {
	f := newFixture(t)
	cart := f.loadedCart(t, f.table)
	assert.ErrorIs(t, cart.ChangeQuantity(context.Background(), 1, 1), ErrNoOrder)
}

func TestCartNotLoaded(t *testing.T) {
	f := newFixture(t)
	cart := NewCart(f.conn, f.conn, Selection{TableID: f.table.ID}, nil)
	assert.ErrorIs(t, cart.AddProduct(context.Background(), f.tea.ID), ErrNotReady)
	assert.Equal(t, 0, f.srv.OrderCount(f.table.ID))
}

func TestCartBusyGuardBlocksEveryMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.loadedCart(t, f.table)
	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	o := cart.Order()
	item, ok := o.ItemByProduct(f.tea.ID)
	require.True(t, ok)
	require.Equal(t, 2, item.Quantity)

	release := f.srv.Hold(apitest.RouteUpdateItem)
	errc := make(chan error, 1)
	go func() { errc <- cart.AddProduct(ctx, f.tea.ID) }()
	require.Eventually(t, func() bool {
		return cart.Busy(ProductKey(f.tea.ID)) && f.srv.Hits(apitest.RouteUpdateItem) == 2
	}, timeout, tick)

	assert.ErrorIs(t, cart.AddProduct(ctx, f.tea.ID), ErrBusy)
	assert.ErrorIs(t, cart.ChangeQuantity(ctx, item.ID, -1), ErrBusy)
	assert.ErrorIs(t, cart.AddProduct(ctx, f.cake.ID), ErrBusy)
	assert.True(t, cart.Busy(ProductKey(f.tea.ID)))
	assert.False(t, cart.Busy(ItemKey(item.ID)), "only the pressed control is marked")
	assert.Equal(t, 2, f.srv.Hits(apitest.RouteUpdateItem), "nothing else reached the server")

	release()
	require.NoError(t, <-errc)
	assert.False(t, cart.Busy(ProductKey(f.tea.ID)))

	require.NoError(t, cart.ChangeQuantity(ctx, item.ID, -1))
	o = cart.Order()
	item, ok = o.ItemByProduct(f.tea.ID)
	require.True(t, ok)
	assert.Equal(t, 2, item.Quantity, "+1 then -1 from 2")
	_, ok = o.ItemByProduct(f.cake.ID)
	assert.False(t, ok)
}

func TestCartSecondAddDuringCreationIsBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.loadedCart(t, f.table)

	release := f.srv.Hold(apitest.RouteCreateOrder)
	errc := make(chan error, 1)
	go func() { errc <- cart.AddProduct(ctx, f.tea.ID) }()
	require.Eventually(t, func() bool {
		return cart.Busy(ProductKey(f.tea.ID)) && f.srv.Hits(apitest.RouteCreateOrder) == 1
	}, timeout, tick)

	assert.ErrorIs(t, cart.AddProduct(ctx, f.cake.ID), ErrBusy)
	release()
	require.NoError(t, <-errc)

	assert.Equal(t, 1, f.srv.OrderCount(f.table.ID))
	assert.Equal(t, 1, f.srv.Hits(apitest.RouteCreateOrder))
	assert.Len(t, cart.Order().Items, 1)
}

func TestCartsOnSameTableCreateOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.loadedCart(t, f.table)
	second := f.loadedCart(t, f.table)

	release := f.srv.Hold(apitest.RouteCreateOrder)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, c := range []*Cart{first, second} {
		wg.Add(1)
		go func(i int, c *Cart) {
			defer wg.Done()
			errs[i] = c.AddProduct(ctx, f.tea.ID)
		}(i, c)
	}
	require.Eventually(t, func() bool {
		return first.Busy(ProductKey(f.tea.ID)) && second.Busy(ProductKey(f.tea.ID)) && f.srv.Hits(apitest.RouteCreateOrder) >= 1
	}, timeout, tick)
	release()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, f.srv.OrderCount(f.table.ID))
	assert.Equal(t, 1, f.srv.Hits(apitest.RouteCreateOrder))
	assert.Equal(t, first.OrderID(), second.OrderID())
}

func TestCartFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.loadedCart(t, f.table)
	require.NoError(t, cart.AddProduct(ctx, f.tea.ID))
	before := cart.Order()

	f.srv.FailNext(apitest.RouteUpdateItem, http.StatusBadRequest, `{"quantity":["Stokta yok."]}`)
	err := cart.AddProduct(ctx, f.tea.ID)
	require.Error(t, err)
	assert.Equal(t, before, cart.Order())
	assert.False(t, cart.Busy(ProductKey(f.tea.ID)))

	require.NoError(t, cart.AddProduct(ctx, f.tea.ID), "retry works")
}

func TestCartDetachedIgnoresLateResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.loadedCart(t, f.table)

	release := f.srv.Hold(apitest.RouteGetOrder)
	errc := make(chan error, 1)
	go func() { errc <- cart.AddProduct(ctx, f.tea.ID) }()
	require.Eventually(t, func() bool { return f.srv.Hits(apitest.RouteGetOrder) == 1 }, timeout, tick)

	cart.Detach()
	release()
	require.NoError(t, <-errc)
	assert.Empty(t, cart.Order().Items)
}
