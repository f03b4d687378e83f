package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"kafe-pos/apitest"
	"kafe-pos/lang"
	"kafe-pos/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrderIndex(t *testing.T) {
	orders := []models.Order{
		{ID: 10, Table: 1, Items: []models.OrderItem{{ID: 1, Quantity: 1}}},
		{ID: 11, Table: 2},
		{ID: 12, Table: 3, IsPaid: true, Items: []models.OrderItem{{ID: 2, Quantity: 1}}},
	}
	idx := BuildOrderIndex(orders)

	assert.Equal(t, OrderRef{OrderID: 10, HasItems: true}, idx[1])
	assert.Equal(t, OrderRef{OrderID: 11, HasItems: false}, idx[2])
	_, ok := idx[3]
	assert.False(t, ok, "paid orders are not indexed")
}

func TestDeriveState(t *testing.T) {
	tests := []struct {
		name  string
		table models.Table
		ref   OrderRef
		want  TableState
	}{
		{"free regular", models.Table{Type: models.TableTypeRegular, Status: models.TableStatusFree}, OrderRef{}, StateFree},
		{"occupied with items", models.Table{Type: models.TableTypeRegular, Status: models.TableStatusOccupied}, OrderRef{OrderID: 1, HasItems: true}, StateOccupied},
		{"occupied but empty order", models.Table{Type: models.TableTypeRegular, Status: models.TableStatusOccupied}, OrderRef{OrderID: 1}, StateFree},
		{"items but server says free", models.Table{Type: models.TableTypeRegular, Status: models.TableStatusFree}, OrderRef{OrderID: 1, HasItems: true}, StateFree},
		{"guest overrides", models.Table{Type: models.TableTypeGuest, Status: models.TableStatusOccupied}, OrderRef{OrderID: 1, HasItems: true}, StateGuest},
		{"delivery overrides", models.Table{Type: models.TableTypeDelivery, Status: models.TableStatusFree}, OrderRef{}, StateDelivery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.table, tt.ref))
		})
	}
}

func TestTableLabel(t *testing.T) {
	assert.Equal(t, lang.T("tr", "table_label_regular", 4), TableLabel("tr", models.Table{Number: 4, Type: models.TableTypeRegular}))
	assert.Equal(t, lang.T("en", "table_label_delivery", 2), TableLabel("en", models.Table{Number: 2, Type: models.TableTypeDelivery}))
	assert.Equal(t, lang.T("tr", "table_label_guest"), TableLabel("tr", models.Table{Number: 9, Type: models.TableTypeGuest}))
}

func TestBoardOccupancyFollowsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board := NewBoard(f.conn, nil)

	snap, err := board.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFree, stateOf(t, snap, f.table.ID))
	assert.Equal(t, StateGuest, stateOf(t, snap, f.guest.ID))

	// An order with no items keeps the table free.
	order, err := f.conn.CreateOrder(ctx, f.table.ID)
	require.NoError(t, err)
	snap, err = board.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFree, stateOf(t, snap, f.table.ID))
	sel, err := board.Select(f.table.ID, "tr")
	require.NoError(t, err)
	assert.Equal(t, order.ID, sel.OrderID)

	_, err = f.conn.AddOrderItem(ctx, order.ID, f.tea.ID, 1)
	require.NoError(t, err)
	snap, err = board.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOccupied, stateOf(t, snap, f.table.ID))
	assert.Equal(t, 1, snap.Count(StateOccupied))

	_, err = f.conn.CreatePayment(ctx, models.CreatePaymentInput{Order: order.ID, Amount: "20.00", Method: models.PaymentCash})
	require.NoError(t, err)
	snap, err = board.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFree, stateOf(t, snap, f.table.ID))
	sel, err = board.Select(f.table.ID, "tr")
	require.NoError(t, err)
	assert.Zero(t, sel.OrderID)
}

func TestBoardKeepsLastSnapshotOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	board := NewBoard(f.conn, nil)

	first, err := board.Refresh(ctx)
	require.NoError(t, err)

	f.srv.FailNext(apitest.RouteListOpenOrders, http.StatusInternalServerError, `{"detail":"boom"}`)
	got, err := board.Refresh(ctx)
	require.Error(t, err)
	assert.Same(t, first, got)
	assert.Same(t, first, board.Snapshot())
}

func TestBoardSelectUnknownTable(t *testing.T) {
	board := NewBoard(nil, nil)
	_, err := board.Select(1, "tr")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

// sequencedSource blocks its first ListTables call until gate closes.
type sequencedSource struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	gate    chan struct{}
}

func (s *sequencedSource) ListTables(context.Context) ([]models.Table, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	status := models.TableStatusOccupied
	if n == 1 {
		close(s.entered)
		<-s.gate
		status = models.TableStatusFree
	}
	return []models.Table{{ID: 1, Number: 1, Type: models.TableTypeRegular, Status: status}}, nil
}

func (s *sequencedSource) ListOpenOrders(context.Context) ([]models.Order, error) {
	return []models.Order{{ID: 5, Table: 1, TotalAmount: decimal.NewFromInt(20), Items: []models.OrderItem{{ID: 9, Quantity: 1}}}}, nil
}

func TestBoardDropsStaleRefresh(t *testing.T) {
	src := &sequencedSource{entered: make(chan struct{}), gate: make(chan struct{})}
	board := NewBoard(src, nil)

	done := make(chan *BoardSnapshot)
	go func() {
		snap, _ := board.Refresh(context.Background())
		done <- snap
	}()
	<-src.entered

	fresh, err := board.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateOccupied, stateOf(t, fresh, 1))

	close(src.gate)
	stale := <-done
	assert.Same(t, fresh, stale)
	assert.Equal(t, StateOccupied, stateOf(t, board.Snapshot(), 1))
}
