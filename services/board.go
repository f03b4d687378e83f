package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kafe-pos/lang"
	"kafe-pos/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TableSource is the part of the API the board reads.
type TableSource interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	ListOpenOrders(ctx context.Context) ([]models.Order, error)
}

// OrderRef is what the board knows about a table's open order.
type OrderRef struct {
	OrderID  int64
	HasItems bool
}

// TableState is the visual category of a table on the board.
type TableState string

const (
	StateFree     TableState = "free"
	StateOccupied TableState = "occupied"
	StateGuest    TableState = "guest"
	StateDelivery TableState = "delivery"
)

// BuildOrderIndex maps table id to its unpaid order. Orders without items still map,
// with HasItems false.
func BuildOrderIndex(orders []models.Order) map[int64]OrderRef {
	idx := make(map[int64]OrderRef, len(orders))
	for _, o := range orders {
		if o.IsPaid {
			continue
		}
		idx[o.Table] = OrderRef{OrderID: o.ID, HasItems: len(o.Items) > 0}
	}
	return idx
}

// DeriveState picks a table's board color. Guest and delivery tables keep their own
// color whatever their occupancy; other tables are occupied only when the server says
// so and the open order has at least one item.
func DeriveState(t models.Table, ref OrderRef) TableState {
	switch t.Type {
	case models.TableTypeGuest:
		return StateGuest
	case models.TableTypeDelivery:
		return StateDelivery
	}
	if t.Status == models.TableStatusOccupied && ref.HasItems {
		return StateOccupied
	}
	return StateFree
}

// TableLabel is the display name staff see for a table.
func TableLabel(langCode string, t models.Table) string {
	switch t.Type {
	case models.TableTypeGuest:
		return lang.T(langCode, "table_label_guest")
	case models.TableTypeDelivery:
		return lang.T(langCode, "table_label_delivery", t.Number)
	default:
		return lang.T(langCode, "table_label_regular", t.Number)
	}
}

type TableView struct {
	Table models.Table
	State TableState
	Order OrderRef
}

type BoardSnapshot struct {
	Tables    []TableView
	FetchedAt time.Time
}

// Count returns how many tables are in state s.
func (s *BoardSnapshot) Count(st TableState) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.Tables {
		if t.State == st {
			n++
		}
	}
	return n
}

// Selection is what the order screen is opened with. OrderID is 0 when the table
// has no open order; no order is created by selecting a table.
type Selection struct {
	TableID int64
	OrderID int64
	Label   string
}

// Board keeps the last successfully fetched table state for one chat.
type Board struct {
	src TableSource
	log *logrus.Entry

	mu      sync.Mutex
	started uint64
	applied uint64
	snap    *BoardSnapshot
}

func NewBoard(src TableSource, log *logrus.Entry) *Board {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Board{src: src, log: log}
}

// Refresh fetches tables and open orders in parallel and rebuilds the snapshot. A
// response older than one already applied is dropped. On error the previous snapshot
// is kept and returned together with the error.
func (b *Board) Refresh(ctx context.Context) (*BoardSnapshot, error) {
	b.mu.Lock()
	b.started++
	seq := b.started
	b.mu.Unlock()

	var (
		tables []models.Table
		orders []models.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tables, err = b.src.ListTables(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = b.src.ListOpenOrders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		b.log.WithError(err).Debug("board refresh failed")
		return b.Snapshot(), fmt.Errorf("refresh board: %w", err)
	}

	idx := BuildOrderIndex(orders)
	snap := &BoardSnapshot{Tables: make([]TableView, 0, len(tables)), FetchedAt: time.Now()}
	for _, t := range tables {
		ref := idx[t.ID]
		snap.Tables = append(snap.Tables, TableView{Table: t, State: DeriveState(t, ref), Order: ref})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.applied {
		return b.snap, nil
	}
	b.applied = seq
	b.snap = snap
	return snap, nil
}

func (b *Board) Snapshot() *BoardSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Select resolves a table from the last snapshot.
func (b *Board) Select(tableID int64, langCode string) (Selection, error) {
	snap := b.Snapshot()
	if snap == nil {
		return Selection{}, ErrUnknownTable
	}
	for _, tv := range snap.Tables {
		if tv.Table.ID == tableID {
			return Selection{
				TableID: tableID,
				OrderID: tv.Order.OrderID,
				Label:   TableLabel(langCode, tv.Table),
			}, nil
		}
	}
	return Selection{}, ErrUnknownTable
}
