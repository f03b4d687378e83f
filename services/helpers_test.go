package services

import (
	"context"
	"testing"
	"time"

	"kafe-pos/api"
	"kafe-pos/apitest"
	"kafe-pos/models"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *apitest.Server
	conn    *api.Conn
	table   models.Table
	guest   models.Table
	drinks  models.Category
	tea     models.Product // 20.00
	coffee  models.Product // 35.50
	cake    models.Product // 50.00
	retired models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	f := &fixture{srv: srv}
	f.table = srv.AddTable(1, models.TableTypeRegular)
	f.guest = srv.AddTable(90, models.TableTypeGuest)
	f.drinks = srv.AddCategory("İçecekler")
	desserts := srv.AddCategory("Tatlılar")
	f.tea = srv.AddProduct("Çay", "20.00", f.drinks.ID, true)
	f.coffee = srv.AddProduct("Türk Kahvesi", "35.50", f.drinks.ID, true)
	f.cake = srv.AddProduct("Cheesecake", "50.00", desserts.ID, true)
	f.retired = srv.AddProduct("Salep", "45.00", f.drinks.ID, false)

	client, err := api.New(api.Config{BaseURL: srv.URL(), Timeout: 2 * time.Second})
	require.NoError(t, err)
	f.conn = client.Connect(nil)
	require.NoError(t, f.conn.Login(context.Background(), "kasa", "1234"))
	return f
}

// loadedCart opens the order screen for table the way the board would.
func (f *fixture) loadedCart(t *testing.T, table models.Table) *Cart {
	t.Helper()
	board := NewBoard(f.conn, nil)
	_, err := board.Refresh(context.Background())
	require.NoError(t, err)
	sel, err := board.Select(table.ID, "tr")
	require.NoError(t, err)
	cart := NewCart(f.conn, f.conn, sel, nil)
	require.NoError(t, cart.Load(context.Background()))
	return cart
}

func stateOf(t *testing.T, snap *BoardSnapshot, tableID int64) TableState {
	t.Helper()
	for _, tv := range snap.Tables {
		if tv.Table.ID == tableID {
			return tv.State
		}
	}
	t.Fatalf("table %d not on board", tableID)
	return ""
}

const (
	timeout = 2 * time.Second
	tick    = 2 * time.Millisecond
)
