package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kafe-pos/api"
	"kafe-pos/apitest"
	"kafe-pos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(t *testing.T, srv *apitest.Server) *api.Conn {
	t.Helper()
	client, err := api.New(api.Config{BaseURL: srv.URL(), Timeout: 2 * time.Second})
	require.NoError(t, err)
	conn := client.Connect(nil)
	require.NoError(t, conn.Login(context.Background(), "kasa", "1234"))
	return conn
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/api/"} {
		_, err := api.New(api.Config{BaseURL: raw})
		assert.Error(t, err, raw)
	}

	c, err := api.New(api.Config{BaseURL: "https://example.com/api"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api/", c.BaseURL())
}

func TestLoginFailureKeepsConnLoggedOut(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	client, err := api.New(api.Config{BaseURL: srv.URL()})
	require.NoError(t, err)
	conn := client.Connect(nil)

	err = conn.Login(context.Background(), "kasa", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", api.Message(err))
	assert.False(t, conn.LoggedIn())

	_, err = conn.ListTables(context.Background())
	assert.ErrorIs(t, err, api.ErrNotLoggedIn)
}

func TestExpiredAccessTokenRefreshesOnceAndReplays(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	srv.AddTable(1, models.TableTypeRegular)
	conn := newConn(t, srv)
	before := conn.Session()

	srv.ExpireAccessTokens()
	tables, err := conn.ListTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	assert.Equal(t, 1, srv.Hits(apitest.RouteRefresh))
	assert.Equal(t, 2, srv.Hits(apitest.RouteListTables))
	after := conn.Session()
	require.NotNil(t, after)
	assert.NotEqual(t, before.Access, after.Access)
	assert.Equal(t, before.Refresh, after.Refresh)
}

func TestFailedRefreshClearsSession(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	conn := newConn(t, srv)

	srv.ExpireAccessTokens()
	srv.RevokeRefreshTokens()
	_, err := conn.ListTables(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrSessionExpired)
	assert.False(t, conn.LoggedIn())
	assert.Equal(t, 1, srv.Hits(apitest.RouteRefresh))
	assert.Equal(t, 1, srv.Hits(apitest.RouteListTables))

	_, err = conn.ListTables(context.Background())
	assert.ErrorIs(t, err, api.ErrNotLoggedIn)
	assert.Equal(t, 1, srv.Hits(apitest.RouteListTables))
}

func TestSecond401AfterReplayClearsSession(t *testing.T) {
	var tablesHits, refreshHits int
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/refresh/":
			refreshHits++
			_, _ = w.Write([]byte(`{"access":"fresh"}`))
		case "/api/tables/":
			tablesHits++
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
		}
	}))
	defer ts.Close()

	client, err := api.New(api.Config{BaseURL: ts.URL + "/api/"})
	require.NoError(t, err)
	conn := client.Connect(&api.Session{Access: "stale", Refresh: "r"})

	_, err = conn.ListTables(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrSessionExpired)
	assert.Equal(t, "Given token not valid for any token type", api.Message(err))
	assert.False(t, conn.LoggedIn())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, refreshHits)
	assert.Equal(t, 2, tablesHits)
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	conn := newConn(t, srv)
	srv.ExpireAccessTokens()

	release := srv.Hold(apitest.RouteRefresh)
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = conn.ListCategories(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool { return srv.Hits(apitest.RouteListCategories) == 4 }, time.Second, 5*time.Millisecond)
	release()
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, srv.Hits(apitest.RouteRefresh))
}

func TestErrorNormalization(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"field list", 400, `{"name":["This field is required."],"price":["bad"]}`, "This field is required."},
		{"detail", 400, `{"detail":"Cannot delete category"}`, "Cannot delete category"},
		{"bare list", 400, `["first","second"]`, "first"},
		{"json string", 400, `"plain"`, "plain"},
		{"html", 500, `<h1>Server Error</h1>`, "<h1>Server Error</h1>"},
		{"nested object", 400, `{"items":{"0":"x"}}`, `{"items":{"0":"x"}}`},
		{"empty body", 502, ``, api.UnreachableMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := apitest.New()
			defer srv.Close()
			conn := newConn(t, srv)

			srv.FailNext(apitest.RouteListTables, tc.status, tc.body)
			_, err := conn.ListTables(context.Background())
			require.Error(t, err)

			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.want, api.Message(err))
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL + "/api/"
	ts.Close()

	client, err := api.New(api.Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	conn := client.Connect(&api.Session{Access: "a", Refresh: "r"})

	_, err = conn.ListTables(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnreachable)
	assert.Equal(t, api.UnreachableMessage, api.Message(err))
	assert.True(t, conn.LoggedIn())
}

func TestListsAcceptBareAndPaginated(t *testing.T) {
	for _, paginate := range []bool{false, true} {
		srv := apitest.New()
		srv.Paginate = paginate
		cat := srv.AddCategory("Sıcak")
		srv.AddProduct("Çay", "20.00", cat.ID, true)
		srv.AddProduct("Salep", "45.00", cat.ID, false)
		conn := newConn(t, srv)

		all, err := conn.ListProducts(context.Background(), models.ProductFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := conn.ListProducts(context.Background(), models.ProductFilter{ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "Çay", active[0].Name)
		assert.Equal(t, "20", active[0].Price.String())
		srv.Close()
	}
}

func TestGetOrderWithoutIDSendsNothing(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	conn := newConn(t, srv)

	_, err := conn.GetOrder(context.Background(), 0)
	assert.ErrorIs(t, err, api.ErrInvalidID)
	assert.Equal(t, 0, srv.Hits(apitest.RouteGetOrder))
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	table := srv.AddTable(3, models.TableTypeRegular)
	cat := srv.AddCategory("İçecek")
	tea := srv.AddProduct("Çay", "50.00", cat.ID, true)
	conn := newConn(t, srv)
	ctx := context.Background()

	order, err := conn.CreateOrder(ctx, table.ID)
	require.NoError(t, err)

	_, err = conn.CreateOrder(ctx, table.ID)
	require.Error(t, err)
	assert.Equal(t, "This table already has an open order.", api.Message(err))

	item, err := conn.AddOrderItem(ctx, order.ID, tea.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "50", item.PriceAtOrder.String())

	_, err = conn.CreatePayment(ctx, models.CreatePaymentInput{Order: order.ID, Amount: "40.00", Method: models.PaymentCash})
	require.NoError(t, err)
	got, err := conn.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
	assert.Equal(t, "60", got.Remaining().String())

	_, err = conn.CreatePayment(ctx, models.CreatePaymentInput{Order: order.ID, Amount: "60.00", Method: models.PaymentCard})
	require.NoError(t, err)
	got, err = conn.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.True(t, got.Remaining().IsZero())

	open, err := conn.ListOpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	rep, err := conn.DailyReport(ctx, srv.Today)
	require.NoError(t, err)
	assert.Equal(t, "100", rep.TotalRevenue.String())
	assert.Equal(t, "40", rep.CashRevenue.String())
	assert.Equal(t, "60", rep.CardRevenue.String())
	assert.Equal(t, "100", rep.SalonRevenue.String())
}

func TestPDFURLs(t *testing.T) {
	c, err := api.New(api.Config{BaseURL: "https://pos.example/api/"})
	require.NoError(t, err)
	assert.Equal(t, "https://pos.example/api/reports/daily-pdf/?date=2026-01-05", c.DailyPDFURL("2026-01-05"))
	assert.Equal(t, "https://pos.example/api/reports/monthly-pdf/?month=1&year=2026", c.MonthlyPDFURL(2026, 1))
}
