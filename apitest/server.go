// Package apitest runs an in-memory fake of the café POS REST API for tests. It applies
// the server's business rules (one open order per table, price snapshots, partial
// payments, token expiry) closely enough to exercise the client end to end.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"kafe-pos/models"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Route names accepted by Hits, FailNext and Hold.
const (
	RouteLogin          = "login"
	RouteRefresh        = "refresh"
	RouteListTables     = "list tables"
	RouteListOpenOrders = "list open orders"
	RouteGetOrder       = "get order"
	RouteCreateOrder    = "create order"
	RouteAddItem        = "add item"
	RouteUpdateItem     = "update item"
	RouteDeleteItem     = "delete item"
	RouteListCategories = "list categories"
	RouteCreateCategory = "create category"
	RouteDeleteCategory = "delete category"
	RouteListProducts   = "list products"
	RouteCreateProduct  = "create product"
	RouteUpdateProduct  = "update product"
	RouteDeleteProduct  = "delete product"
	RouteCreatePayment  = "create payment"
	RouteDailyReport    = "daily report"
	RouteMonthlyReport  = "monthly report"
)

type order struct {
	id       int64
	table    int64
	items    []models.OrderItem
	payments []models.Payment
	paid     bool
	created  time.Time
}

type failure struct {
	status int
	body   string
}

// Server is the fake API. Use URL() as the client's base URL.
type Server struct {
	srv *httptest.Server

	mu sync.Mutex

	// Paginate wraps every list response in {"count": n, "results": [...]}.
	Paginate bool
	// Today is the date payments are booked on; reports filter by it.
	Today string

	users    map[string]string
	access   map[string]bool
	refresh  map[string]bool
	tokenSeq int

	nextID     int64
	tables     []models.Table
	categories []models.Category
	products   []models.Product
	orders     map[int64]*order

	hits  map[string]int
	fails map[string][]failure
	holds map[string]chan struct{}
}

// New starts a fake server with one user "kasa"/"1234".
func New() *Server {
	s := &Server{
		Today:   time.Now().Format("2006-01-02"),
		users:   map[string]string{"kasa": "1234"},
		access:  make(map[string]bool),
		refresh: make(map[string]bool),
		orders:  make(map[int64]*order),
		hits:    make(map[string]int),
		fails:   make(map[string][]failure),
		holds:   make(map[string]chan struct{}),
	}
	s.srv = httptest.NewServer(s.router())
	return s
}

func (s *Server) Close() { s.srv.Close() }

// URL is the API base URL, including the /api/ prefix.
func (s *Server) URL() string { return s.srv.URL + "/api/" }

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.track)

	api.HandleFunc("/auth/login/", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/auth/refresh/", s.handleRefresh).Methods(http.MethodPost).Name(RouteRefresh)

	api.HandleFunc("/tables/", s.authed(s.handleListTables)).Methods(http.MethodGet).Name(RouteListTables)

	api.HandleFunc("/orders/open/", s.authed(s.handleOpenOrders)).Methods(http.MethodGet).Name(RouteListOpenOrders)
	api.HandleFunc("/orders/{id:[0-9]+}/", s.authed(s.handleGetOrder)).Methods(http.MethodGet).Name(RouteGetOrder)
	api.HandleFunc("/orders/", s.authed(s.handleCreateOrder)).Methods(http.MethodPost).Name(RouteCreateOrder)

	api.HandleFunc("/order-items/", s.authed(s.handleAddItem)).Methods(http.MethodPost).Name(RouteAddItem)
	api.HandleFunc("/order-items/{id:[0-9]+}/", s.authed(s.handleUpdateItem)).Methods(http.MethodPatch).Name(RouteUpdateItem)
	api.HandleFunc("/order-items/{id:[0-9]+}/", s.authed(s.handleDeleteItem)).Methods(http.MethodDelete).Name(RouteDeleteItem)

	api.HandleFunc("/categories/", s.authed(s.handleListCategories)).Methods(http.MethodGet).Name(RouteListCategories)
	api.HandleFunc("/categories/", s.authed(s.handleCreateCategory)).Methods(http.MethodPost).Name(RouteCreateCategory)
	api.HandleFunc("/categories/{id:[0-9]+}/", s.authed(s.handleDeleteCategory)).Methods(http.MethodDelete).Name(RouteDeleteCategory)

	api.HandleFunc("/products/", s.authed(s.handleListProducts)).Methods(http.MethodGet).Name(RouteListProducts)
	api.HandleFunc("/products/", s.authed(s.handleCreateProduct)).Methods(http.MethodPost).Name(RouteCreateProduct)
	api.HandleFunc("/products/{id:[0-9]+}/", s.authed(s.handleUpdateProduct)).Methods(http.MethodPatch).Name(RouteUpdateProduct)
	api.HandleFunc("/products/{id:[0-9]+}/", s.authed(s.handleDeleteProduct)).Methods(http.MethodDelete).Name(RouteDeleteProduct)

	api.HandleFunc("/payments/", s.authed(s.handleCreatePayment)).Methods(http.MethodPost).Name(RouteCreatePayment)

	api.HandleFunc("/reports/daily/", s.authed(s.handleDailyReport)).Methods(http.MethodGet).Name(RouteDailyReport)
	api.HandleFunc("/reports/monthly/", s.authed(s.handleMonthlyReport)).Methods(http.MethodGet).Name(RouteMonthlyReport)
	return r
}

// track counts hits, applies injected failures and holds.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		s.mu.Lock()
		s.hits[name]++
		hold := s.holds[name]
		s.mu.Unlock()

		if hold != nil {
			<-hold
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		ok := s.access[token]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		if s.popFailure(w, r) {
			return
		}
		h(w, r)
	}
}

func (s *Server) popFailure(w http.ResponseWriter, r *http.Request) bool {
	route := mux.CurrentRoute(r)
	if route == nil {
		return false
	}
	name := route.GetName()
	s.mu.Lock()
	queue := s.fails[name]
	if len(queue) == 0 {
		s.mu.Unlock()
		return false
	}
	f := queue[0]
	s.fails[name] = queue[1:]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
	return true
}

// Hits returns how many requests reached route (including rejected ones).
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// FailNext makes the next authenticated request to route answer with status and body.
func (s *Server) FailNext(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[route] = append(s.fails[route], failure{status: status, body: body})
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// ExpireAccessTokens invalidates every issued access token; refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]bool)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]bool)
}

// IssueSession returns a valid token pair without going through /auth/login/.
func (s *Server) IssueSession() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(true)
}

func (s *Server) issueLocked(withRefresh bool) (access, refresh string) {
	s.tokenSeq++
	access = fmt.Sprintf("access-%d", s.tokenSeq)
	s.access[access] = true
	if withRefresh {
		refresh = fmt.Sprintf("refresh-%d", s.tokenSeq)
		s.refresh[refresh] = true
	}
	return access, refresh
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) AddTable(number int, tableType string) models.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := models.Table{ID: s.id(), Number: number, Type: tableType, Status: models.TableStatusFree}
	s.tables = append(s.tables, t)
	return t
}

func (s *Server) AddCategory(name string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Category{ID: s.id(), Name: name, Order: len(s.categories) + 1}
	s.categories = append(s.categories, c)
	return c
}

func (s *Server) AddProduct(name, price string, categoryID int64, active bool) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{ID: s.id(), Name: name, Price: decimal.RequireFromString(price), Category: categoryID, IsActive: active}
	s.products = append(s.products, p)
	return p
}

// Order returns the server's current view of an order.
func (s *Server) Order(id int64) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return o.view(), true
}

// OrderCount returns the number of orders ever created for tableID.
func (s *Server) OrderCount(tableID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.orders {
		if o.table == tableID {
			n++
		}
	}
	return n
}

func (o *order) total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.items {
		sum = sum.Add(it.PriceAtOrder.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func (o *order) amountPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range o.payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func (o *order) view() models.Order {
	items := make([]models.OrderItem, len(o.items))
	copy(items, o.items)
	total := o.total()
	paid := o.amountPaid()
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return models.Order{
		ID:               o.id,
		Table:            o.table,
		Items:            items,
		TotalAmount:      total,
		AmountPaid:       paid,
		RemainingBalance: decimal.NewNullDecimal(remaining),
		IsPaid:           o.paid,
	}
}

func (s *Server) openOrderForTable(tableID int64) *order {
	for _, o := range s.orders {
		if o.table == tableID && !o.paid {
			return o
		}
	}
	return nil
}

func (s *Server) findItem(itemID int64) (*order, int) {
	for _, o := range s.orders {
		for i := range o.items {
			if o.items[i].ID == itemID {
				return o, i
			}
		}
	}
	return nil, -1
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[in.Username]; !ok || pw != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	access, refresh := s.issueLocked(true)
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refresh[in.Refresh] {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	access, _ := s.issueLocked(false)
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleListTables(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]models.Table, len(s.tables))
	for i, t := range s.tables {
		if s.openOrderForTable(t.ID) != nil {
			t.Status = models.TableStatusOccupied
		} else {
			t.Status = models.TableStatusFree
		}
		out[i] = t
	}
	s.mu.Unlock()
	s.writeList(w, out, len(out))
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	var out []models.Order
	for _, o := range s.orders {
		if !o.paid {
			out = append(out, o.view())
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if out == nil {
		out = []models.Order{}
	}
	s.writeList(w, out, len(out))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	o, ok := s.orders[id]
	var v models.Order
	if ok {
		v = o.view()
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var in models.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Table == 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"table": {"This field is required."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	known := false
	for _, t := range s.tables {
		if t.ID == in.Table {
			known = true
		}
	}
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"table": {"Invalid pk - object does not exist."}})
		return
	}
	if s.openOrderForTable(in.Table) != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"table": {"This table already has an open order."}})
		return
	}
	o := &order{id: s.id(), table: in.Table, created: time.Now()}
	s.orders[o.id] = o
	writeJSON(w, http.StatusCreated, o.view())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var in models.AddOrderItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[in.Order]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"order": {"Invalid pk - object does not exist."}})
		return
	}
	if o.paid {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"order": {"Order is already paid."}})
		return
	}
	if in.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"quantity": {"Ensure this value is greater than or equal to 1."}})
		return
	}
	var prod *models.Product
	for i := range s.products {
		if s.products[i].ID == in.Product {
			prod = &s.products[i]
		}
	}
	if prod == nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"product": {"Invalid pk - object does not exist."}})
		return
	}
	it := models.OrderItem{
		ID:           s.id(),
		Order:        o.id,
		Product:      prod.ID,
		ProductName:  prod.Name,
		PriceAtOrder: prod.Price,
		Quantity:     in.Quantity,
	}
	o.items = append(o.items, it)
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, i := s.findItem(pathID(r))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if o.paid {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"order": {"Order is already paid."}})
		return
	}
	if in.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"quantity": {"Ensure this value is greater than or equal to 1."}})
		return
	}
	o.items[i].Quantity = in.Quantity
	writeJSON(w, http.StatusOK, o.items[i])
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, i := s.findItem(pathID(r))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if o.paid {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"order": {"Order is already paid."}})
		return
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	s.writeList(w, out, len(out))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Category{ID: s.id(), Name: in.Name, Order: in.Order}
	s.categories = append(s.categories, c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Category == id {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cannot delete some instances of model 'Category' because they are referenced through protected foreign keys."})
			return
		}
	}
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	s.mu.Lock()
	var out []models.Product
	for _, p := range s.products {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	s.mu.Unlock()
	if out == nil {
		out = []models.Product{}
	}
	s.writeList(w, out, len(out))
}

func (s *Server) decodeProduct(w http.ResponseWriter, r *http.Request) (models.ProductInput, decimal.Decimal, bool) {
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return in, decimal.Zero, false
	}
	if strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return in, decimal.Zero, false
	}
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"price": {"A valid number is required."}})
		return in, decimal.Zero, false
	}
	return in, price, true
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	in, price, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{ID: s.id(), Name: in.Name, Price: price, Category: in.Category, IsActive: true}
	s.products = append(s.products, p)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	in, price, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].Name = in.Name
			s.products[i].Price = price
			s.products[i].Category = in.Category
			writeJSON(w, http.StatusOK, s.products[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var in models.CreatePaymentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"amount": {"Ensure this value is greater than 0."}})
		return
	}
	if !models.ValidPaymentMethod(in.Method) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"payment_method": {fmt.Sprintf("\"%s\" is not a valid choice.", in.Method)}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[in.Order]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"order": {"Invalid pk - object does not exist."}})
		return
	}
	if o.paid {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"order": {"Order is already paid."}})
		return
	}
	p := models.Payment{ID: s.id(), Order: o.id, Amount: amount, Method: in.Method}
	o.payments = append(o.payments, p)
	if !o.amountPaid().LessThan(o.total()) {
		o.paid = true
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) report() models.Report {
	rep := models.Report{}
	types := make(map[int64]string, len(s.tables))
	for _, t := range s.tables {
		types[t.ID] = t.Type
	}
	for _, o := range s.orders {
		if len(o.payments) > 0 {
			rep.OrderCount++
		}
		for _, p := range o.payments {
			rep.TotalRevenue = rep.TotalRevenue.Add(p.Amount)
			switch types[o.table] {
			case models.TableTypeGuest:
				rep.GuestRevenue = rep.GuestRevenue.Add(p.Amount)
			case models.TableTypeDelivery:
				rep.DeliveryRevenue = rep.DeliveryRevenue.Add(p.Amount)
			default:
				rep.SalonRevenue = rep.SalonRevenue.Add(p.Amount)
			}
			if p.Method == models.PaymentCard {
				rep.CardRevenue = rep.CardRevenue.Add(p.Amount)
			} else {
				rep.CashRevenue = rep.CashRevenue.Add(p.Amount)
			}
		}
	}
	return rep
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"date": {"Date has wrong format. Use YYYY-MM-DD."}})
		return
	}
	s.mu.Lock()
	rep := models.Report{}
	if date == s.Today {
		rep = s.report()
	}
	s.mu.Unlock()
	rep.Date = date
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, yerr := strconv.Atoi(r.URL.Query().Get("year"))
	month, merr := strconv.Atoi(r.URL.Query().Get("month"))
	if yerr != nil || merr != nil || month < 1 || month > 12 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "year and month are required"})
		return
	}
	s.mu.Lock()
	rep := models.Report{}
	if strings.HasPrefix(s.Today, fmt.Sprintf("%04d-%02d", year, month)) {
		rep = s.report()
	}
	s.mu.Unlock()
	rep.Year, rep.Month = year, month
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) writeList(w http.ResponseWriter, list interface{}, n int) {
	s.mu.Lock()
	paginate := s.Paginate
	s.mu.Unlock()
	if paginate {
		writeJSON(w, http.StatusOK, map[string]interface{}{"count": n, "next": nil, "previous": nil, "results": list})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
