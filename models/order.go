package models

import "github.com/shopspring/decimal"

// Order is the server's view of a table's check. TotalAmount, AmountPaid and
// RemainingBalance are authoritative; the client never recomputes them.
type Order struct {
	ID               int64               `json:"id"`
	Table            int64               `json:"table"`
	Items            []OrderItem         `json:"items"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	AmountPaid       decimal.Decimal     `json:"amount_paid"`
	RemainingBalance decimal.NullDecimal `json:"remaining_balance"`
	IsPaid           bool                `json:"is_paid"`
}

// OrderItem is one line on an order. Quantity is always >= 1 while the line exists.
type OrderItem struct {
	ID           int64           `json:"id"`
	Order        int64           `json:"order"`
	Product      int64           `json:"product"`
	ProductName  string          `json:"product_name"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
	Quantity     int             `json:"quantity"`
}

// EmptyOrder is the local cart shell used before the first product is added.
func EmptyOrder(tableID int64) *Order {
	return &Order{Table: tableID, Items: []OrderItem{}}
}

// ItemByProduct returns the line item for productID, if any.
func (o Order) ItemByProduct(productID int64) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.Product == productID {
			return it, true
		}
	}
	return OrderItem{}, false
}

// ItemByID returns the line item with the given id, if any.
func (o Order) ItemByID(itemID int64) (OrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return OrderItem{}, false
}

// Remaining is the balance shown to staff: remaining_balance when the server sent one,
// otherwise the order total.
func (o Order) Remaining() decimal.Decimal {
	if o.RemainingBalance.Valid {
		return o.RemainingBalance.Decimal
	}
	return o.TotalAmount
}

type CreateOrderInput struct {
	Table int64 `json:"table"`
}

type AddOrderItemInput struct {
	Order    int64 `json:"order"`
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}
