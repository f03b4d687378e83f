package models

import "github.com/shopspring/decimal"

// Report is the daily or monthly revenue aggregate computed by the server.
// Channel buckets split revenue by table type; method buckets by payment method.
type Report struct {
	Date            string          `json:"date,omitempty"`
	Year            int             `json:"year,omitempty"`
	Month           int             `json:"month,omitempty"`
	OrderCount      int             `json:"order_count"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	SalonRevenue    decimal.Decimal `json:"salon_revenue"`
	GuestRevenue    decimal.Decimal `json:"guest_revenue"`
	DeliveryRevenue decimal.Decimal `json:"delivery_revenue"`
	CashRevenue     decimal.Decimal `json:"cash_revenue"`
	CardRevenue     decimal.Decimal `json:"card_revenue"`
}
