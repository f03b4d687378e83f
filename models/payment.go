package models

import "github.com/shopspring/decimal"

const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

type Payment struct {
	ID     int64           `json:"id"`
	Order  int64           `json:"order"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method"`
}

// CreatePaymentInput is posted to /payments/. Amount is always formatted with two decimals.
type CreatePaymentInput struct {
	Order  int64  `json:"order"`
	Amount string `json:"amount"`
	Method string `json:"payment_method"`
}

func ValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard
}
