package models

import "github.com/shopspring/decimal"

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category int64           `json:"category"`
	IsActive bool            `json:"is_active"`
}

// ProductInput is the create/update payload. Price is sent as a two-decimal string.
type ProductInput struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category int64  `json:"category"`
}

type CategoryInput struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ProductFilter maps to GET /products/ query parameters.
type ProductFilter struct {
	ActiveOnly bool
}
