package services

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount the way the till shows it: "₺12.50".
func FormatMoney(d decimal.Decimal) string {
	return "₺" + d.StringFixed(2)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
