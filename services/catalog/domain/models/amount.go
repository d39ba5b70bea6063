package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(10,2).
const amountScale = 2

var (
	maxAmount = decimal.RequireFromString("99999999.99")
	minAmount = decimal.RequireFromString("0.01")
)

// checkAmount validates d against the column precision. When positive is set
// d must be at least 0.01, otherwise it must not be negative.
func checkAmount(field string, d decimal.Decimal, positive bool) error {
	switch {
	case positive && d.LessThan(minAmount):
		return fmt.Errorf("%s must be at least %s", field, minAmount)
	case !positive && d.IsNegative():
		return fmt.Errorf("%s must be zero or positive", field)
	case d.GreaterThan(maxAmount):
		return fmt.Errorf("%s must not exceed %s", field, maxAmount)
	case !d.Equal(d.Round(amountScale)):
		return fmt.Errorf("%s must have at most %d decimal places", field, amountScale)
	}
	return nil
}
