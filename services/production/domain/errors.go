package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the production domain. Use errors.Is() to check these.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrRecipeNotFound      = errors.New("no raw materials associated with product")
	ErrRawMaterialNotFound = errors.New("raw material not found")
	ErrInsufficientStock   = errors.New("insufficient stock")

	// ErrConcurrencyConflict means the stock row was changed or held by another
	// transaction. The item can be retried.
	ErrConcurrencyConflict = errors.New("concurrency conflict detected: the stock was modified by another transaction, please try again")

	ErrProductionNotFound   = errors.New("production not found")
	ErrProductionNotPending = errors.New("production is not pending")
	ErrInvalidItems         = errors.New("invalid production items")
)

// InsufficientStockError reports the raw material that cannot cover a request.
// It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	RawMaterialCode string
	Available       decimal.Decimal
	Required        decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for raw material %s: required %s, available %s",
		e.RawMaterialCode, e.Required, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
