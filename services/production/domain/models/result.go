package models

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/production/domain"
)

// Consumption is stock taken from one raw material by a confirmed item.
type Consumption struct {
	RawMaterialCode string
	Quantity        decimal.Decimal
}

// ItemResult is the outcome of confirming one item. Err is nil on success.
type ItemResult struct {
	ProductCode string
	ProductName string
	Quantity    int
	TotalValue  decimal.Decimal
	Consumed    []Consumption
	Err         error
}

// Success reports whether the item's stock deduction committed.
func (r ItemResult) Success() bool {
	return r.Err == nil
}

const (
	successMessage  = "Production confirmed successfully"
	internalMessage = "unexpected error while confirming item"
)

// Message is the client-facing outcome text. Infrastructure errors are not exposed.
func (r ItemResult) Message() string {
	switch {
	case r.Err == nil:
		return successMessage
	case errors.Is(r.Err, domain.ErrConcurrencyConflict):
		return domain.ErrConcurrencyConflict.Error()
	case errors.Is(r.Err, domain.ErrInsufficientStock),
		errors.Is(r.Err, domain.ErrProductNotFound),
		errors.Is(r.Err, domain.ErrRecipeNotFound),
		errors.Is(r.Err, domain.ErrRawMaterialNotFound):
		return r.Err.Error()
	default:
		return internalMessage
	}
}

// FailureReason is a low-cardinality label for metrics and logs.
func (r ItemResult) FailureReason() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(r.Err, domain.ErrRecipeNotFound):
		return "recipe_not_found"
	case errors.Is(r.Err, domain.ErrRawMaterialNotFound):
		return "raw_material_not_found"
	case errors.Is(r.Err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(r.Err, domain.ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}

// Confirmation outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// ConfirmationResult aggregates the item results of one confirmation batch.
// TotalValue only counts successful items.
type ConfirmationResult struct {
	Items        []ItemResult
	TotalValue   decimal.Decimal
	SuccessCount int
	FailureCount int
}

// Add appends r and updates the totals.
func (c *ConfirmationResult) Add(r ItemResult) {
	c.Items = append(c.Items, r)
	if r.Success() {
		c.SuccessCount++
		c.TotalValue = c.TotalValue.Add(r.TotalValue)
		return
	}
	c.FailureCount++
}

// Outcome is OutcomeOK when every item succeeded, OutcomeFailed when none
// did and OutcomePartial otherwise.
func (c *ConfirmationResult) Outcome() string {
	switch {
	case c.FailureCount == 0:
		return OutcomeOK
	case c.SuccessCount == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// ConsumedRawMaterials returns the distinct raw material codes whose stock
// changed, in first-seen order.
func (c *ConfirmationResult) ConsumedRawMaterials() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, it := range c.Items {
		for _, con := range it.Consumed {
			if _, ok := seen[con.RawMaterialCode]; ok {
				continue
			}
			seen[con.RawMaterialCode] = struct{}{}
			codes = append(codes, con.RawMaterialCode)
		}
	}
	return codes
}
