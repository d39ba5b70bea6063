package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/services/production/domain"
)

// Status is the lifecycle state of a Production.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
)

// Limits on a production request.
const (
	MaxItems          = 100
	MaxItemQuantity   = 1_000_000
	MaxProductCodeLen = 50
)

// ProductionItem is one requested (product, quantity) pair. The product does
// not have to exist until the production is confirmed.
type ProductionItem struct {
	ProductCode string
	Quantity    int
}

// Production records a requested production run. It moves from PENDING to
// CONFIRMED exactly once and is immutable afterwards.
type Production struct {
	ID          uuid.UUID
	Status      Status
	CreatedAt   time.Time
	ConfirmedAt *time.Time
	Items       []ProductionItem
}

// NewProduction creates a PENDING production owning a copy of items.
func NewProduction(items []ProductionItem) (*Production, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	return &Production{
		ID:        uuid.New(),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Items:     append([]ProductionItem(nil), items...),
	}, nil
}

// ValidateItems checks a list of requested items. Errors wrap domain.ErrInvalidItems.
func ValidateItems(items []ProductionItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domain.ErrInvalidItems)
	}
	if len(items) > MaxItems {
		return fmt.Errorf("%w: at most %d items are allowed", domain.ErrInvalidItems, MaxItems)
	}
	for i, it := range items {
		switch {
		case it.ProductCode == "" || len(it.ProductCode) > MaxProductCodeLen:
			return fmt.Errorf("%w: items[%d].product_code must be 1 to %d characters",
				domain.ErrInvalidItems, i, MaxProductCodeLen)
		case it.Quantity < 1 || it.Quantity > MaxItemQuantity:
			return fmt.Errorf("%w: items[%d].quantity must be between 1 and %d",
				domain.ErrInvalidItems, i, MaxItemQuantity)
		}
	}
	return nil
}

// Confirm performs the PENDING -> CONFIRMED transition.
func (p *Production) Confirm(at time.Time) error {
	if p.Status != StatusPending {
		return fmt.Errorf("%w: production %s is %s", domain.ErrProductionNotPending, p.ID, p.Status)
	}
	at = at.UTC()
	p.Status = StatusConfirmed
	p.ConfirmedAt = &at
	return nil
}
