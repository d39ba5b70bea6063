package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item with a unit value. Code is assigned once by the
// repository on insert and never changes afterwards.
type Product struct {
	Code      string
	Name      Name
	Value     decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct constructs a Product without a code.
func NewProduct(name string, value decimal.Decimal) (*Product, error) {
	n, err := NewName(name)
	if err != nil {
		return nil, err
	}
	if err := checkAmount("value", value, true); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Product{Name: n, Value: value, CreatedAt: now, UpdatedAt: now}, nil
}

// Apply sets the non-nil fields of a partial update.
func (p *Product) Apply(name *string, value *decimal.Decimal) error {
	if name != nil {
		n, err := NewName(*name)
		if err != nil {
			return err
		}
		p.Name = n
	}
	if value != nil {
		if err := checkAmount("value", *value, true); err != nil {
			return err
		}
		p.Value = *value
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
