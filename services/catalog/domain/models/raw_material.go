package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMaterial is a consumable stock item. Version increments on every
// persisted change and guards stock writes against lost updates.
type RawMaterial struct {
	Code          string
	Name          Name
	StockQuantity decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRawMaterial constructs a RawMaterial without a code.
func NewRawMaterial(name string, stock decimal.Decimal) (*RawMaterial, error) {
	n, err := NewName(name)
	if err != nil {
		return nil, err
	}
	if err := checkAmount("stock_quantity", stock, false); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &RawMaterial{Name: n, StockQuantity: stock, CreatedAt: now, UpdatedAt: now}, nil
}

// Apply sets the non-nil fields of a partial update.
func (m *RawMaterial) Apply(name *string, stock *decimal.Decimal) error {
	if name != nil {
		n, err := NewName(*name)
		if err != nil {
			return err
		}
		m.Name = n
	}
	if stock != nil {
		if err := checkAmount("stock_quantity", *stock, false); err != nil {
			return err
		}
		m.StockQuantity = *stock
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}
