package models

import "github.com/shopspring/decimal"

// RecipeLine states how much of a raw material one unit of a product consumes.
// There is at most one line per (ProductCode, RawMaterialCode) pair.
type RecipeLine struct {
	ProductCode     string
	RawMaterialCode string
	Quantity        decimal.Decimal

	// Denormalized for read responses; not persisted on the line.
	ProductName     string
	RawMaterialName string
}

// NewRecipeLine constructs a RecipeLine with a positive per-unit quantity.
func NewRecipeLine(productCode, rawMaterialCode string, quantity decimal.Decimal) (*RecipeLine, error) {
	if err := checkAmount("quantity", quantity, true); err != nil {
		return nil, err
	}
	return &RecipeLine{
		ProductCode:     productCode,
		RawMaterialCode: rawMaterialCode,
		Quantity:        quantity,
	}, nil
}

// SetQuantity replaces the per-unit quantity.
func (l *RecipeLine) SetQuantity(quantity decimal.Decimal) error {
	if err := checkAmount("quantity", quantity, true); err != nil {
		return err
	}
	l.Quantity = quantity
	return nil
}
