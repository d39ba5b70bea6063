package models

import (
	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/production/domain"
)

// Product is the read model of a catalog product used for planning and confirmation.
type Product struct {
	Code  string
	Name  string
	Value decimal.Decimal
}

// RawMaterial is a stock row as seen inside a locking transaction.
type RawMaterial struct {
	Code          string
	Name          string
	StockQuantity decimal.Decimal
	Version       int64
}

// Deduct lowers the stock by required, or returns *domain.InsufficientStockError
// without changing anything when the stock cannot cover it.
func (m *RawMaterial) Deduct(required decimal.Decimal) error {
	if required.GreaterThan(m.StockQuantity) {
		return &domain.InsufficientStockError{
			RawMaterialCode: m.Code,
			Available:       m.StockQuantity,
			Required:        required,
		}
	}
	m.StockQuantity = m.StockQuantity.Sub(required)
	return nil
}

// RecipeLine is how much of a raw material one unit of a product consumes.
type RecipeLine struct {
	ProductCode     string
	RawMaterialCode string
	Quantity        decimal.Decimal
}
