package models

import "github.com/shopspring/decimal"

// Suggestion is how many units of a product the planner proposes to make.
type Suggestion struct {
	ProductCode string
	ProductName string
	UnitValue   decimal.Decimal
	Quantity    int64
	TotalValue  decimal.Decimal
}

// Plan is the ordered planner output. Suggestions are sorted by unit value,
// highest first.
type Plan struct {
	Suggestions []Suggestion
	GrandTotal  decimal.Decimal
}
