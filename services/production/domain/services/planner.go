// Package services contains stateless domain services for the production
// bounded context.
package services

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/production/domain/models"
)

// PlanProduction is the greedy value-first allocator. Products are visited
// by unit value, highest first, with ties kept in the given order. Each
// product gets the largest whole quantity its recipe allows from the stock
// that earlier products have not already claimed. Products without a recipe
// or with a zero producible quantity are left out.
//
// The inputs are not modified.
func PlanProduction(products []models.Product, materials []models.RawMaterial, lines []models.RecipeLine) models.Plan {
	stock := make(map[string]decimal.Decimal, len(materials))
	for _, m := range materials {
		stock[m.Code] = m.StockQuantity
	}

	recipes := make(map[string][]models.RecipeLine)
	for _, l := range lines {
		recipes[l.ProductCode] = append(recipes[l.ProductCode], l)
	}

	ordered := slices.Clone(products)
	slices.SortStableFunc(ordered, func(a, b models.Product) int {
		return b.Value.Cmp(a.Value)
	})

	consumed := make(map[string]decimal.Decimal, len(materials))
	plan := models.Plan{Suggestions: []models.Suggestion{}, GrandTotal: decimal.Zero}

	for _, p := range ordered {
		recipe := recipes[p.Code]
		if len(recipe) == 0 {
			continue
		}

		units := producible(recipe, stock, consumed)
		if units <= 0 {
			continue
		}

		n := decimal.NewFromInt(units)
		for _, l := range recipe {
			consumed[l.RawMaterialCode] = consumed[l.RawMaterialCode].Add(l.Quantity.Mul(n))
		}

		total := p.Value.Mul(n)
		plan.Suggestions = append(plan.Suggestions, models.Suggestion{
			ProductCode: p.Code,
			ProductName: p.Name,
			UnitValue:   p.Value,
			Quantity:    units,
			TotalValue:  total,
		})
		plan.GrandTotal = plan.GrandTotal.Add(total)
	}

	return plan
}

// producible returns the minimum whole number of units over the recipe lines.
// It stops at the first line that leaves nothing to produce.
func producible(recipe []models.RecipeLine, stock, consumed map[string]decimal.Decimal) int64 {
	units := int64(-1)
	for _, l := range recipe {
		remaining := stock[l.RawMaterialCode].Sub(consumed[l.RawMaterialCode])
		if !remaining.IsPositive() || !l.Quantity.IsPositive() {
			return 0
		}
		// Precision 0 truncates; both operands are positive so this is floor.
		q, _ := remaining.QuoRem(l.Quantity, 0)
		n := q.IntPart()
		if units < 0 || n < units {
			units = n
		}
		if units == 0 {
			return 0
		}
	}
	return units
}
