package services

import (
	"context"
	"fmt"

	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/telemetry"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
	domainsvcs "github.com/autoflex-io/inventory/services/production/domain/services"
)

// Planner computes production suggestions from a consistent stock snapshot.
type Planner struct {
	store   repositories.CatalogStore
	metrics *telemetry.Metrics
	log     logger.Logger
}

// NewPlanner returns a Planner. metrics may be nil.
func NewPlanner(store repositories.CatalogStore, metrics *telemetry.Metrics, log logger.Logger) *Planner {
	return &Planner{store: store, metrics: metrics, log: log}
}

// Suggestions locks every raw material (in code order, the same order the
// coordinator uses) so no confirmation can change stock mid-read, then runs
// the allocation. It only fails on infrastructure errors.
func (p *Planner) Suggestions(ctx context.Context) (*models.Plan, error) {
	var plan models.Plan
	err := p.store.WithinTx(ctx, func(ctx context.Context, tx repositories.CatalogTx) error {
		materials, err := tx.FindAllRawMaterialsForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("lock raw materials: %w", err)
		}
		products, err := tx.ListProducts(ctx)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		lines, err := tx.ListRecipeLines(ctx)
		if err != nil {
			return fmt.Errorf("list recipe lines: %w", err)
		}
		plan = domainsvcs.PlanProduction(products, materials, lines)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute suggestions: %w", err)
	}

	p.metrics.SuggestionsComputed(ctx)
	p.log.DebugContext(ctx, "production suggestions computed",
		"suggestions", len(plan.Suggestions),
		"grand_total", plan.GrandTotal.String(),
	)
	return &plan, nil
}
