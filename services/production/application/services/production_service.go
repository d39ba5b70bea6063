package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/services/production/domain/events"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

// ProductionService manages the Production lifecycle. Confirmation delegates
// the stock work to the Coordinator.
type ProductionService struct {
	repo        repositories.ProductionRepository
	coordinator *Coordinator
	log         logger.Logger
}

// NewProductionService returns a ProductionService.
func NewProductionService(repo repositories.ProductionRepository, coordinator *Coordinator, log logger.Logger) *ProductionService {
	return &ProductionService{repo: repo, coordinator: coordinator, log: log}
}

// Create records a PENDING production with the requested items.
func (s *ProductionService) Create(ctx context.Context, items []models.ProductionItem) (*models.Production, error) {
	p, err := models.NewProduction(items)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("save production: %w", err)
	}
	s.log.InfoContext(ctx, "production created", "production_id", p.ID, "items", len(p.Items))
	return p, nil
}

// Get returns ErrProductionNotFound for an unknown id.
func (s *ProductionService) Get(ctx context.Context, id uuid.UUID) (*models.Production, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get production: %w", err)
	}
	return p, nil
}

// List returns a page of productions, newest first, plus the total count.
func (s *ProductionService) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Production, int, error) {
	ps, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list productions: %w", err)
	}
	return ps, total, nil
}

// Confirm deducts stock for every item of a PENDING production and marks it
// CONFIRMED, even when some items fail. A production that is not PENDING is
// rejected with ErrProductionNotPending before any stock is touched.
func (s *ProductionService) Confirm(ctx context.Context, id uuid.UUID) (*models.Production, *models.ConfirmationResult, error) {
	log := s.log.With("production_id", id)

	var result *models.ConfirmationResult
	p, err := s.repo.Confirm(ctx, id, func(ctx context.Context, p *models.Production) (events.ProductionConfirmedEvent, error) {
		if err := p.Confirm(time.Now()); err != nil {
			return events.ProductionConfirmedEvent{}, err
		}
		result = s.coordinator.confirm(ctx, log, p.Items)
		return events.NewProductionConfirmedEvent(p, result), nil
	})
	if err != nil {
		if result != nil {
			// Items were processed but the status change did not commit.
			log.ErrorContext(ctx, "production status not saved after confirmation",
				"error", err,
				"success_count", result.SuccessCount,
				"failure_count", result.FailureCount,
			)
		}
		return nil, nil, fmt.Errorf("confirm production: %w", err)
	}

	log.InfoContext(ctx, "production confirmed",
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
		"total_value", result.TotalValue.String(),
	)
	return p, result, nil
}
