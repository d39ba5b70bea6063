package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/cache"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/telemetry"
	"github.com/autoflex-io/inventory/services/catalog/domain"
	"github.com/autoflex-io/inventory/services/catalog/domain/events"
	"github.com/autoflex-io/inventory/services/catalog/domain/models"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
	domainsvcs "github.com/autoflex-io/inventory/services/catalog/domain/services"
)

// RawMaterialService orchestrates RawMaterial CRUD.
type RawMaterialService struct {
	repo    repositories.RawMaterialRepository
	cache   ReadCache
	metrics *telemetry.Metrics
	log     logger.Logger
}

// NewRawMaterialService returns a RawMaterialService. readCache and metrics may be nil.
func NewRawMaterialService(repo repositories.RawMaterialRepository, readCache ReadCache, metrics *telemetry.Metrics, log logger.Logger) *RawMaterialService {
	return &RawMaterialService{repo: repo, cache: readCache, metrics: metrics, log: log}
}

// Create validates and persists a RawMaterial. The repository assigns its code.
func (s *RawMaterialService) Create(ctx context.Context, name string, stock decimal.Decimal) (*models.RawMaterial, error) {
	m, err := models.NewRawMaterial(name, stock)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRawMaterial, err)
	}
	if err := domainsvcs.ValidateRawMaterial(m); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRawMaterial, err)
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("save raw material: %w", err)
	}

	s.metrics.CatalogChanged(ctx, events.EntityRawMaterial, events.ActionCreated)
	s.log.InfoContext(ctx, "raw material created", "code", m.Code)
	return m, nil
}

// Get retrieves a RawMaterial through the Redis read cache. A miss is filled
// in the background, fenced so a concurrent invalidation wins.
func (s *RawMaterialService) Get(ctx context.Context, code string) (*models.RawMaterial, error) {
	fence, fill := int64(0), false
	if s.cache != nil {
		cached, err := s.cache.GetRawMaterial(ctx, code)
		if err == nil {
			return &models.RawMaterial{
				Code:          cached.Code,
				Name:          models.Name(cached.Name),
				StockQuantity: cached.StockQuantity,
				Version:       cached.Version,
				CreatedAt:     cached.CreatedAt,
				UpdatedAt:     cached.UpdatedAt,
			}, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "raw material cache read failed", "code", code, "error", err)
		}
		// The fence must be taken before the database read.
		if fence, err = s.cache.Fence(ctx, cache.KindRawMaterial, code); err == nil {
			fill = true
		}
	}

	m, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get raw material: %w", err)
	}

	if fill {
		entry := &cache.CachedRawMaterial{
			Code:          m.Code,
			Name:          m.Name.String(),
			StockQuantity: m.StockQuantity,
			Version:       m.Version,
			CreatedAt:     m.CreatedAt,
			UpdatedAt:     m.UpdatedAt,
		}
		go func(ctx context.Context) {
			written, err := s.cache.SetRawMaterial(ctx, entry, fence)
			switch {
			case err != nil:
				s.log.WarnContext(ctx, "raw material cache write failed", "code", entry.Code, "error", err)
			case !written:
				s.log.DebugContext(ctx, "raw material cache fill superseded", "code", entry.Code)
			}
		}(context.WithoutCancel(ctx))
	}
	return m, nil
}

// List returns one page of raw materials plus the total count.
func (s *RawMaterialService) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.RawMaterial, int, error) {
	ms, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list raw materials: %w", err)
	}
	return ms, total, nil
}

// Update applies a partial update. Setting the stock is a stock mutation:
// it bumps the version and fails with ErrStaleVersion if production
// consumed the material since it was read.
func (s *RawMaterialService) Update(ctx context.Context, code string, name *string, stock *decimal.Decimal) (*models.RawMaterial, error) {
	m, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get raw material: %w", err)
	}
	if err := m.Apply(name, stock); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRawMaterial, err)
	}
	if err := domainsvcs.ValidateRawMaterial(m); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRawMaterial, err)
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update raw material: %w", err)
	}

	s.invalidate(ctx, code)
	s.metrics.CatalogChanged(ctx, events.EntityRawMaterial, events.ActionUpdated)
	if stock != nil {
		s.log.InfoContext(ctx, "raw material stock set", "code", code, "stock_quantity", m.StockQuantity.String())
	}
	return m, nil
}

// Delete removes a RawMaterial together with the recipe lines using it.
func (s *RawMaterialService) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete raw material: %w", err)
	}
	s.invalidate(ctx, code)
	s.metrics.CatalogChanged(ctx, events.EntityRawMaterial, events.ActionDeleted)
	s.log.InfoContext(ctx, "raw material deleted", "code", code)
	return nil
}

func (s *RawMaterialService) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KindRawMaterial, code); err != nil {
		s.log.WarnContext(ctx, "raw material cache invalidation failed", "code", code, "error", err)
	}
}
