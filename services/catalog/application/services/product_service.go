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

// ProductService orchestrates Product CRUD.
// Event publishing is handled by the repository layer (outbox pattern).
// Single-product reads are served from Redis when available.
type ProductService struct {
	repo    repositories.ProductRepository
	cache   ReadCache
	metrics *telemetry.Metrics
	log     logger.Logger
}

// NewProductService returns a ProductService. readCache and metrics may be nil.
func NewProductService(repo repositories.ProductRepository, readCache ReadCache, metrics *telemetry.Metrics, log logger.Logger) *ProductService {
	return &ProductService{repo: repo, cache: readCache, metrics: metrics, log: log}
}

// Create validates and persists a Product. The repository assigns its code.
func (s *ProductService) Create(ctx context.Context, name string, value decimal.Decimal) (*models.Product, error) {
	p, err := models.NewProduct(name, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidProduct, err)
	}
	if err := domainsvcs.ValidateProduct(p); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidProduct, err)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}

	s.metrics.CatalogChanged(ctx, events.EntityProduct, events.ActionCreated)
	s.log.InfoContext(ctx, "product created", "code", p.Code)
	return p, nil
}

// Get retrieves a Product using a read-through cache:
//  1. Check Redis first.
//  2. On a miss (or cache error), query Postgres.
//  3. Warm the cache asynchronously with the Postgres result, fenced by the
//     generation read before step 2 so a concurrent invalidation wins.
func (s *ProductService) Get(ctx context.Context, code string) (*models.Product, error) {
	fence, fill := int64(0), false
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, code)
		if err == nil {
			return &models.Product{
				Code:      cached.Code,
				Name:      models.Name(cached.Name),
				Value:     cached.Value,
				Version:   cached.Version,
				CreatedAt: cached.CreatedAt,
				UpdatedAt: cached.UpdatedAt,
			}, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.WarnContext(ctx, "product cache read failed", "code", code, "error", err)
		}
		if fence, err = s.cache.Fence(ctx, cache.KindProduct, code); err == nil {
			fill = true
		}
	}

	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if fill {
		entry := &cache.CachedProduct{
			Code:      p.Code,
			Name:      p.Name.String(),
			Value:     p.Value,
			Version:   p.Version,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		go func(ctx context.Context) {
			written, err := s.cache.SetProduct(ctx, entry, fence)
			switch {
			case err != nil:
				s.log.WarnContext(ctx, "product cache write failed", "code", entry.Code, "error", err)
			case !written:
				s.log.DebugContext(ctx, "product cache fill superseded", "code", entry.Code)
			}
		}(context.WithoutCancel(ctx))
	}
	return p, nil
}

// List returns one page of products plus the total count.
func (s *ProductService) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.Product, int, error) {
	ps, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return ps, total, nil
}

// Update applies a partial update. Nil fields are left unchanged.
func (s *ProductService) Update(ctx context.Context, code string, name *string, value *decimal.Decimal) (*models.Product, error) {
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := p.Apply(name, value); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidProduct, err)
	}
	if err := domainsvcs.ValidateProduct(p); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidProduct, err)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidate(ctx, code)
	s.metrics.CatalogChanged(ctx, events.EntityProduct, events.ActionUpdated)
	return p, nil
}

// Delete removes a Product together with its recipe lines.
func (s *ProductService) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx, code)
	s.metrics.CatalogChanged(ctx, events.EntityProduct, events.ActionDeleted)
	s.log.InfoContext(ctx, "product deleted", "code", code)
	return nil
}

// invalidate drops the cached entry; the worker repeats this when it sees
// the catalog.changed event, so a failure here is only logged.
func (s *ProductService) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KindProduct, code); err != nil {
		s.log.WarnContext(ctx, "product cache invalidation failed", "code", code, "error", err)
	}
}
