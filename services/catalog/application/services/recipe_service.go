package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/telemetry"
	"github.com/autoflex-io/inventory/services/catalog/domain"
	"github.com/autoflex-io/inventory/services/catalog/domain/events"
	"github.com/autoflex-io/inventory/services/catalog/domain/models"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
)

// RecipeService manages the raw materials a product consumes.
type RecipeService struct {
	recipes   repositories.RecipeRepository
	products  repositories.ProductRepository
	materials repositories.RawMaterialRepository
	metrics   *telemetry.Metrics
	log       logger.Logger
}

// NewRecipeService returns a RecipeService.
func NewRecipeService(
	recipes repositories.RecipeRepository,
	products repositories.ProductRepository,
	materials repositories.RawMaterialRepository,
	metrics *telemetry.Metrics,
	log logger.Logger,
) *RecipeService {
	return &RecipeService{recipes: recipes, products: products, materials: materials, metrics: metrics, log: log}
}

// List returns the product's recipe ordered by raw material code.
// Returns ErrProductNotFound for an unknown product.
func (s *RecipeService) List(ctx context.Context, productCode string) ([]*models.RecipeLine, error) {
	if _, err := s.products.GetByCode(ctx, productCode); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	lines, err := s.recipes.ListByProduct(ctx, productCode)
	if err != nil {
		return nil, fmt.Errorf("list recipe lines: %w", err)
	}
	return lines, nil
}

// Add links a raw material to a product. Both must exist and the pair must
// not be linked yet.
func (s *RecipeService) Add(ctx context.Context, productCode, rawMaterialCode string, quantity decimal.Decimal) (*models.RecipeLine, error) {
	l, err := models.NewRecipeLine(productCode, rawMaterialCode, quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecipeLine, err)
	}
	if _, err := s.products.GetByCode(ctx, productCode); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if _, err := s.materials.GetByCode(ctx, rawMaterialCode); err != nil {
		return nil, fmt.Errorf("get raw material: %w", err)
	}

	if err := s.recipes.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("save recipe line: %w", err)
	}

	s.metrics.CatalogChanged(ctx, events.EntityRecipeLine, events.ActionCreated)
	return s.recipes.Get(ctx, productCode, rawMaterialCode)
}

// Update replaces the per-unit quantity of an existing line.
func (s *RecipeService) Update(ctx context.Context, productCode, rawMaterialCode string, quantity decimal.Decimal) (*models.RecipeLine, error) {
	l, err := s.recipes.Get(ctx, productCode, rawMaterialCode)
	if err != nil {
		return nil, fmt.Errorf("get recipe line: %w", err)
	}
	if err := l.SetQuantity(quantity); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecipeLine, err)
	}
	if err := s.recipes.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("update recipe line: %w", err)
	}
	s.metrics.CatalogChanged(ctx, events.EntityRecipeLine, events.ActionUpdated)
	return l, nil
}

// Remove unlinks a raw material from a product.
func (s *RecipeService) Remove(ctx context.Context, productCode, rawMaterialCode string) error {
	if err := s.recipes.Delete(ctx, productCode, rawMaterialCode); err != nil {
		return fmt.Errorf("delete recipe line: %w", err)
	}
	s.metrics.CatalogChanged(ctx, events.EntityRecipeLine, events.ActionDeleted)
	return nil
}
