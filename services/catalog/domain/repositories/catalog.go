package repositories

import (
	"context"

	"github.com/autoflex-io/inventory/services/catalog/domain/models"
)

// QueryOpts contains pagination and ordering parameters for list queries.
// Sort is a whitelisted field name ("code", "name", ...); empty means by code.
type QueryOpts struct {
	Limit  int
	Offset int
	Sort   string
	Desc   bool
}

// ProductRepository is the persistence interface for Products.
// Implementations publish a catalog.changed event with every write.
type ProductRepository interface {
	// Create assigns the next product code and persists p.
	Create(ctx context.Context, p *models.Product) error
	GetByCode(ctx context.Context, code string) (*models.Product, error)
	// List returns one page and the total count.
	List(ctx context.Context, opts QueryOpts) ([]*models.Product, int, error)
	// Update writes p if its Version is current and increments it.
	// Returns ErrStaleVersion otherwise.
	Update(ctx context.Context, p *models.Product) error
	// Delete removes the product and its recipe lines.
	Delete(ctx context.Context, code string) error
}

// RawMaterialRepository is the persistence interface for RawMaterials.
type RawMaterialRepository interface {
	Create(ctx context.Context, m *models.RawMaterial) error
	GetByCode(ctx context.Context, code string) (*models.RawMaterial, error)
	List(ctx context.Context, opts QueryOpts) ([]*models.RawMaterial, int, error)
	Update(ctx context.Context, m *models.RawMaterial) error
	Delete(ctx context.Context, code string) error
}

// RecipeRepository is the persistence interface for product/raw material links.
type RecipeRepository interface {
	// ListByProduct returns the product's lines ordered by raw material code,
	// with ProductName and RawMaterialName filled in.
	ListByProduct(ctx context.Context, productCode string) ([]*models.RecipeLine, error)
	Get(ctx context.Context, productCode, rawMaterialCode string) (*models.RecipeLine, error)
	// Create returns ErrRecipeLineAlreadyExists for a duplicate pair.
	Create(ctx context.Context, l *models.RecipeLine) error
	Update(ctx context.Context, l *models.RecipeLine) error
	Delete(ctx context.Context, productCode, rawMaterialCode string) error
}
