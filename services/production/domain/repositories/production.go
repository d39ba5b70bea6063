package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/services/production/domain/events"
	"github.com/autoflex-io/inventory/services/production/domain/models"
)

// CatalogTx is the view of the catalog available inside one stock transaction.
// Row locks taken by the ForUpdate methods are held until the transaction ends.
type CatalogTx interface {
	// ListProducts returns every product ordered by code.
	ListProducts(ctx context.Context) ([]models.Product, error)
	// ListRecipeLines returns every recipe line ordered by product code, then raw material code.
	ListRecipeLines(ctx context.Context) ([]models.RecipeLine, error)
	// FindProductByCode returns domain.ErrProductNotFound for an unknown code.
	FindProductByCode(ctx context.Context, code string) (*models.Product, error)
	// FindRecipeLinesByProductCode returns the product's lines ordered by raw material code.
	FindRecipeLinesByProductCode(ctx context.Context, productCode string) ([]models.RecipeLine, error)
	// FindRawMaterialByCodeForUpdate locks and returns one raw material.
	// Returns domain.ErrRawMaterialNotFound for an unknown code.
	FindRawMaterialByCodeForUpdate(ctx context.Context, code string) (*models.RawMaterial, error)
	// FindAllRawMaterialsForUpdate locks every raw material in code order.
	FindAllRawMaterialsForUpdate(ctx context.Context) ([]models.RawMaterial, error)
	// SaveRawMaterial writes the stock if m.Version is still current and
	// increments m.Version. Returns domain.ErrConcurrencyConflict otherwise.
	SaveRawMaterial(ctx context.Context, m *models.RawMaterial) error
}

// CatalogStore opens stock transactions. fn's writes commit when it returns
// nil and are discarded otherwise. Lock waits that time out surface as
// domain.ErrConcurrencyConflict.
type CatalogStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx CatalogTx) error) error
}

// QueryOpts contains pagination parameters for list queries.
type QueryOpts struct {
	Limit  int
	Offset int
}

// ConfirmFunc runs while the production row is locked. It must perform the
// status transition on p and return the event to publish with it.
type ConfirmFunc func(ctx context.Context, p *models.Production) (events.ProductionConfirmedEvent, error)

// ProductionRepository is the persistence interface for Productions.
type ProductionRepository interface {
	Create(ctx context.Context, p *models.Production) error
	// Get returns domain.ErrProductionNotFound for an unknown id.
	Get(ctx context.Context, id uuid.UUID) (*models.Production, error)
	// List returns one page, newest first, and the total count.
	List(ctx context.Context, opts QueryOpts) ([]*models.Production, int, error)
	// Confirm locks the production, calls fn and, when fn succeeds, persists
	// the new status and publishes the returned event in the same transaction.
	// Concurrent calls for the same id run one after another.
	Confirm(ctx context.Context, id uuid.UUID, fn ConfirmFunc) (*models.Production, error)
}
