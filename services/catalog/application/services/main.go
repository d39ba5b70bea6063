package services

import (
	"github.com/autoflex-io/inventory/pkg/app"
	"github.com/autoflex-io/inventory/services/catalog/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the catalog context.
type Services struct {
	Products     *ProductService
	RawMaterials *RawMaterialService
	Recipes      *RecipeService
}

// New wires the catalog services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	products := postgres.NewProductRepository(a.Db, a.EventBus)
	materials := postgres.NewRawMaterialRepository(a.Db, a.EventBus, a.Config.LockTimeout)
	recipes := postgres.NewRecipeRepository(a.Db, a.EventBus)

	// A nil *cache.CatalogCache must stay a nil interface.
	var readCache ReadCache
	if a.Cache != nil {
		readCache = a.Cache
	}

	return &Services{
		Products:     NewProductService(products, readCache, a.Metrics, a.Logger),
		RawMaterials: NewRawMaterialService(materials, readCache, a.Metrics, a.Logger),
		Recipes:      NewRecipeService(recipes, products, materials, a.Metrics, a.Logger),
	}
}
