package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/autoflex-io/inventory/pkg/app"
	"github.com/autoflex-io/inventory/services/catalog/application/handlers"
	appsvcs "github.com/autoflex-io/inventory/services/catalog/application/services"
)

// CatalogRoutes registers product, raw material and recipe endpoints on the provided chi router.
func CatalogRoutes(r chi.Router, a *app.Application) {
	Mount(r, appsvcs.New(a))
}

// Mount registers the endpoints against already wired services.
func Mount(r chi.Router, svcs *appsvcs.Services) {
	products := handlers.NewProductHandler(svcs)
	materials := handlers.NewRawMaterialHandler(svcs)
	recipes := handlers.NewRecipeHandler(svcs)

	r.Group(func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Post("/", products.Create)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", products.Get)
				r.Put("/", products.Update)
				r.Delete("/", products.Delete)

				r.Get("/raw-materials", recipes.List)
				r.Post("/raw-materials", recipes.Add)
				r.Put("/raw-materials/{rmCode}", recipes.Update)
				r.Delete("/raw-materials/{rmCode}", recipes.Remove)
			})
		})

		r.Route("/raw-materials", func(r chi.Router) {
			r.Get("/", materials.List)
			r.Post("/", materials.Create)
			r.Get("/{code}", materials.Get)
			r.Put("/{code}", materials.Update)
			r.Delete("/{code}", materials.Delete)
		})
	})
}
