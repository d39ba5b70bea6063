package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/autoflex-io/inventory/pkg/app"
	"github.com/autoflex-io/inventory/services/production/application/handlers"
	appsvcs "github.com/autoflex-io/inventory/services/production/application/services"
)

// ProductionRoutes registers planning and confirmation endpoints on the provided chi router.
func ProductionRoutes(r chi.Router, a *app.Application) {
	Mount(r, appsvcs.New(a))
}

// Mount registers the endpoints against already wired services.
func Mount(r chi.Router, svcs *appsvcs.Services) {
	suggestions := handlers.NewGetSuggestionsHandler(svcs).Execute
	productions := handlers.NewProductionHandler(svcs)

	r.Group(func(r chi.Router) {
		r.Route("/production", func(r chi.Router) {
			r.Get("/suggestions", suggestions)
			r.Post("/confirm", handlers.NewPostConfirmHandler(svcs).Execute)
		})
		r.Get("/production-suggestions", suggestions)

		r.Route("/productions", func(r chi.Router) {
			r.Get("/", productions.List)
			r.Post("/", productions.Create)
			r.Get("/{id}", productions.Get)
			r.Post("/{id}/confirm", productions.Confirm)
		})
	})
}
