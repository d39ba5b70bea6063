package services

import (
	"github.com/autoflex-io/inventory/pkg/app"
	"github.com/autoflex-io/inventory/services/production/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Planner     *Planner
	Coordinator *Coordinator
	Productions *ProductionService
}

// New wires all production application services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	store := postgres.NewCatalogStore(a.Db, a.Config.LockTimeout)
	repo := postgres.NewProductionRepository(a.Db, a.EventBus, a.Config.LockTimeout)

	var stockCache StockCache
	if a.Cache != nil {
		stockCache = a.Cache
	}

	var publisher EventPublisher
	if a.EventBus != nil {
		publisher = a.EventBus
	}

	coordinator := NewCoordinator(store, stockCache, publisher, a.Metrics, a.Logger)
	return &Services{
		Planner:     NewPlanner(store, a.Metrics, a.Logger),
		Coordinator: coordinator,
		Productions: NewProductionService(repo, coordinator, a.Logger),
	}
}
