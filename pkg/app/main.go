package app

import (
	"github.com/gorilla/sessions"

	"github.com/autoflex-io/inventory/pkg/cache"
	"github.com/autoflex-io/inventory/pkg/config"
	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/telemetry"
)

// Application holds shared infrastructure dependencies for all services.
// Pass to all service Routes calls during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "confirming production", "production_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config       *config.Config
	Db           *database.Database
	Logger       logger.Logger
	EventBus     *events.EventBus
	Redis        *cache.RedisClient
	Cache        *cache.CatalogCache // nil when Redis is unavailable
	SessionStore sessions.Store      // Redis-backed session store; nil in worker process
	Metrics      *telemetry.Metrics  // nil disables business metrics
}
