package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/autoflex-io/inventory/pkg/app"
	"github.com/autoflex-io/inventory/pkg/cache"
	"github.com/autoflex-io/inventory/pkg/config"
	"github.com/autoflex-io/inventory/pkg/database"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/telemetry"
	catalogEvents "github.com/autoflex-io/inventory/services/catalog/domain/events"
	productionEvents "github.com/autoflex-io/inventory/services/production/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tel, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer tel.Shutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg, "worker"); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolOptions{MaxOpenConns: 5}, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.New(cfg, log, events.Options{
		OnFailure: func(ctx context.Context, topic string, msg *message.Message, err error) {
			telemetry.ReportError(ctx, err, map[string]string{"topic": topic, "message_uuid": msg.UUID})
		},
	})
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	appConfig := &app.Application{
		Config:   cfg,
		Db:       pool,
		Logger:   log,
		EventBus: eventBus,
		Redis:    redisClient,
		Cache:    cache.NewCatalogCache(redisClient, cfg.CatalogCacheTTL),
	}

	registerSubscribers(appConfig)
	if err := eventBus.Start(ctx); err != nil {
		log.Error("failed to start event subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	// EventBus.Close() (via defer) waits for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires every domain event handler into the bus.
func registerSubscribers(a *app.Application) {
	subs := map[string]events.Handler{
		productionEvents.TopicProductionConfirmed: handleProductionConfirmed(a.Cache, a.Logger),
		productionEvents.TopicStockConsumed:       handleStockConsumed(a.Cache, a.Logger),
		catalogEvents.TopicCatalogChanged:         handleCatalogChanged(a.Cache, a.Logger),
	}

	topics := make([]string, 0, len(subs))
	for topic, handler := range subs {
		a.EventBus.Handle(topic, handler)
		topics = append(topics, topic)
	}
	a.Logger.Info("event subscribers registered", "topics", topics)
}
