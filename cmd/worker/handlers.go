package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/autoflex-io/inventory/pkg/cache"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/pkg/logger"
	catalogEvents "github.com/autoflex-io/inventory/services/catalog/domain/events"
	productionEvents "github.com/autoflex-io/inventory/services/production/domain/events"
)

// invalidator is satisfied by *cache.CatalogCache.
type invalidator interface {
	Invalidate(ctx context.Context, kind string, codes ...string) error
}

// handleProductionConfirmed drops the cached stock of every raw material the
// confirmation consumed. Deleting keys is idempotent, so bus retries are safe.
func handleProductionConfirmed(c invalidator, log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := events.Decode[productionEvents.ProductionConfirmedEvent](msg)
		if err != nil {
			// A payload that does not decode never will; ack it.
			log.ErrorContext(ctx, "dropping malformed production.confirmed", "message_uuid", msg.UUID, "error", err)
			return nil
		}
		if err := c.Invalidate(ctx, cache.KindRawMaterial, evt.RawMaterialCodes...); err != nil {
			return fmt.Errorf("invalidate raw materials of production %s: %w", evt.ProductionID, err)
		}
		log.InfoContext(ctx, "stock cache invalidated",
			"production_id", evt.ProductionID,
			"raw_materials", evt.RawMaterialCodes,
			"success_count", evt.SuccessCount,
			"failure_count", evt.FailureCount,
		)
		return nil
	}
}

// handleStockConsumed drops the cached stock of raw materials deducted by an
// ad-hoc confirmation, which has no Production record.
func handleStockConsumed(c invalidator, log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := events.Decode[productionEvents.StockConsumedEvent](msg)
		if err != nil {
			log.ErrorContext(ctx, "dropping malformed production.stock_consumed", "message_uuid", msg.UUID, "error", err)
			return nil
		}
		if len(evt.RawMaterialCodes) == 0 {
			return nil
		}
		if err := c.Invalidate(ctx, cache.KindRawMaterial, evt.RawMaterialCodes...); err != nil {
			return fmt.Errorf("invalidate raw materials of confirmation %s: %w", evt.EventID, err)
		}
		log.InfoContext(ctx, "stock cache invalidated",
			"event_id", evt.EventID,
			"raw_materials", evt.RawMaterialCodes,
			"success_count", evt.SuccessCount,
		)
		return nil
	}
}

// handleCatalogChanged drops the cached read model of the changed product or
// raw material. Recipe lines are not cached.
func handleCatalogChanged(c invalidator, log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		evt, err := events.Decode[catalogEvents.CatalogChangedEvent](msg)
		if err != nil {
			log.ErrorContext(ctx, "dropping malformed catalog.changed", "message_uuid", msg.UUID, "error", err)
			return nil
		}

		var kind string
		switch evt.Entity {
		case catalogEvents.EntityProduct:
			kind = cache.KindProduct
		case catalogEvents.EntityRawMaterial:
			kind = cache.KindRawMaterial
		default:
			return nil
		}
		if err := c.Invalidate(ctx, kind, evt.Code); err != nil {
			return fmt.Errorf("invalidate %s %s: %w", kind, evt.Code, err)
		}
		log.DebugContext(ctx, "catalog cache invalidated", "entity", evt.Entity, "action", evt.Action, "code", evt.Code)
		return nil
	}
}
