package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/cache"
	pkgevents "github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/pkg/logger"
	"github.com/autoflex-io/inventory/pkg/telemetry"
	"github.com/autoflex-io/inventory/services/production/domain"
	"github.com/autoflex-io/inventory/services/production/domain/events"
	"github.com/autoflex-io/inventory/services/production/domain/models"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

// StockCache drops cached catalog read models. *cache.CatalogCache satisfies it.
type StockCache interface {
	Invalidate(ctx context.Context, kind string, codes ...string) error
}

// EventPublisher publishes events outside a business transaction.
// *events.EventBus satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Coordinator deducts raw material stock for production items. Every item
// is confirmed in its own transaction, so one item's failure never undoes
// another item's committed deduction.
type Coordinator struct {
	store     repositories.CatalogStore
	cache     StockCache
	publisher EventPublisher
	metrics   *telemetry.Metrics
	log       logger.Logger
}

// NewCoordinator returns a Coordinator. stockCache, publisher and metrics may be nil.
func NewCoordinator(
	store repositories.CatalogStore,
	stockCache StockCache,
	publisher EventPublisher,
	metrics *telemetry.Metrics,
	log logger.Logger,
) *Coordinator {
	return &Coordinator{store: store, cache: stockCache, publisher: publisher, metrics: metrics, log: log}
}

// Confirm validates items and confirms them in order without a Production
// record. When any item commits, a stock consumed event tells other
// processes which raw materials changed.
func (c *Coordinator) Confirm(ctx context.Context, items []models.ProductionItem) (*models.ConfirmationResult, error) {
	if err := models.ValidateItems(items); err != nil {
		return nil, err
	}
	res := c.confirm(ctx, c.log, items)
	if res.SuccessCount > 0 {
		c.publishStockConsumed(ctx, res)
	}
	return res, nil
}

// publishStockConsumed is best effort: the deductions are committed and the
// local cache is already invalidated.
func (c *Coordinator) publishStockConsumed(ctx context.Context, res *models.ConfirmationResult) {
	if c.publisher == nil {
		return
	}
	evt := events.NewStockConsumedEvent(res)
	msg, err := pkgevents.NewMessage(ctx, evt.EventID.String(), evt.Version, evt)
	if err == nil {
		err = c.publisher.Publish(ctx, events.TopicStockConsumed, msg)
	}
	if err != nil {
		c.log.WarnContext(ctx, "publish stock consumed event failed",
			"event_id", evt.EventID,
			"raw_materials", evt.RawMaterialCodes,
			"error", err,
		)
	}
}

// confirm processes every item, never stopping early.
func (c *Coordinator) confirm(ctx context.Context, log logger.Logger, items []models.ProductionItem) *models.ConfirmationResult {
	started := time.Now()
	res := &models.ConfirmationResult{Items: make([]models.ItemResult, 0, len(items))}

	for _, item := range items {
		r := c.confirmItem(ctx, item)
		res.Add(r)

		if r.Success() {
			c.metrics.ItemConfirmed(ctx, r.Quantity)
			log.InfoContext(ctx, "production item confirmed",
				"product_code", r.ProductCode,
				"quantity", r.Quantity,
				"total_value", r.TotalValue.String(),
			)
			continue
		}
		c.metrics.ItemFailed(ctx, r.FailureReason())
		if r.FailureReason() == "internal" {
			telemetry.ReportError(ctx, r.Err, map[string]string{"product_code": r.ProductCode})
		}
		log.WarnContext(ctx, "production item failed",
			"product_code", r.ProductCode,
			"quantity", item.Quantity,
			"reason", r.FailureReason(),
			"error", r.Err,
		)
	}

	if c.cache != nil {
		if codes := res.ConsumedRawMaterials(); len(codes) > 0 {
			if err := c.cache.Invalidate(ctx, cache.KindRawMaterial, codes...); err != nil {
				log.WarnContext(ctx, "stock cache invalidation failed", "error", err)
			}
		}
	}

	c.metrics.ConfirmationFinished(ctx, started, res.Outcome())
	return res
}

// confirmItem locks the item's raw materials in code order, checks every line
// against stock and only then writes. The whole item commits or nothing does.
func (c *Coordinator) confirmItem(ctx context.Context, item models.ProductionItem) models.ItemResult {
	res := models.ItemResult{
		ProductCode: item.ProductCode,
		ProductName: item.ProductCode,
		TotalValue:  decimal.Zero,
	}

	var value decimal.Decimal
	var consumed []models.Consumption

	err := c.store.WithinTx(ctx, func(ctx context.Context, tx repositories.CatalogTx) error {
		consumed = nil

		product, err := tx.FindProductByCode(ctx, item.ProductCode)
		if err != nil {
			return err
		}
		res.ProductName = product.Name
		res.Quantity = item.Quantity
		value = product.Value

		lines, err := tx.FindRecipeLinesByProductCode(ctx, item.ProductCode)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w %s", domain.ErrRecipeNotFound, item.ProductCode)
		}
		slices.SortFunc(lines, func(a, b models.RecipeLine) int {
			return cmp.Compare(a.RawMaterialCode, b.RawMaterialCode)
		})

		qty := decimal.NewFromInt(int64(item.Quantity))
		locked := make([]*models.RawMaterial, 0, len(lines))
		for _, l := range lines {
			m, err := tx.FindRawMaterialByCodeForUpdate(ctx, l.RawMaterialCode)
			if err != nil {
				return err
			}
			required := l.Quantity.Mul(qty)
			if err := m.Deduct(required); err != nil {
				return err
			}
			locked = append(locked, m)
			consumed = append(consumed, models.Consumption{RawMaterialCode: m.Code, Quantity: required})
		}

		for _, m := range locked {
			if err := tx.SaveRawMaterial(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		res.Err = err
		return res
	}

	res.TotalValue = value.Mul(decimal.NewFromInt(int64(item.Quantity)))
	res.Consumed = consumed
	return res
}
