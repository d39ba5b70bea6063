package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/autoflex-io/inventory"

// Metrics holds the business instruments, created by Setup. All methods are
// safe on a nil receiver.
type Metrics struct {
	catalogChanges       metric.Int64Counter
	itemsConfirmed       metric.Int64Counter
	itemsFailed          metric.Int64Counter
	unitsProduced        metric.Int64Counter
	suggestionsComputed  metric.Int64Counter
	confirmationDuration metric.Float64Histogram
}

// newMetrics registers the instruments on meter.
func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.catalogChanges, err = meter.Int64Counter("catalog.changes",
		metric.WithDescription("Catalog writes by entity and action")); err != nil {
		return nil, fmt.Errorf("metric catalog.changes: %w", err)
	}
	if m.itemsConfirmed, err = meter.Int64Counter("production.items.confirmed",
		metric.WithDescription("Production items whose stock deduction committed")); err != nil {
		return nil, fmt.Errorf("metric production.items.confirmed: %w", err)
	}
	if m.itemsFailed, err = meter.Int64Counter("production.items.failed",
		metric.WithDescription("Production items rejected, by reason")); err != nil {
		return nil, fmt.Errorf("metric production.items.failed: %w", err)
	}
	if m.unitsProduced, err = meter.Int64Counter("production.units",
		metric.WithDescription("Units produced by confirmed items")); err != nil {
		return nil, fmt.Errorf("metric production.units: %w", err)
	}
	if m.suggestionsComputed, err = meter.Int64Counter("production.suggestions.computed",
		metric.WithDescription("Allocation planner runs")); err != nil {
		return nil, fmt.Errorf("metric production.suggestions.computed: %w", err)
	}
	if m.confirmationDuration, err = meter.Float64Histogram("production.confirmation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of a confirmation batch")); err != nil {
		return nil, fmt.Errorf("metric production.confirmation.duration: %w", err)
	}
	return &m, nil
}

// CatalogChanged counts a catalog write.
func (m *Metrics) CatalogChanged(ctx context.Context, entity, action string) {
	if m == nil {
		return
	}
	m.catalogChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
	))
}

// ItemConfirmed counts a committed production item and its units.
func (m *Metrics) ItemConfirmed(ctx context.Context, units int) {
	if m == nil {
		return
	}
	m.itemsConfirmed.Add(ctx, 1)
	m.unitsProduced.Add(ctx, int64(units))
}

// ItemFailed counts a rejected production item.
func (m *Metrics) ItemFailed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.itemsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// SuggestionsComputed counts a planner run.
func (m *Metrics) SuggestionsComputed(ctx context.Context) {
	if m == nil {
		return
	}
	m.suggestionsComputed.Add(ctx, 1)
}

// ConfirmationFinished records the duration of a confirmation batch.
// outcome is "ok", "partial" or "failed".
func (m *Metrics) ConfirmationFinished(ctx context.Context, started time.Time, outcome string) {
	if m == nil {
		return
	}
	m.confirmationDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
