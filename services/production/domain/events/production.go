package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/services/production/domain/models"
)

// TopicProductionConfirmed is published in the transaction that marks a
// production CONFIRMED.
const TopicProductionConfirmed = "production.confirmed"

// ProductionConfirmedEvent lists the raw materials whose stock changed so
// consumers can drop stale stock read models.
type ProductionConfirmedEvent struct {
	EventID          uuid.UUID `json:"event_id"`
	Version          int       `json:"version"`
	ProductionID     uuid.UUID `json:"production_id"`
	SuccessCount     int       `json:"success_count"`
	FailureCount     int       `json:"failure_count"`
	TotalValue       string    `json:"total_value"`
	RawMaterialCodes []string  `json:"raw_material_codes"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewProductionConfirmedEvent builds the event for a confirmed production.
func NewProductionConfirmedEvent(p *models.Production, res *models.ConfirmationResult) ProductionConfirmedEvent {
	codes := res.ConsumedRawMaterials()
	if codes == nil {
		codes = []string{}
	}
	occurred := time.Now().UTC()
	if p.ConfirmedAt != nil {
		occurred = *p.ConfirmedAt
	}
	return ProductionConfirmedEvent{
		EventID:          uuid.New(),
		Version:          1,
		ProductionID:     p.ID,
		SuccessCount:     res.SuccessCount,
		FailureCount:     res.FailureCount,
		TotalValue:       res.TotalValue.StringFixed(2),
		RawMaterialCodes: codes,
		OccurredAt:       occurred,
	}
}

// TopicStockConsumed is published after an ad-hoc confirmation, which has no
// Production record and therefore no outbox transaction.
const TopicStockConsumed = "production.stock_consumed"

// StockConsumedEvent lists the raw materials an ad-hoc confirmation deducted.
type StockConsumedEvent struct {
	EventID          uuid.UUID `json:"event_id"`
	Version          int       `json:"version"`
	SuccessCount     int       `json:"success_count"`
	FailureCount     int       `json:"failure_count"`
	TotalValue       string    `json:"total_value"`
	RawMaterialCodes []string  `json:"raw_material_codes"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewStockConsumedEvent builds the event for an ad-hoc confirmation result.
func NewStockConsumedEvent(res *models.ConfirmationResult) StockConsumedEvent {
	codes := res.ConsumedRawMaterials()
	if codes == nil {
		codes = []string{}
	}
	return StockConsumedEvent{
		EventID:          uuid.New(),
		Version:          1,
		SuccessCount:     res.SuccessCount,
		FailureCount:     res.FailureCount,
		TotalValue:       res.TotalValue.StringFixed(2),
		RawMaterialCodes: codes,
		OccurredAt:       time.Now().UTC(),
	}
}
