package events

import (
	"time"

	"github.com/google/uuid"
)

// TopicCatalogChanged is the Watermill topic published after any catalog write.
const TopicCatalogChanged = "catalog.changed"

// Entity kinds carried by CatalogChangedEvent.
const (
	EntityProduct     = "product"
	EntityRawMaterial = "raw_material"
	EntityRecipeLine  = "recipe_line"
)

// Actions carried by CatalogChangedEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// CatalogChangedEvent is published in the same transaction as the write.
// For recipe lines Code is the product code and RawMaterialCode is set.
// Consumers use it to invalidate read caches.
type CatalogChangedEvent struct {
	EventID         uuid.UUID `json:"event_id"`
	Version         int       `json:"version"`
	Entity          string    `json:"entity"`
	Action          string    `json:"action"`
	Code            string    `json:"code"`
	RawMaterialCode string    `json:"raw_material_code,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewCatalogChangedEvent stamps a fresh event id and time.
func NewCatalogChangedEvent(entity, action, code string) CatalogChangedEvent {
	return CatalogChangedEvent{
		EventID:    uuid.New(),
		Version:    1,
		Entity:     entity,
		Action:     action,
		Code:       code,
		OccurredAt: time.Now().UTC(),
	}
}
