package main

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/pkg/cache"
	"github.com/autoflex-io/inventory/pkg/events"
	"github.com/autoflex-io/inventory/pkg/logger"
	catalogEvents "github.com/autoflex-io/inventory/services/catalog/domain/events"
	productionEvents "github.com/autoflex-io/inventory/services/production/domain/events"
)

type recordingCache struct {
	keys []string
	err  error
}

func (c *recordingCache) Invalidate(_ context.Context, kind string, codes ...string) error {
	if c.err != nil {
		return c.err
	}
	for _, code := range codes {
		c.keys = append(c.keys, cache.Key(kind, code))
	}
	return nil
}

func newMessage(t *testing.T, payload any) *message.Message {
	t.Helper()
	msg, err := events.NewMessage(context.Background(), uuid.NewString(), 1, payload)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestHandleProductionConfirmed(t *testing.T) {
	c := &recordingCache{}
	h := handleProductionConfirmed(c, logger.Nop())

	evt := productionEvents.ProductionConfirmedEvent{
		EventID:          uuid.New(),
		Version:          1,
		ProductionID:     uuid.New(),
		SuccessCount:     1,
		RawMaterialCodes: []string{"RM001", "RM002"},
	}
	if err := h(context.Background(), newMessage(t, evt)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"catalog:raw_material:RM001", "catalog:raw_material:RM002"}
	if !slices.Equal(c.keys, want) {
		t.Fatalf("invalidated %v, want %v", c.keys, want)
	}

	// Redis errors are returned so the bus retries.
	failing := handleProductionConfirmed(&recordingCache{err: errors.New("redis down")}, logger.Nop())
	if err := failing(context.Background(), newMessage(t, evt)); err == nil {
		t.Fatal("expected error to trigger a retry")
	}

	// Malformed payloads are acknowledged.
	bad := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	if err := h(context.Background(), bad); err != nil {
		t.Fatalf("malformed payload must be acked, got %v", err)
	}
}

func TestHandleStockConsumed(t *testing.T) {
	c := &recordingCache{}
	h := handleStockConsumed(c, logger.Nop())

	evt := productionEvents.StockConsumedEvent{
		EventID:          uuid.New(),
		Version:          1,
		SuccessCount:     2,
		RawMaterialCodes: []string{"RM003"},
	}
	if err := h(context.Background(), newMessage(t, evt)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"catalog:raw_material:RM003"}; !slices.Equal(c.keys, want) {
		t.Fatalf("invalidated %v, want %v", c.keys, want)
	}

	empty := &recordingCache{err: errors.New("must not be called")}
	evt.RawMaterialCodes = nil
	if err := handleStockConsumed(empty, logger.Nop())(context.Background(), newMessage(t, evt)); err != nil {
		t.Fatalf("event without materials must be acked, got %v", err)
	}

	evt.RawMaterialCodes = []string{"RM003"}
	failing := handleStockConsumed(&recordingCache{err: errors.New("redis down")}, logger.Nop())
	if err := failing(context.Background(), newMessage(t, evt)); err == nil {
		t.Fatal("expected error to trigger a retry")
	}
}

func TestHandleCatalogChanged(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		code   string
		want   []string
	}{
		{"product", catalogEvents.EntityProduct, "P001", []string{"catalog:product:P001"}},
		{"raw material", catalogEvents.EntityRawMaterial, "RM003", []string{"catalog:raw_material:RM003"}},
		{"recipe line is not cached", catalogEvents.EntityRecipeLine, "P001", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCache{}
			evt := catalogEvents.NewCatalogChangedEvent(tt.entity, catalogEvents.ActionUpdated, tt.code)
			if err := handleCatalogChanged(c, logger.Nop())(context.Background(), newMessage(t, evt)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(c.keys, tt.want) {
				t.Fatalf("invalidated %v, want %v", c.keys, tt.want)
			}
		})
	}
}
