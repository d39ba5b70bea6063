package events_test

import (
	"encoding/json"
	"testing"

	"github.com/autoflex-io/inventory/services/catalog/domain/events"
)

func TestNewCatalogChangedEvent(t *testing.T) {
	a := events.NewCatalogChangedEvent(events.EntityProduct, events.ActionCreated, "P001")
	b := events.NewCatalogChangedEvent(events.EntityProduct, events.ActionCreated, "P001")

	if a.EventID == b.EventID {
		t.Fatal("each event must get its own id")
	}
	if a.Version != 1 || a.OccurredAt.IsZero() {
		t.Errorf("unexpected event: %+v", a)
	}
}

func TestCatalogChangedEvent_OmitsEmptyRawMaterialCode(t *testing.T) {
	data, err := json.Marshal(events.NewCatalogChangedEvent(events.EntityRawMaterial, events.ActionUpdated, "RM001"))
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["raw_material_code"]; ok {
		t.Errorf("raw_material_code should be omitted: %s", data)
	}
	for _, field := range []string{"event_id", "version", "entity", "action", "code", "occurred_at"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("expected JSON field %q not found in: %s", field, data)
		}
	}
}
