package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/production/domain/models"
)

func TestNewProductionConfirmedEvent(t *testing.T) {
	p, err := models.NewProduction([]models.ProductionItem{{ProductCode: "P001", Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	if err := p.Confirm(at); err != nil {
		t.Fatal(err)
	}

	var res models.ConfirmationResult
	res.Add(models.ItemResult{
		ProductCode: "P001",
		Quantity:    2,
		TotalValue:  decimal.NewFromInt(100),
		Consumed:    []models.Consumption{{RawMaterialCode: "RM001", Quantity: decimal.NewFromInt(10)}},
	})

	ev := NewProductionConfirmedEvent(p, &res)
	if ev.ProductionID != p.ID || ev.Version != 1 || !ev.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event header: %+v", ev)
	}
	if ev.TotalValue != "100.00" || ev.SuccessCount != 1 {
		t.Errorf("unexpected totals: %+v", ev)
	}
	if len(ev.RawMaterialCodes) != 1 || ev.RawMaterialCodes[0] != "RM001" {
		t.Errorf("unexpected material codes: %v", ev.RawMaterialCodes)
	}
}

func TestProductionConfirmedEvent_EmptyCodesEncodeAsArray(t *testing.T) {
	p, _ := models.NewProduction([]models.ProductionItem{{ProductCode: "P001", Quantity: 1}})
	ev := NewProductionConfirmedEvent(p, &models.ConfirmationResult{})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["raw_material_codes"].([]any); !ok {
		t.Fatalf("raw_material_codes must be a JSON array, got %v", decoded["raw_material_codes"])
	}
}
