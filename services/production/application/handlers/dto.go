package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/production/domain/models"
)

// ProductionItemRequest is one requested product and quantity.
type ProductionItemRequest struct {
	ProductCode string `json:"product_code" validate:"required,min=1,max=50"   example:"P001"`
	Quantity    int    `json:"quantity"     validate:"required,gte=1,lte=1000000" example:"2"`
} // @name ProductionItemRequest

// ProductionItemsRequest is the body of POST /productions and POST /production/confirm.
type ProductionItemsRequest struct {
	Items []ProductionItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
} // @name ProductionItemsRequest

func (r *ProductionItemsRequest) toItems() []models.ProductionItem {
	out := make([]models.ProductionItem, len(r.Items))
	for i, it := range r.Items {
		out[i] = models.ProductionItem{ProductCode: it.ProductCode, Quantity: it.Quantity}
	}
	return out
}

// SuggestionResponse is one planner suggestion.
type SuggestionResponse struct {
	ProductCode        string          `json:"product_code"        example:"P002"`
	ProductName        string          `json:"product_name"        example:"Steel Cabinet"`
	UnitValue          decimal.Decimal `json:"unit_value"          swaggertype:"number" example:"100"`
	ProducibleQuantity int64           `json:"producible_quantity" example:"4"`
	TotalValue         decimal.Decimal `json:"total_value"         swaggertype:"number" example:"400"`
} // @name SuggestionResponse

// SuggestionsResponse is the body of GET /production/suggestions.
type SuggestionsResponse struct {
	Suggestions []SuggestionResponse `json:"suggestions"`
	GrandTotal  decimal.Decimal      `json:"grand_total" swaggertype:"number" example:"400"`
} // @name SuggestionsResponse

func toSuggestionsResponse(plan *models.Plan) SuggestionsResponse {
	out := SuggestionsResponse{
		Suggestions: make([]SuggestionResponse, len(plan.Suggestions)),
		GrandTotal:  plan.GrandTotal,
	}
	for i, s := range plan.Suggestions {
		out.Suggestions[i] = SuggestionResponse{
			ProductCode:        s.ProductCode,
			ProductName:        s.ProductName,
			UnitValue:          s.UnitValue,
			ProducibleQuantity: s.Quantity,
			TotalValue:         s.TotalValue,
		}
	}
	return out
}

// ItemResultResponse is the outcome of one confirmed item.
type ItemResultResponse struct {
	ProductCode string          `json:"product_code" example:"P001"`
	ProductName string          `json:"product_name" example:"Steel Table"`
	Quantity    int             `json:"quantity"     example:"2"`
	TotalValue  decimal.Decimal `json:"total_value"  swaggertype:"number" example:"100"`
	Success     bool            `json:"success"      example:"true"`
	Message     string          `json:"message"      example:"Production confirmed successfully"`
} // @name ItemResultResponse

// ConfirmationResponse is the body of both confirmation endpoints.
// ProductionID and Status are only set when a Production was confirmed.
type ConfirmationResponse struct {
	ProductionID *uuid.UUID           `json:"production_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Status       string               `json:"status,omitempty"        example:"CONFIRMED"`
	Items        []ItemResultResponse `json:"items"`
	TotalValue   decimal.Decimal      `json:"total_value"   swaggertype:"number" example:"100"`
	SuccessCount int                  `json:"success_count" example:"1"`
	FailureCount int                  `json:"failure_count" example:"0"`
	Message      string               `json:"message"       example:"Production confirmed successfully"`
} // @name ConfirmationResponse

func toConfirmationResponse(res *models.ConfirmationResult) ConfirmationResponse {
	out := ConfirmationResponse{
		Items:        make([]ItemResultResponse, len(res.Items)),
		TotalValue:   res.TotalValue,
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
		Message:      summary(res),
	}
	for i, it := range res.Items {
		out.Items[i] = ItemResultResponse{
			ProductCode: it.ProductCode,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			TotalValue:  it.TotalValue,
			Success:     it.Success(),
			Message:     it.Message(),
		}
	}
	return out
}

func summary(res *models.ConfirmationResult) string {
	switch res.Outcome() {
	case models.OutcomeOK:
		return "Production confirmed successfully"
	case models.OutcomeFailed:
		return "All production items failed"
	default:
		return fmt.Sprintf("%d items confirmed, %d items failed", res.SuccessCount, res.FailureCount)
	}
}

// ProductionItemResponse is one item of a stored production.
type ProductionItemResponse struct {
	ProductCode string `json:"product_code" example:"P001"`
	Quantity    int    `json:"quantity"     example:"2"`
} // @name ProductionItemResponse

// ProductionResponse is a stored production.
type ProductionResponse struct {
	ID          uuid.UUID                `json:"id"           example:"123e4567-e89b-12d3-a456-426614174000"`
	Status      string                   `json:"status"       example:"PENDING"`
	CreatedAt   time.Time                `json:"created_at"   example:"2026-01-15T10:30:00Z"`
	ConfirmedAt *time.Time               `json:"confirmed_at" example:"2026-01-15T10:35:00Z"`
	Items       []ProductionItemResponse `json:"items"`
} // @name ProductionResponse

func toProductionResponse(p *models.Production) ProductionResponse {
	out := ProductionResponse{
		ID:          p.ID,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		ConfirmedAt: p.ConfirmedAt,
		Items:       make([]ProductionItemResponse, len(p.Items)),
	}
	for i, it := range p.Items {
		out.Items[i] = ProductionItemResponse{ProductCode: it.ProductCode, Quantity: it.Quantity}
	}
	return out
}
