// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/pkg/httpx"
	catalogdomain "github.com/autoflex-io/inventory/services/catalog/domain"
	productiondomain "github.com/autoflex-io/inventory/services/production/domain"
)

// HideInternalErrors replaces 5xx messages with the status text.
// cmd/api sets it from config.IsProduction.
var HideInternalErrors = true

// StockDetails is the error detail for insufficient stock responses.
type StockDetails struct {
	RawMaterialCode string          `json:"raw_material_code" example:"RM001"`
	Available       decimal.Decimal `json:"available"         example:"10"`
	Required        decimal.Decimal `json:"required"          example:"15"`
} // @name StockDetails

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
func WriteError(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)
	msg := httpx.SafeError(err, status, HideInternalErrors)

	var ise *productiondomain.InsufficientStockError
	if errors.As(err, &ise) {
		httpx.JSONErrorDetails(w, status, msg, StockDetails{
			RawMaterialCode: ise.RawMaterialCode,
			Available:       ise.Available,
			Required:        ise.Required,
		})
		return
	}
	httpx.JSONError(w, status, msg)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, catalogdomain.ErrRawMaterialNotFound),
		errors.Is(err, catalogdomain.ErrRecipeLineNotFound),
		errors.Is(err, productiondomain.ErrProductNotFound),
		errors.Is(err, productiondomain.ErrRecipeNotFound),
		errors.Is(err, productiondomain.ErrRawMaterialNotFound),
		errors.Is(err, productiondomain.ErrProductionNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, catalogdomain.ErrRecipeLineAlreadyExists),
		errors.Is(err, catalogdomain.ErrStaleVersion),
		errors.Is(err, productiondomain.ErrConcurrencyConflict):
		return http.StatusConflict // 409
	case errors.Is(err, catalogdomain.ErrInvalidProduct),
		errors.Is(err, catalogdomain.ErrInvalidRawMaterial),
		errors.Is(err, catalogdomain.ErrInvalidRecipeLine):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, productiondomain.ErrProductionNotPending),
		errors.Is(err, productiondomain.ErrInvalidItems),
		errors.Is(err, productiondomain.ErrInsufficientStock),
		errors.Is(err, httpx.ErrInvalidPageParams):
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
