package handlers

import (
	"net/http"

	"github.com/autoflex-io/inventory/pkg/errhttp"
	"github.com/autoflex-io/inventory/pkg/httpx"
	appsvcs "github.com/autoflex-io/inventory/services/production/application/services"
)

// GetSuggestionsHandler handles GET /production/suggestions requests.
type GetSuggestionsHandler struct {
	svc *appsvcs.Services
}

// NewGetSuggestionsHandler returns a GetSuggestionsHandler backed by the given services.
func NewGetSuggestionsHandler(svc *appsvcs.Services) *GetSuggestionsHandler {
	return &GetSuggestionsHandler{svc: svc}
}

// Execute computes production suggestions from current stock.
//
//	@Summary		Production suggestions
//	@Description	Greedy plan: products by unit value (highest first), each with the most whole units the remaining stock allows
//	@Tags			production
//	@Produce		json
//	@Success		200	{object}	SuggestionsResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/production/suggestions [get]
func (h *GetSuggestionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	plan, err := h.svc.Planner.Suggestions(r.Context())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSuggestionsResponse(plan))
}
