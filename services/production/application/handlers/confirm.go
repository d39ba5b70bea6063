package handlers

import (
	"net/http"

	"github.com/autoflex-io/inventory/pkg/errhttp"
	"github.com/autoflex-io/inventory/pkg/httpx"
	pkgvalidator "github.com/autoflex-io/inventory/pkg/validator"
	appsvcs "github.com/autoflex-io/inventory/services/production/application/services"
	"github.com/autoflex-io/inventory/services/production/domain/models"
)

// PostConfirmHandler handles POST /production/confirm requests.
type PostConfirmHandler struct {
	svc *appsvcs.Services
}

// NewPostConfirmHandler returns a PostConfirmHandler backed by the given services.
func NewPostConfirmHandler(svc *appsvcs.Services) *PostConfirmHandler {
	return &PostConfirmHandler{svc: svc}
}

// Execute deducts stock for an ad-hoc list of items.
//
//	@Summary		Confirm production items
//	@Description	Each item commits or fails on its own. 200 when all succeed, 202 on partial success, 400 when all fail.
//	@Tags			production
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ProductionItemsRequest	true	"Items to produce"
//	@Success		200		{object}	ConfirmationResponse
//	@Success		202		{object}	ConfirmationResponse
//	@Failure		400		{object}	ConfirmationResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		422		{object}	httpx.ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/production/confirm [post]
func (h *PostConfirmHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[ProductionItemsRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.Coordinator.Confirm(r.Context(), req.toItems())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, confirmationStatus(res), toConfirmationResponse(res))
}

func confirmationStatus(res *models.ConfirmationResult) int {
	switch res.Outcome() {
	case models.OutcomeOK:
		return http.StatusOK
	case models.OutcomeFailed:
		return http.StatusBadRequest
	default:
		return http.StatusAccepted
	}
}
