package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/autoflex-io/inventory/pkg/errhttp"
	"github.com/autoflex-io/inventory/pkg/httpx"
	pkgvalidator "github.com/autoflex-io/inventory/pkg/validator"
	appsvcs "github.com/autoflex-io/inventory/services/production/application/services"
	"github.com/autoflex-io/inventory/services/production/domain/repositories"
)

// ProductionHandler serves the /productions resource.
type ProductionHandler struct {
	svc *appsvcs.Services
}

// NewProductionHandler returns a ProductionHandler backed by the given services.
func NewProductionHandler(svc *appsvcs.Services) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// Create records a PENDING production.
//
//	@Summary	Create production
//	@Tags		productions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ProductionItemsRequest	true	"Requested items"
//	@Success	201		{object}	ProductionResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/productions [post]
func (h *ProductionHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[ProductionItemsRequest](w, r)
	if !ok {
		return
	}
	p, err := h.svc.Productions.Create(r.Context(), req.toItems())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductionResponse(p))
}

// List returns productions, newest first.
//
//	@Summary	List productions
//	@Tags		productions
//	@Produce	json
//	@Param		page	query		int	false	"Zero-based page"	default(0)
//	@Param		size	query		int	false	"Page size"			default(20)
//	@Success	200		{object}	httpx.Page[ProductionResponse]
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/productions [get]
func (h *ProductionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePageParams(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	ps, total, err := h.svc.Productions.List(r.Context(), repositories.QueryOpts{
		Limit:  page.Size,
		Offset: page.Offset(),
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	content := make([]ProductionResponse, len(ps))
	for i, p := range ps {
		content[i] = toProductionResponse(p)
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(content, page, total))
}

// Get returns one production.
//
//	@Summary	Get production
//	@Tags		productions
//	@Produce	json
//	@Param		id	path		string	true	"Production ID"
//	@Success	200	{object}	ProductionResponse
//	@Failure	400	{object}	httpx.ErrorResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/productions/{id} [get]
func (h *ProductionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productionID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Productions.Get(r.Context(), id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductionResponse(p))
}

// Confirm confirms a PENDING production.
//
//	@Summary		Confirm production
//	@Description	Deducts stock per item and marks the production CONFIRMED even when some items fail. A production can be confirmed once.
//	@Tags			productions
//	@Produce		json
//	@Param			id	path		string	true	"Production ID"
//	@Success		200	{object}	ConfirmationResponse
//	@Success		202	{object}	ConfirmationResponse
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/productions/{id}/confirm [post]
func (h *ProductionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := productionID(w, r)
	if !ok {
		return
	}
	p, res, err := h.svc.Productions.Confirm(r.Context(), id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	body := toConfirmationResponse(res)
	body.ProductionID = &p.ID
	body.Status = string(p.Status)
	httpx.JSON(w, confirmationStatus(res), body)
}

func productionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid production id")
		return uuid.Nil, false
	}
	return id, true
}
