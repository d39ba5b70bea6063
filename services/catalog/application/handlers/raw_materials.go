package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autoflex-io/inventory/pkg/errhttp"
	"github.com/autoflex-io/inventory/pkg/httpx"
	pkgvalidator "github.com/autoflex-io/inventory/pkg/validator"
	appsvcs "github.com/autoflex-io/inventory/services/catalog/application/services"
	"github.com/autoflex-io/inventory/services/catalog/domain/repositories"
)

// RawMaterialHandler serves the /raw-materials resource.
type RawMaterialHandler struct {
	svc *appsvcs.Services
}

// NewRawMaterialHandler returns a RawMaterialHandler backed by the given services.
func NewRawMaterialHandler(svc *appsvcs.Services) *RawMaterialHandler {
	return &RawMaterialHandler{svc: svc}
}

// List returns a page of raw materials.
//
//	@Summary	List raw materials
//	@Tags		raw-materials
//	@Produce	json
//	@Param		page	query		int		false	"Zero-based page"										default(0)
//	@Param		size	query		int		false	"Page size"												default(20)
//	@Param		sort	query		string	false	"code, name or stock_quantity; prefix with - to reverse"
//	@Success	200		{object}	httpx.Page[RawMaterialResponse]
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/raw-materials [get]
func (h *RawMaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePageParams(r, "code", "name", "stock_quantity")
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	ms, total, err := h.svc.RawMaterials.List(r.Context(), repositories.QueryOpts{
		Limit:  page.Size,
		Offset: page.Offset(),
		Sort:   page.Sort,
		Desc:   page.Desc,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	content := make([]RawMaterialResponse, len(ms))
	for i, m := range ms {
		content[i] = toRawMaterialResponse(m)
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(content, page, total))
}

// Get returns one raw material.
//
//	@Summary	Get raw material
//	@Tags		raw-materials
//	@Produce	json
//	@Param		code	path		string	true	"Raw material code"
//	@Success	200		{object}	RawMaterialResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/raw-materials/{code} [get]
func (h *RawMaterialHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.RawMaterials.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRawMaterialResponse(m))
}

// Create adds a raw material. Its code is generated.
//
//	@Summary	Create raw material
//	@Tags		raw-materials
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateRawMaterialRequest	true	"Raw material"
//	@Success	201		{object}	RawMaterialResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/raw-materials [post]
func (h *RawMaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateRawMaterialRequest](w, r)
	if !ok {
		return
	}
	m, err := h.svc.RawMaterials.Create(r.Context(), req.Name, req.StockQuantity)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRawMaterialResponse(m))
}

// Update changes a raw material's name and/or stock.
//
//	@Summary		Update raw material
//	@Description	Setting stock_quantity replaces the stock. Returns 409 if a production confirmation changed it concurrently.
//	@Tags			raw-materials
//	@Accept			json
//	@Produce		json
//	@Param			code	path		string						true	"Raw material code"
//	@Param			request	body		UpdateRawMaterialRequest	true	"Fields to change"
//	@Success		200		{object}	RawMaterialResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		422		{object}	httpx.ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/raw-materials/{code} [put]
func (h *RawMaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[UpdateRawMaterialRequest](w, r)
	if !ok {
		return
	}
	if req.Name == nil && req.StockQuantity == nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "at least one of name or stock_quantity is required")
		return
	}
	m, err := h.svc.RawMaterials.Update(r.Context(), chi.URLParam(r, "code"), req.Name, req.StockQuantity)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRawMaterialResponse(m))
}

// Delete removes a raw material and every recipe line using it.
//
//	@Summary	Delete raw material
//	@Tags		raw-materials
//	@Param		code	path	string	true	"Raw material code"
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/raw-materials/{code} [delete]
func (h *RawMaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RawMaterials.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
