package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autoflex-io/inventory/pkg/errhttp"
	"github.com/autoflex-io/inventory/pkg/httpx"
	pkgvalidator "github.com/autoflex-io/inventory/pkg/validator"
	appsvcs "github.com/autoflex-io/inventory/services/catalog/application/services"
)

// RecipeHandler serves /products/{code}/raw-materials.
type RecipeHandler struct {
	svc *appsvcs.Services
}

// NewRecipeHandler returns a RecipeHandler backed by the given services.
func NewRecipeHandler(svc *appsvcs.Services) *RecipeHandler {
	return &RecipeHandler{svc: svc}
}

// List returns the raw materials one unit of the product consumes.
//
//	@Summary	List product raw materials
//	@Tags		products
//	@Produce	json
//	@Param		code	path		string	true	"Product code"
//	@Success	200		{array}		RecipeLineResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code}/raw-materials [get]
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Recipes.List(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	out := make([]RecipeLineResponse, len(lines))
	for i, l := range lines {
		out[i] = toRecipeLineResponse(l)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Add links a raw material to the product.
//
//	@Summary	Add product raw material
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		code	path		string					true	"Product code"
//	@Param		request	body		AddRecipeLineRequest	true	"Raw material and quantity per unit"
//	@Success	201		{object}	RecipeLineResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Failure	409		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code}/raw-materials [post]
func (h *RecipeHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[AddRecipeLineRequest](w, r)
	if !ok {
		return
	}
	l, err := h.svc.Recipes.Add(r.Context(), chi.URLParam(r, "code"), req.RawMaterialCode, req.Quantity)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecipeLineResponse(l))
}

// Update changes the quantity per unit.
//
//	@Summary	Update product raw material
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		code	path		string					true	"Product code"
//	@Param		rmCode	path		string					true	"Raw material code"
//	@Param		request	body		UpdateRecipeLineRequest	true	"Quantity per unit"
//	@Success	200		{object}	RecipeLineResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code}/raw-materials/{rmCode} [put]
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[UpdateRecipeLineRequest](w, r)
	if !ok {
		return
	}
	l, err := h.svc.Recipes.Update(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "rmCode"), req.Quantity)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecipeLineResponse(l))
}

// Remove unlinks a raw material from the product.
//
//	@Summary	Remove product raw material
//	@Tags		products
//	@Param		code	path	string	true	"Product code"
//	@Param		rmCode	path	string	true	"Raw material code"
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code}/raw-materials/{rmCode} [delete]
func (h *RecipeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Recipes.Remove(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "rmCode")); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
