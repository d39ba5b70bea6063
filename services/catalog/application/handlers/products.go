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

// ProductHandler serves the /products resource.
type ProductHandler struct {
	svc *appsvcs.Services
}

// NewProductHandler returns a ProductHandler backed by the given services.
func NewProductHandler(svc *appsvcs.Services) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List returns a page of products.
//
//	@Summary	List products
//	@Tags		products
//	@Produce	json
//	@Param		page	query		int		false	"Zero-based page"								default(0)
//	@Param		size	query		int		false	"Page size"										default(20)
//	@Param		sort	query		string	false	"code, name or value; prefix with - to reverse"
//	@Success	200		{object}	httpx.Page[ProductResponse]
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.ParsePageParams(r, "code", "name", "value")
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	ps, total, err := h.svc.Products.List(r.Context(), repositories.QueryOpts{
		Limit:  page.Size,
		Offset: page.Offset(),
		Sort:   page.Sort,
		Desc:   page.Desc,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	content := make([]ProductResponse, len(ps))
	for i, p := range ps {
		content[i] = toProductResponse(p)
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(content, page, total))
}

// Get returns one product.
//
//	@Summary	Get product
//	@Tags		products
//	@Produce	json
//	@Param		code	path		string	true	"Product code"
//	@Success	200		{object}	ProductResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Products.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(p))
}

// Create adds a product. Its code is generated.
//
//	@Summary	Create product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateProductRequest	true	"Product"
//	@Success	201		{object}	ProductResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateProductRequest](w, r)
	if !ok {
		return
	}
	p, err := h.svc.Products.Create(r.Context(), req.Name, req.Value)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductResponse(p))
}

// Update changes a product's name and/or value.
//
//	@Summary	Update product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		code	path		string					true	"Product code"
//	@Param		request	body		UpdateProductRequest	true	"Fields to change"
//	@Success	200		{object}	ProductResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Failure	409		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[UpdateProductRequest](w, r)
	if !ok {
		return
	}
	if req.Name == nil && req.Value == nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "at least one of name or value is required")
		return
	}
	p, err := h.svc.Products.Update(r.Context(), chi.URLParam(r, "code"), req.Name, req.Value)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(p))
}

// Delete removes a product and its recipe.
//
//	@Summary	Delete product
//	@Tags		products
//	@Param		code	path	string	true	"Product code"
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/products/{code} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Products.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
