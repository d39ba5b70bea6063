package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/autoflex-io/inventory/services/catalog/domain/models"
)

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name  string          `json:"name"  validate:"required,min=1,max=255" example:"Steel Table"`
	Value decimal.Decimal `json:"value" validate:"required,gt=0"          swaggertype:"number" example:"150.00"`
} // @name CreateProductRequest

// UpdateProductRequest is the body of PUT /products/{code}. Omitted fields
// keep their value.
type UpdateProductRequest struct {
	Name  *string          `json:"name,omitempty"  validate:"omitempty,min=1,max=255" example:"Steel Desk"`
	Value *decimal.Decimal `json:"value,omitempty" validate:"omitempty,gt=0"          swaggertype:"number" example:"175.50"`
} // @name UpdateProductRequest

// ProductResponse is a product.
type ProductResponse struct {
	Code      string          `json:"code"       example:"P001"`
	Name      string          `json:"name"       example:"Steel Table"`
	Value     decimal.Decimal `json:"value"      swaggertype:"number" example:"150.00"`
	CreatedAt time.Time       `json:"created_at" example:"2026-01-15T10:30:00Z"`
	UpdatedAt time.Time       `json:"updated_at" example:"2026-01-15T10:30:00Z"`
} // @name ProductResponse

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		Code:      p.Code,
		Name:      p.Name.String(),
		Value:     p.Value,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CreateRawMaterialRequest is the body of POST /raw-materials.
type CreateRawMaterialRequest struct {
	Name          string          `json:"name"           validate:"required,min=1,max=255" example:"Steel Sheet"`
	StockQuantity decimal.Decimal `json:"stock_quantity" validate:"gte=0"                  swaggertype:"number" example:"100"`
} // @name CreateRawMaterialRequest

// UpdateRawMaterialRequest is the body of PUT /raw-materials/{code}.
type UpdateRawMaterialRequest struct {
	Name          *string          `json:"name,omitempty"           validate:"omitempty,min=1,max=255" example:"Steel Plate"`
	StockQuantity *decimal.Decimal `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"         swaggertype:"number" example:"250"`
} // @name UpdateRawMaterialRequest

// RawMaterialResponse is a raw material.
type RawMaterialResponse struct {
	Code          string          `json:"code"           example:"RM001"`
	Name          string          `json:"name"           example:"Steel Sheet"`
	StockQuantity decimal.Decimal `json:"stock_quantity" swaggertype:"number" example:"100"`
	Version       int64           `json:"version"        example:"3"`
	CreatedAt     time.Time       `json:"created_at"     example:"2026-01-15T10:30:00Z"`
	UpdatedAt     time.Time       `json:"updated_at"     example:"2026-01-15T10:30:00Z"`
} // @name RawMaterialResponse

func toRawMaterialResponse(m *models.RawMaterial) RawMaterialResponse {
	return RawMaterialResponse{
		Code:          m.Code,
		Name:          m.Name.String(),
		StockQuantity: m.StockQuantity,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// AddRecipeLineRequest is the body of POST /products/{code}/raw-materials.
type AddRecipeLineRequest struct {
	RawMaterialCode string          `json:"raw_material_code" validate:"required,max=50" example:"RM001"`
	Quantity        decimal.Decimal `json:"quantity"          validate:"required,gt=0"   swaggertype:"number" example:"2.5"`
} // @name AddRecipeLineRequest

// UpdateRecipeLineRequest is the body of PUT /products/{code}/raw-materials/{rmCode}.
type UpdateRecipeLineRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required,gt=0" swaggertype:"number" example:"3"`
} // @name UpdateRecipeLineRequest

// RecipeLineResponse is one raw material of a product's recipe.
type RecipeLineResponse struct {
	ProductCode     string          `json:"product_code"      example:"P001"`
	ProductName     string          `json:"product_name"      example:"Steel Table"`
	RawMaterialCode string          `json:"raw_material_code" example:"RM001"`
	RawMaterialName string          `json:"raw_material_name" example:"Steel Sheet"`
	Quantity        decimal.Decimal `json:"quantity"          swaggertype:"number" example:"2.5"`
} // @name RecipeLineResponse

func toRecipeLineResponse(l *models.RecipeLine) RecipeLineResponse {
	return RecipeLineResponse{
		ProductCode:     l.ProductCode,
		ProductName:     l.ProductName,
		RawMaterialCode: l.RawMaterialCode,
		RawMaterialName: l.RawMaterialName,
		Quantity:        l.Quantity,
	}
}
