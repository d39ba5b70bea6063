package domain

import "errors"

// Sentinel errors for the catalog domain. Use errors.Is() to check these.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrRawMaterialNotFound = errors.New("raw material not found")

	// ErrRecipeLineNotFound indicates the raw material is not part of the product's recipe.
	ErrRecipeLineNotFound = errors.New("raw material not associated with product")

	// ErrRecipeLineAlreadyExists indicates the (product, raw material) pair is already linked.
	ErrRecipeLineAlreadyExists = errors.New("raw material already associated with product")

	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidRawMaterial = errors.New("invalid raw material")
	ErrInvalidRecipeLine  = errors.New("invalid recipe line")

	// ErrStaleVersion indicates the row changed since it was read.
	ErrStaleVersion = errors.New("modified concurrently, reload and retry")
)
