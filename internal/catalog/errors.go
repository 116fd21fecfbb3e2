package catalog

import "errors"

var (
	// ErrInvalidProduct is returned when a catalog entry fails validation.
	ErrInvalidProduct = errors.New("invalid catalog product")
	// ErrEmptyCatalog is returned when catalog data declares no products.
	ErrEmptyCatalog = errors.New("catalog contains no products")
)
