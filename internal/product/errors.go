package product

import "errors"

var (
	ErrNotFound       = errors.New("product not found")
	ErrForbidden      = errors.New("product belongs to another seller")
	ErrInvalidProduct = errors.New("invalid product")
)
