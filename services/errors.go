package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product not available")
	ErrItemNotFound       = errors.New("item not found in your cart")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// InsufficientStockError reports a quantity the product's stock cannot cover.
// InCart is the quantity already in the cart when the request was additive.
type InsufficientStockError struct {
	Available int
	Requested int
	InCart    int
}

func (e *InsufficientStockError) Error() string {
	if e.InCart > 0 {
		return fmt.Sprintf("insufficient stock for this total quantity. Available: %d", e.Available)
	}
	return fmt.Sprintf("insufficient stock. Available: %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsNotFound reports whether err means the product or cart item does not exist
// for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrItemNotFound)
}
