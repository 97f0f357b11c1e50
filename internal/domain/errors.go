package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateProduct  = errors.New("duplicate product")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPersistence       = errors.New("persistence failure")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLoginInProgress    = errors.New("login already in progress")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrDuplicateUser      = errors.New("duplicate user")
	ErrLastAdmin          = errors.New("cannot delete the last administrator")
	ErrInvalidActivation  = errors.New("invalid activation token")
)

// InsufficientStockError carries the stock available when a scan was refused.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock, available: %d", e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
