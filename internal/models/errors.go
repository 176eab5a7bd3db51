package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared by every kitchen service. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyServed     = errors.New("meal already served")
	ErrNotServed         = errors.New("meal not served")
	ErrDuplicateDate     = errors.New("menu already exists for date")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrStockConflict     = errors.New("stock modified concurrently")
)

// InsufficientStockError reports the first product that could not cover a requirement.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Unit        string
	Required    decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: required %s, available %s",
		name, e.Required.String(), e.Available.String())
}

// Shortage returns how much is missing to cover the requirement.
func (e *InsufficientStockError) Shortage() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError wraps ErrNotFound with the kind and id of the missing entity.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
