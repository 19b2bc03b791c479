// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArgument is wrapped by every draft validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// Validation errors for Draft.
var (
	ErrEmptyName     = fmt.Errorf("%w: name cannot be empty", ErrInvalidArgument)
	ErrNameTooLong   = fmt.Errorf("%w: name cannot exceed %d characters", ErrInvalidArgument, MaxNameLength)
	ErrNegativePrice = fmt.Errorf("%w: price cannot be negative", ErrInvalidArgument)
)

// MaxNameLength is the longest accepted item name, in characters (runes).
// It must match the max tag on Draft.Name.
const MaxNameLength = 255

// Item is a priced catalog entry. ID and CreatedAt are assigned by the store
// and never change afterwards.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is caller-supplied input for create and update.
type Draft struct {
	Name  string  `json:"name" validate:"required,notblank,max=255"`
	Price float64 `json:"price" validate:"gte=0"`
}

// Validate checks that the draft can be stored.
func (d Draft) Validate() error {
	return validateDraft(d)
}

// WithDraft returns a copy of the item carrying the draft's name and price.
// Identity fields are left untouched.
func (i Item) WithDraft(d Draft) Item {
	i.Name = d.Name
	i.Price = d.Price
	return i
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
