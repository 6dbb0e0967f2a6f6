package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned, wrapped, when a referenced row does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor may not touch the object
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrEmptyCart is returned when a shopping list is requested for an empty cart
	ErrEmptyCart = errors.New("shopping cart is empty")
	// ErrInvalidCredentials covers unknown email, wrong password and inactive users
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is a client error tied to one input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a *ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
