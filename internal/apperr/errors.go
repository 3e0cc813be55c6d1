// Package apperr holds the error taxonomy shared by the services and mapped to
// HTTP statuses by the handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type MissingCustomerInfoError struct {
	Fields []string
}

func (e MissingCustomerInfoError) Error() string {
	return "missing customer info: " + strings.Join(e.Fields, ", ")
}

type NotFoundError struct {
	Resource string
	ID       any
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string {
	return e.Message
}

type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

type TransitionError struct {
	Field string
	From  string
	To    string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("illegal %s transition %s -> %s", e.Field, e.From, e.To)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var c ConflictError
	return errors.As(err, &c)
}
