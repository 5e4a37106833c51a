// Package apperr holds the request-scoped error taxonomy shared by the
// services and the transport layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sawirricardo/remix-realworld/internal/storage"
)

// ValidationError carries field-level messages. No write has happened.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty validation error
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for a field
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field failed
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// ErrOrNil returns e when it holds at least one field error
func (e *ValidationError) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// ForbiddenError rejects a mutation the caller may not perform.
type ForbiddenError struct {
	Reason string
}

// Forbidden creates a ForbiddenError
func Forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// NotAuthenticatedError defers an operation until the caller signs in.
// RedirectTo is the login location carrying the original destination.
type NotAuthenticatedError struct {
	RedirectTo string
}

func (e *NotAuthenticatedError) Error() string {
	return "authentication required"
}

// NotFoundError reports a missing target
type NotFoundError struct {
	Resource string
	Key      string
}

// NotFound creates a NotFoundError
func NotFound(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ErrConflict is returned when a unique constraint could not be satisfied
// after recovery was attempted.
var ErrConflict = storage.ErrConflict

// Kind classifies err for transport mapping
type Kind int

// Error kinds
const (
	KindInternal Kind = iota
	KindValidation
	KindForbidden
	KindNotAuthenticated
	KindNotFound
	KindConflict
)

// KindOf returns the kind of err
func KindOf(err error) Kind {
	var (
		validation *ValidationError
		forbidden  *ForbiddenError
		unauth     *NotAuthenticatedError
		notFound   *NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &forbidden):
		return KindForbidden
	case errors.As(err, &unauth):
		return KindNotAuthenticated
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
