package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidQuantity rejects a quantity outside the allowed range.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInsufficientStock aborts a checkout that would oversell a product.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart occurs when checking out a cart without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition rejects a status change outside the state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrLockTimeout indicates the product row could not be locked in time. Retryable.
	ErrLockTimeout = errors.New("resource busy, retry later")
	// ErrForbidden indicates the actor lacks the capability.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or unknown actor.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrIdempotencyConflict indicates the request key was already used.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)

// ValidationError carries per-field messages and unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UserSafeMessage returns a message that can be shown to API clients.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range []error{
		ErrValidation, ErrNotFound, ErrInvalidQuantity, ErrInsufficientStock,
		ErrEmptyCart, ErrInvalidTransition, ErrLockTimeout, ErrForbidden,
		ErrUnauthorized, ErrIdempotencyConflict,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return "internal error"
}
