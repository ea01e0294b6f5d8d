package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Authentication and access errors.
var (
	ErrUnauthenticated      = errors.New("access denied, no token provided")
	ErrInvalidToken         = errors.New("invalid token")
	ErrPrincipalNotFound    = errors.New("token is valid but user not found")
	ErrAccountDeactivated   = errors.New("account has been deactivated")
	ErrForbidden            = errors.New("access forbidden")
	ErrUnverifiedAccount    = errors.New("account verification required")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrIncorrectPassword    = errors.New("current password is incorrect")
	ErrUserExists           = errors.New("user with this email already exists")
	ErrTooManyRequests      = errors.New("too many requests, please try again later")
	ErrConcurrentUpdate     = errors.New("entity was modified concurrently")
	ErrInvalidID            = errors.New("invalid identifier")
	ErrMediaRejected        = errors.New("only image files are allowed")
	ErrMediaTooLarge        = errors.New("file too large")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// Lookup errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrVendorNotFound  = errors.New("vendor not found")
)

// Business rule errors.
var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock available")
	ErrSelfOrder          = errors.New("you cannot order your own product")
	ErrSelfReview         = errors.New("you cannot review your own product")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyRated       = errors.New("order has already been rated")
)

// StockError reports how many units a listing can still supply.
type StockError struct {
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d items available in stock", e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level input problems. Message, when set,
// replaces the generic summary shown to clients.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Add appends a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field problems were collected.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
