// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for HTTP mapping and client retry decisions.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeInvalidTransition Code = "invalid_transition"
	CodeConflict          Code = "conflict"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeForbidden         Code = "forbidden"
	CodeValidation        Code = "validation"
)

// Error is the structured error carried across the service layer. Details is
// optional and holds machine-readable context (attempted transition, stock
// shortfall, hash mismatch) so clients can decide how to react.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidTransition, CodeInsufficientStock, CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NotFound reports an entity absent or outside the caller's tenant scope.
func NotFound(entity string, id interface{}) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]interface{}{"entity": entity, "id": id},
	}
}

// InvalidTransition reports a state-machine guard violation carrying the
// attempted from/to pair.
func InvalidTransition(entity, from, to string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid %s status transition from %s to %s", entity, from, to),
		Details: map[string]interface{}{"entity": entity, "from": from, "to": to},
	}
}

// Conflict reports a uniqueness violation or a reused idempotency key with a
// different payload.
func Conflict(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeConflict, Message: message, Details: details}
}

// InsufficientStock reports that an operation would drive a quantity negative.
func InsufficientStock(stockItemID uint, available, requested int) *Error {
	return &Error{
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: available %d, requested %d", available, requested),
		Details: map[string]interface{}{"stock_item_id": stockItemID, "available": available, "requested": requested},
	}
}

// Forbidden reports a role or ownership check failure.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Validation reports a request that fails a business precondition.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// Wrap attaches a cause to an Error.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}
