// Package apperror provides structured business errors for the POS core.
// Every expected, recoverable outcome (insufficient stock, duplicate invoice,
// deletion of a non-pending sale) is an AppError with a machine-readable code
// and enough detail to render a specific user-facing message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeInternal               = "INTERNAL_ERROR"
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeUnknownReference       = "UNKNOWN_REFERENCE"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeDuplicateInvoiceNumber = "DUPLICATE_INVOICE_NUMBER"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeDeletionNotAllowed     = "DELETION_NOT_ALLOWED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
)

// AppError is the standard error type for business outcomes.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/As on the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404).
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewUnknownReference signals a request referencing a missing or inactive entity (422).
func NewUnknownReference(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeUnknownReference,
		Message:    fmt.Sprintf("referenced %s does not exist or is inactive", entity),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock signals that an adjustment would drive stock negative (422).
func NewInsufficientStock(productID string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewDuplicateInvoiceNumber signals an invoice number collision (409).
// Callers should retry with a freshly generated number.
func NewDuplicateInvoiceNumber(invoiceNumber string) *AppError {
	return &AppError{
		Code:       CodeDuplicateInvoiceNumber,
		Message:    "invoice number already exists",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"invoice_number": invoiceNumber},
	}
}

// NewDuplicate creates a duplicate entry error (409).
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewDeletionNotAllowed rejects deletion of a sale that is not pending (422).
func NewDeletionNotAllowed(saleID, status string) *AppError {
	return &AppError{
		Code:       CodeDeletionNotAllowed,
		Message:    "only pending sales can be deleted",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"sale_id": saleID, "status": status},
	}
}

// NewUnauthorized creates an authentication error (401).
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInternal creates an internal error (500); the cause is kept out of JSON.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helpers ---

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status for any error.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
