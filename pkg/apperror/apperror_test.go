package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_CodeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidation("bad input"), CodeValidation, http.StatusBadRequest},
		{"not found", NewNotFound("sale", "abc"), CodeNotFound, http.StatusNotFound},
		{"unknown reference", NewUnknownReference("product", "abc"), CodeUnknownReference, http.StatusUnprocessableEntity},
		{"insufficient stock", NewInsufficientStock("p1", "6", "4"), CodeInsufficientStock, http.StatusUnprocessableEntity},
		{"duplicate invoice", NewDuplicateInvoiceNumber("INV-20250615-0001"), CodeDuplicateInvoiceNumber, http.StatusConflict},
		{"duplicate entry", NewDuplicate("product", "sku", "ARM003"), CodeDuplicate, http.StatusConflict},
		{"deletion not allowed", NewDeletionNotAllowed("s1", "completed"), CodeDeletionNotAllowed, http.StatusUnprocessableEntity},
		{"unauthorized", NewUnauthorized("bad creds"), CodeUnauthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.True(t, HasCode(tt.err, tt.wantCode))
		})
	}
}

func TestHasCode_WrappedError(t *testing.T) {
	inner := NewInsufficientStock("p1", "6", "4")
	wrapped := fmt.Errorf("create sale: %w", inner)

	assert.True(t, HasCode(wrapped, CodeInsufficientStock))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInsufficientStock))
}

func TestInsufficientStock_Details(t *testing.T) {
	err := NewInsufficientStock("prod-1", "6.00", "4.00")

	assert.Equal(t, "prod-1", err.Details["product_id"])
	assert.Equal(t, "6.00", err.Details["requested"])
	assert.Equal(t, "4.00", err.Details["available"])
}

func TestWithDetailAndCause(t *testing.T) {
	cause := errors.New("db down")
	err := NewValidation("bad").WithDetail("field", "qty").WithCause(cause)

	assert.Equal(t, "qty", err.Details["field"])
	assert.ErrorIs(t, err, cause)
}
