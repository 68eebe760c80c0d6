package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{NotFound("sale", 1), http.StatusNotFound},
		{Conflict("duplicate", nil), http.StatusConflict},
		{Forbidden("admin only"), http.StatusForbidden},
		{InvalidTransition("sale", "SHIPPED", "CANCELLED"), http.StatusUnprocessableEntity},
		{InsufficientStock(1, 2, 5), http.StatusUnprocessableEntity},
		{Validation("bad input"), http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Error())
	}
}

func TestAsUnwrapsThroughChain(t *testing.T) {
	wrapped := fmt.Errorf("outer context: %w", NotFound("sale", 1))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsCode(t *testing.T) {
	err := InvalidTransition("sale", "DELIVERED", "CANCELLED")

	assert.True(t, IsCode(err, CodeInvalidTransition))
	assert.False(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}

func TestDetailsCarryMachineReadableContext(t *testing.T) {
	err := InsufficientStock(7, 2, 5)

	assert.Equal(t, uint(7), err.Details["stock_item_id"])
	assert.Equal(t, 2, err.Details["available"])
	assert.Equal(t, 5, err.Details["requested"])
}
