package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NewNotFound("Bed", nil), http.StatusNotFound},
		{"bad request", NewBadRequest("bad", nil), http.StatusBadRequest},
		{"validation", NewValidation("Validation failed", nil), http.StatusBadRequest},
		{"conflict", NewConflict("taken", nil), http.StatusBadRequest},
		{"precondition", NewPrecondition("Bed is not available for assignment"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("", nil), http.StatusUnauthorized},
		{"forbidden", Forbidden(""), http.StatusForbidden},
		{"rate limited", TooManyRequests(), http.StatusTooManyRequests},
		{"unavailable", NewUnavailable(nil), http.StatusServiceUnavailable},
		{"internal", NewInternal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Patient not found", NewNotFound("Patient", nil).Message)
	assert.Equal(t, UnavailableMessage, NewUnavailable(nil).Message)
	assert.Equal(t, "unauthorized", Unauthorized("", nil).Message)
	assert.Equal(t, "permission denied", Forbidden("").Message)
}

func TestAsAndIs(t *testing.T) {
	cause := errors.New("db down")
	wrapped := fmt.Errorf("assign: %w", NewUnavailable(cause))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrUnavailable, appErr.Code)
	assert.True(t, Is(wrapped, ErrUnavailable))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.ErrorIs(t, wrapped, cause)

	_, ok = As(cause)
	assert.False(t, ok)
}

func TestError(t *testing.T) {
	assert.Equal(t, "taken", NewConflict("taken", nil).Error())
	assert.Equal(t, "taken: dup", NewConflict("taken", errors.New("dup")).Error())
}
