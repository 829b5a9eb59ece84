package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := Wrap(errors.New("version moved"), "cooking.Cook", CodeConflict, "stock changed")
	wrapped := fmt.Errorf("handler: %w", err)

	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.NotErrorIs(t, wrapped, ErrInsufficientStock)
	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, CodeConflict, GetCode(wrapped))
	assert.Equal(t, "cooking.Cook: stock changed: version moved", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeNoStock, http.StatusUnprocessableEntity},
		{CodeInsufficientStock, http.StatusUnprocessableEntity},
		{CodeConflict, http.StatusConflict},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeGenerationExhausted, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus())
		})
	}

	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestRateLimited(t *testing.T) {
	err := RateLimited("recipe:generate", 1500*time.Millisecond)

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, err.Retryable)
	assert.Equal(t, 2, RetryAfterSeconds(err))
	assert.Equal(t, "recipe:generate", err.Details["scope"])
}

func TestInsufficientStockIsTerminal(t *testing.T) {
	err := New(CodeInsufficientStock, "not enough tomato")
	assert.False(t, IsRetryable(err))
}

func TestFrom(t *testing.T) {
	plain := errors.New("db down")
	e := From(plain)
	assert.Equal(t, CodeInternal, e.Code)
	assert.ErrorIs(t, e, plain)

	nf := NotFound("recipe", "abc")
	assert.Same(t, nf, From(fmt.Errorf("wrap: %w", nf)))
	assert.Equal(t, "abc", nf.ToResponse().Error.Details["id"])
}
