package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/internal/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, apperrors.ErrorResponse) {
	t.Helper()
	router := gin.New()
	router.Use(ErrorHandler(zap.NewNop()))
	router.GET("/", func(c *gin.Context) {
		_ = c.Error(err)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestErrorHandler(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		w, body := serveError(t, apperrors.RateLimited("recipe:generate", 90*time.Second+time.Millisecond))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "91", w.Header().Get("Retry-After"))
		assert.Equal(t, apperrors.CodeRateLimited, body.Error.Code)
		assert.Equal(t, "recipe:generate", body.Error.Details["scope"])
	})

	t.Run("insufficient stock details", func(t *testing.T) {
		err := apperrors.New(apperrors.CodeInsufficientStock, "not enough").
			WithDetail("shortfalls", []map[string]any{{"ingredient": "rice"}})
		w, body := serveError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, body.Error.Details, "shortfalls")
	})

	t.Run("conflict", func(t *testing.T) {
		w, body := serveError(t, apperrors.New(apperrors.CodeConflict, "changed"))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apperrors.CodeConflict, body.Error.Code)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		w, body := serveError(t, errors.New("pq: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, apperrors.CodeInternal, body.Error.Code)
		assert.Equal(t, "internal server error", body.Error.Message)
		assert.NotContains(t, w.Body.String(), "pq:")
	})
}

func TestErrorHandler_KeepsWrittenResponse(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(nil))
	router.GET("/", func(c *gin.Context) {
		_ = c.Error(errors.New("logged only"))
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}
