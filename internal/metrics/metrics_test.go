package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RateLimitDecisions.WithLabelValues("recipe:generate", "denied").Inc()
	m.GenerationResults.WithLabelValues("fallback").Inc()
	m.GenerationResults.WithLabelValues("fallback").Inc()
	m.CookOutcomes.WithLabelValues("conflict").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues("recipe:generate", "denied")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GenerationResults.WithLabelValues("fallback")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CookOutcomes.WithLabelValues("conflict")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)
	m.CandidatesRejected.Add(3)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "pantrychef_candidates_rejected_total 3"))
}
