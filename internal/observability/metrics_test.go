package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics("", nil)
	b := NewMetrics("", prometheus.NewRegistry())
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordObservation("saved")
	m.RecordObservation("saved")
	m.RecordObservation("invalid_value")
	m.RecordClassification("fd")
	m.RecordAutofill("http", 3)
	m.RecordAdvice("remote", "ok", 120*time.Millisecond)
	m.RecordStoreOp("set", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Observations.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Observations.WithLabelValues("invalid_value")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesClassified.WithLabelValues("fd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutofillRuns.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdviceRequestsTotal.WithLabelValues("remote", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileStoreOps.WithLabelValues("set", "error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordObservation("saved")
		m.RecordAutofill("cli", 1)
		m.RecordAdvice("local", "ok", time.Second)
		m.RecordStoreOp("get", nil)
	})
}

func TestMetrics_HandlerAndMiddleware(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	h := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="GET",path="/brew",status="418"} 1`), body)
}
