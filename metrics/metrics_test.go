package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	m := New()
	m.IngestionRows("accepted", 3)
	m.IngestionRows("accepted", 0)
	m.IngestionRows("rejected", 1)
	m.Submission("contains")
	m.Reconcile(true, 12)
	m.Reconcile(false, 0)
	m.QuotaDenied("NEW")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ingestionRows.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestionRows.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("contains")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciles.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.viewRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quotaDenials.WithLabelValues("NEW")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IngestionRows("accepted", 1)
		m.Submission("contains")
		m.Reconcile(true, 1)
		m.QuotaDenied("NEW")
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Submission("verified-free")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `registry_submissions_total{status="verified-free"} 1`)
}
