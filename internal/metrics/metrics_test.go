package metrics

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

func TestMetrics_Recording(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch(OutcomeHit, 2*time.Millisecond)
	m.ObserveSearch(OutcomeHit, time.Millisecond)
	m.ObserveSearch(OutcomeBuffered, 0)
	m.Superseded()
	m.IndexLoaded(nil, 42)
	m.IndexLoaded(errors.New("bad"), 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(OutcomeBuffered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SupersededTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexLoadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexLoadsTotal.WithLabelValues("failure")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.IndexDocuments))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(OutcomeZero, time.Second)
		m.Superseded()
		m.IndexLoaded(nil, 1)
		m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.ObserveHTTP("POST", "/api/v1/search", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "shiori_http_requests_total"), body)
	assert.True(t, strings.Contains(body, "shiori_index_documents"), body)
}
