package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Actions(t *testing.T) {
	r := NewRecorder()
	r.ObserveAction("save", "ok", 10*time.Millisecond)
	r.ObserveAction("save", "ok", 20*time.Millisecond)
	r.ObserveAction("save", "invalid", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.actionsTotal.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.actionsTotal.WithLabelValues("save", "invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.actionLatency))
}

func TestRecorder_MetricStatusOneHot(t *testing.T) {
	r := NewRecorder()
	all := []string{"ok", "low", "high", "nodata"}
	r.SetMetricStatus("temp", "low", all)
	r.SetMetricStatus("temp", "ok", all)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metricStatus.WithLabelValues("temp", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.metricStatus.WithLabelValues("temp", "low")))
}

func TestRecorder_ReportsAndReadings(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport("month", nil)
	r.ObserveReport("date", errors.New("boom"))
	r.ObserveReadings("mock")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.reportsTotal.WithLabelValues("month", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reportsTotal.WithLabelValues("date", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.readingsSource.WithLabelValues("mock")))
}

func TestRecorder_MiddlewareAndHandler(t *testing.T) {
	r := NewRecorder()
	h := r.Middleware(func(*http.Request) string { return "/api/v1/settings" }, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/settings/save", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("POST", "/api/v1/settings", "409")))

	rr = httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "aquawatch_http_requests_total"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
