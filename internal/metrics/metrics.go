package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "aquawatch_"

// Recorder console metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	actionsTotal    *prometheus.CounterVec
	actionLatency   *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	readingsSource  *prometheus.CounterVec
	metricStatus    *prometheus.GaugeVec
	reportsTotal    *prometheus.CounterVec
}

// NewRecorder registers all collectors, plus Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settings_actions_total",
				Help: "Settings session actions by outcome",
			},
			[]string{"action", "outcome"},
		),
		actionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settings_action_duration_seconds",
				Help:    "Settings session action duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total number of console API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "Console API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		readingsSource: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_fetch_total",
				Help: "Today readings fetches by source (api or mock)",
			},
			[]string{"source"},
		),
		metricStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "metric_status",
				Help: "1 for the current status of each water metric",
			},
			[]string{"metric", "status"},
		),
		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Report exports by mode and result",
			},
			[]string{"mode", "result"},
		),
	}
	r.registry.MustRegister(
		r.actionsTotal,
		r.actionLatency,
		r.requestsTotal,
		r.requestDuration,
		r.readingsSource,
		r.metricStatus,
		r.reportsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveAction implements service.ActionObserver.
func (r *Recorder) ObserveAction(action, outcome string, elapsed time.Duration) {
	r.actionsTotal.WithLabelValues(action, outcome).Inc()
	r.actionLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveRequest records one console API request.
func (r *Recorder) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveReadings counts where today's readings came from.
func (r *Recorder) ObserveReadings(source string) {
	r.readingsSource.WithLabelValues(source).Inc()
}

// SetMetricStatus sets the status gauge of metric to 1 for status and 0 for the others.
func (r *Recorder) SetMetricStatus(metric, status string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == status {
			v = 1
		}
		r.metricStatus.WithLabelValues(metric, s).Set(v)
	}
}

// ObserveReport counts one report export.
func (r *Recorder) ObserveReport(mode string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.reportsTotal.WithLabelValues(mode, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency. endpoint keeps label cardinality bounded.
func (r *Recorder) Middleware(endpoint func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, req)
		r.ObserveRequest(req.Method, endpoint(req), sr.status, time.Since(start))
	})
}
