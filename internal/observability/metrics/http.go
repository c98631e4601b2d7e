package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// HTTPMetrics tracks requests served by the daemon's HTTP server.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers the HTTP server metrics.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"route"},
	)
	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response body size",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2*2, BucketCount10),
		},
		[]string{"route"},
	)
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.responseSize.Describe(ch)
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.responseSize.Collect(ch)
}

// RecordRequest records one served request.
func (m *HTTPMetrics) RecordRequest(route, method string, code int, duration time.Duration, size int64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
	m.responseSize.WithLabelValues(route).Observe(float64(size))
}

// RequestCount returns the number of requests recorded for route, method and
// code. Used by the status endpoint.
func (m *HTTPMetrics) RequestCount(route, method string, code int) float64 {
	if m == nil {
		return 0
	}
	counter, err := m.requestsTotal.GetMetricWithLabelValues(route, method, strconv.Itoa(code))
	if err != nil {
		return 0
	}
	var out dto.Metric
	if err := counter.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
