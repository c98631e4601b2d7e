package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks push notifications sent through shoutrrr.
type NotificationMetrics struct {
	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration prometheus.Histogram
	lastSuccess      prometheus.Gauge
}

// NewNotificationMetrics creates and registers the notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Push notification deliveries by kind and outcome",
		},
		[]string{"kind", "status"},
	)
	m.deliveryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notification_delivery_duration_seconds",
		Help:    "Time taken to deliver a notification to every service",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notification_last_success_timestamp_seconds",
		Help: "Unix time of the last successful delivery",
	})
}

// Describe implements the Collector interface
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.deliveriesTotal.Describe(ch)
	m.deliveryDuration.Describe(ch)
	m.lastSuccess.Describe(ch)
}

// Collect implements the Collector interface
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.deliveriesTotal.Collect(ch)
	m.deliveryDuration.Collect(ch)
	m.lastSuccess.Collect(ch)
}

// RecordDelivery records one notification attempt.
func (m *NotificationMetrics) RecordDelivery(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(kind, status).Inc()
	m.deliveryDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		m.lastSuccess.SetToCurrentTime()
	}
}
