package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error operations.
const (
	MQTTOpResolve        = "resolve"
	MQTTOpConnect        = "connect"
	MQTTOpPublish        = "publish"
	MQTTOpConnectionLost = "connection_lost"
)

// MQTTMetrics tracks the broker connection and the per-topic snapshot
// publishes.
type MQTTMetrics struct {
	connected       prometheus.Gauge
	lastConnect     prometheus.Gauge
	reconnects      prometheus.Counter
	messages        *prometheus.CounterVec   // topic, status
	errors          *prometheus.CounterVec   // operation
	payloadBytes    *prometheus.HistogramVec // topic
	publishDuration prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 while connected to the broker",
		}),
		lastConnect: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_last_connect_timestamp_seconds",
			Help: "Unix time of the last successful broker connection",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_reconnects_total",
			Help: "Automatic reconnection attempts",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_messages_total",
			Help: "Published messages by topic suffix and outcome",
		}, []string{"topic", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "Broker errors by operation",
		}, []string{"operation"}),
		payloadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mqtt_payload_size_bytes",
			Help:    "Size of published payloads",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}, []string{"topic"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// UpdateConnectionStatus records a connection state change.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if !connected {
		m.connected.Set(0)
		return
	}
	m.connected.Set(1)
	m.lastConnect.SetToCurrentTime()
}

func (m *MQTTMetrics) IncrementReconnectAttempts() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// RecordError counts a failed broker operation, one of the MQTTOp constants.
func (m *MQTTMetrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation).Inc()
}

// RecordPublish records one publish attempt on topic. Size and latency are
// only observed for successful publishes.
func (m *MQTTMetrics) RecordPublish(topic, status string, sizeBytes int, latency time.Duration) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(topic, status).Inc()
	if status != StatusSuccess {
		m.errors.WithLabelValues(MQTTOpPublish).Inc()
		return
	}
	m.payloadBytes.WithLabelValues(topic).Observe(float64(sizeBytes))
	m.publishDuration.Observe(latency.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.connected.Describe(ch)
	m.lastConnect.Describe(ch)
	m.reconnects.Describe(ch)
	m.messages.Describe(ch)
	m.errors.Describe(ch)
	m.payloadBytes.Describe(ch)
	m.publishDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.connected.Collect(ch)
	m.lastConnect.Collect(ch)
	m.reconnects.Collect(ch)
	m.messages.Collect(ch)
	m.errors.Collect(ch)
	m.payloadBytes.Collect(ch)
	m.publishDuration.Collect(ch)
}
