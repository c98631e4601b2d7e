package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DisplayMetrics tracks frame rendering and output pushes.
type DisplayMetrics struct {
	rendersTotal     *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	moduleFailures   *prometheus.CounterVec
	pushesTotal      *prometheus.CounterVec
	skippedTotal     *prometheus.CounterVec
	lastPush         prometheus.Gauge
	iconCacheEntries prometheus.Gauge
}

// NewDisplayMetrics creates and registers the display metrics.
func NewDisplayMetrics(registry *prometheus.Registry) (*DisplayMetrics, error) {
	m := &DisplayMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DisplayMetrics) initMetrics() {
	m.rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_renders_total",
			Help: "Rendered frames by outcome",
		},
		[]string{"status"},
	)
	m.renderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "display_render_duration_seconds",
		Help:    "Time taken to compose a frame",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})
	m.moduleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_module_failures_total",
			Help: "Module renders that drew their fallback",
		},
		[]string{"module"},
	)
	m.pushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_pushes_total",
			Help: "Frames written to an output by outcome",
		},
		[]string{"output", "status"},
	)
	m.skippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_updates_skipped_total",
			Help: "Update cycles that found nothing to redraw",
		},
		[]string{"reason"},
	)
	m.lastPush = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "display_last_push_timestamp_seconds",
		Help: "Unix time of the last successful push",
	})
	m.iconCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "display_icon_cache_entries",
		Help: "Converted icons held in memory",
	})
}

// Describe implements the Collector interface
func (m *DisplayMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.rendersTotal.Describe(ch)
	m.renderDuration.Describe(ch)
	m.moduleFailures.Describe(ch)
	m.pushesTotal.Describe(ch)
	m.skippedTotal.Describe(ch)
	m.lastPush.Describe(ch)
	m.iconCacheEntries.Describe(ch)
}

// Collect implements the Collector interface
func (m *DisplayMetrics) Collect(ch chan<- prometheus.Metric) {
	m.rendersTotal.Collect(ch)
	m.renderDuration.Collect(ch)
	m.moduleFailures.Collect(ch)
	m.pushesTotal.Collect(ch)
	m.skippedTotal.Collect(ch)
	m.lastPush.Collect(ch)
	m.iconCacheEntries.Collect(ch)
}

func (m *DisplayMetrics) RecordRender(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(status).Inc()
	m.renderDuration.Observe(duration.Seconds())
}

func (m *DisplayMetrics) RecordModuleFailure(module string) {
	if m == nil {
		return
	}
	m.moduleFailures.WithLabelValues(module).Inc()
}

// RecordPush records a frame written to output.
func (m *DisplayMetrics) RecordPush(output, status string) {
	if m == nil {
		return
	}
	m.pushesTotal.WithLabelValues(output, status).Inc()
	if status == StatusSuccess {
		m.lastPush.SetToCurrentTime()
	}
}

func (m *DisplayMetrics) RecordSkipped(reason string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(reason).Inc()
}

func (m *DisplayMetrics) SetIconCacheEntries(n int) {
	if m == nil {
		return
	}
	m.iconCacheEntries.Set(float64(n))
}
