package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SunCalcMetrics tracks the sun-time cache.
type SunCalcMetrics struct {
	lookupsTotal         *prometheus.CounterVec
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter
	remoteFetchesTotal   *prometheus.CounterVec
	remoteDuration       prometheus.Histogram
	astralErrorsTotal    *prometheus.CounterVec
	sunriseTimestamp     prometheus.Gauge
	sunsetTimestamp      prometheus.Gauge
	daylightSecondsGauge prometheus.Gauge
}

// NewSunCalcMetrics creates and registers the sun-time metrics.
func NewSunCalcMetrics(registry *prometheus.Registry) (*SunCalcMetrics, error) {
	m := &SunCalcMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SunCalcMetrics) initMetrics() {
	m.lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suncalc_lookups_total",
			Help: "Sun time lookups by the source that answered",
		},
		[]string{"source"}, // remote, fallback, static_fallback
	)
	m.cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suncalc_cache_hits_total",
		Help: "Sun time lookups answered from the cache",
	})
	m.cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suncalc_cache_misses_total",
		Help: "Sun time lookups that missed the cache",
	})
	m.remoteFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suncalc_remote_fetches_total",
			Help: "Astronomy API requests by outcome",
		},
		[]string{"status"},
	)
	m.remoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "suncalc_remote_duration_seconds",
		Help:    "Astronomy API request duration",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	})
	m.astralErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suncalc_astral_errors_total",
			Help: "Civil twilight calculations that failed",
		},
		[]string{"calculation_type"},
	)
	m.sunriseTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "suncalc_sunrise_timestamp_seconds",
		Help: "Unix time of the most recently resolved sunrise",
	})
	m.sunsetTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "suncalc_sunset_timestamp_seconds",
		Help: "Unix time of the most recently resolved sunset",
	})
	m.daylightSecondsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "suncalc_daylight_seconds",
		Help: "Daylight duration of the most recently resolved day",
	})
}

// Describe implements the Collector interface
func (m *SunCalcMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.lookupsTotal.Describe(ch)
	m.cacheHitsTotal.Describe(ch)
	m.cacheMissesTotal.Describe(ch)
	m.remoteFetchesTotal.Describe(ch)
	m.remoteDuration.Describe(ch)
	m.astralErrorsTotal.Describe(ch)
	m.sunriseTimestamp.Describe(ch)
	m.sunsetTimestamp.Describe(ch)
	m.daylightSecondsGauge.Describe(ch)
}

// Collect implements the Collector interface
func (m *SunCalcMetrics) Collect(ch chan<- prometheus.Metric) {
	m.lookupsTotal.Collect(ch)
	m.cacheHitsTotal.Collect(ch)
	m.cacheMissesTotal.Collect(ch)
	m.remoteFetchesTotal.Collect(ch)
	m.remoteDuration.Collect(ch)
	m.astralErrorsTotal.Collect(ch)
	m.sunriseTimestamp.Collect(ch)
	m.sunsetTimestamp.Collect(ch)
	m.daylightSecondsGauge.Collect(ch)
}

// RecordLookup counts a lookup answered by source.
func (m *SunCalcMetrics) RecordLookup(source string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(source).Inc()
}

func (m *SunCalcMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

func (m *SunCalcMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Inc()
}

// RecordRemoteFetch records one astronomy API request.
func (m *SunCalcMetrics) RecordRemoteFetch(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteFetchesTotal.WithLabelValues(status).Inc()
	m.remoteDuration.Observe(duration.Seconds())
}

func (m *SunCalcMetrics) RecordAstralError(calculationType string) {
	if m == nil {
		return
	}
	m.astralErrorsTotal.WithLabelValues(calculationType).Inc()
}

// UpdateSunTimes publishes the latest resolved day.
func (m *SunCalcMetrics) UpdateSunTimes(sunrise, sunset time.Time) {
	if m == nil {
		return
	}
	m.sunriseTimestamp.Set(float64(sunrise.Unix()))
	m.sunsetTimestamp.Set(float64(sunset.Unix()))
	m.daylightSecondsGauge.Set(sunset.Sub(sunrise).Seconds())
}
