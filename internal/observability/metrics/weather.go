package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WeatherMetrics tracks source fetches and the merged snapshot.
type WeatherMetrics struct {
	fetchesTotal       *prometheus.CounterVec
	fetchDuration      *prometheus.HistogramVec
	cacheHitsTotal     *prometheus.CounterVec
	fallbackTotal      prometheus.Counter
	temperatureGauge   prometheus.Gauge
	pressureGauge      prometheus.Gauge
	precipitationGauge prometheus.Gauge
	forecastPrecip2h   prometheus.Gauge
	windSpeedGauge     prometheus.Gauge
	cyclingWarning     prometheus.Gauge
}

// NewWeatherMetrics creates and registers the weather metrics.
func NewWeatherMetrics(registry *prometheus.Registry) (*WeatherMetrics, error) {
	m := &WeatherMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *WeatherMetrics) initMetrics() {
	m.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetches_total",
			Help: "Weather source fetches by provider and outcome",
		},
		[]string{"provider", "status"},
	)
	m.fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_fetch_duration_seconds",
			Help:    "Time taken to fetch a weather source",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"provider"},
	)
	m.cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_hits_total",
			Help: "Weather source reads answered from the in-memory cache",
		},
		[]string{"provider"},
	)
	m.fallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "weather_fallback_snapshots_total",
		Help: "Snapshots built from hardcoded fallback values",
	})
	m.temperatureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weather_temperature_celsius",
		Help: "Current merged temperature",
	})
	m.pressureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weather_pressure_hpa",
		Help: "Current merged air pressure",
	})
	m.precipitationGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weather_precipitation_mm",
		Help: "Current precipitation",
	})
	m.forecastPrecip2h = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weather_forecast_precipitation_2h_mm",
		Help: "Maximum forecast precipitation within the next two hours",
	})
	m.windSpeedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weather_wind_speed_mps",
		Help: "Current wind speed",
	})
	m.cyclingWarning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "weather_cycling_warning",
		Help: "1 when rain is expected within two hours",
	})
}

// Describe implements the Collector interface
func (m *WeatherMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.fetchesTotal.Describe(ch)
	m.fetchDuration.Describe(ch)
	m.cacheHitsTotal.Describe(ch)
	m.fallbackTotal.Describe(ch)
	m.temperatureGauge.Describe(ch)
	m.pressureGauge.Describe(ch)
	m.precipitationGauge.Describe(ch)
	m.forecastPrecip2h.Describe(ch)
	m.windSpeedGauge.Describe(ch)
	m.cyclingWarning.Describe(ch)
}

// Collect implements the Collector interface
func (m *WeatherMetrics) Collect(ch chan<- prometheus.Metric) {
	m.fetchesTotal.Collect(ch)
	m.fetchDuration.Collect(ch)
	m.cacheHitsTotal.Collect(ch)
	m.fallbackTotal.Collect(ch)
	m.temperatureGauge.Collect(ch)
	m.pressureGauge.Collect(ch)
	m.precipitationGauge.Collect(ch)
	m.forecastPrecip2h.Collect(ch)
	m.windSpeedGauge.Collect(ch)
	m.cyclingWarning.Collect(ch)
}

// RecordFetch records one remote fetch of provider.
func (m *WeatherMetrics) RecordFetch(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(provider, status).Inc()
	m.fetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *WeatherMetrics) RecordCacheHit(provider string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(provider).Inc()
}

func (m *WeatherMetrics) RecordFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}

// SnapshotValues is the subset of a merged snapshot exported as gauges.
type SnapshotValues struct {
	Temperature             float64
	Pressure                float64
	Precipitation           float64
	ForecastPrecipitation2h float64
	WindSpeed               float64
	CyclingWarning          bool
}

// UpdateSnapshot publishes the latest merged values.
func (m *WeatherMetrics) UpdateSnapshot(v SnapshotValues) {
	if m == nil {
		return
	}
	m.temperatureGauge.Set(v.Temperature)
	m.pressureGauge.Set(v.Pressure)
	m.precipitationGauge.Set(v.Precipitation)
	m.forecastPrecip2h.Set(v.ForecastPrecipitation2h)
	m.windSpeedGauge.Set(v.WindSpeed)
	if v.CyclingWarning {
		m.cyclingWarning.Set(1)
	} else {
		m.cyclingWarning.Set(0)
	}
}
