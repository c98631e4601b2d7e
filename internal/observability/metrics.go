// Package observability bundles the Prometheus collectors of the application
// into one registry and serves them.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/epaper-weather/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	MQTT         *metrics.MQTTMetrics
	Weather      *metrics.WeatherMetrics
	SunCalc      *metrics.SunCalcMetrics
	Display      *metrics.DisplayMetrics
	HTTP         *metrics.HTTPMetrics
	Notification *metrics.NotificationMetrics
}

// NewMetrics creates a registry with every collector registered. Each call
// returns an independent registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}
	weatherMetrics, err := metrics.NewWeatherMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weather metrics: %w", err)
	}
	sunCalcMetrics, err := metrics.NewSunCalcMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create SunCalc metrics: %w", err)
	}
	displayMetrics, err := metrics.NewDisplayMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Display metrics: %w", err)
	}
	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Notification metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		MQTT:         mqttMetrics,
		Weather:      weatherMetrics,
		SunCalc:      sunCalcMetrics,
		Display:      displayMetrics,
		HTTP:         httpMetrics,
		Notification: notificationMetrics,
	}, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
