// Package telemetry wires opt-in Sentry error reporting.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/epaper-weather/internal/buildinfo"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/privacy"
)

// InitSentry initializes the SDK and installs the errors package reporter.
// Nothing happens unless Sentry is enabled and a DSN is configured.
func InitSentry(s *conf.SentrySettings, bi *buildinfo.Context) error {
	return initSentry(s, bi, nil)
}

func initSentry(s *conf.SentrySettings, bi *buildinfo.Context, transport sentry.Transport) error {
	log := logger.Global().Module("telemetry")
	if !s.Enabled {
		log.Debug("sentry telemetry disabled")
		errors.SetTelemetryReporter(nil)
		return nil
	}
	if s.DSN == "" {
		return errors.Newf("sentry enabled without a DSN").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sampleRate := s.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	env := s.Environment
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.DSN,
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "",
		Release:          bi.Release(),
		Transport:        transport,
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("sentry telemetry enabled",
		logger.String("environment", env),
		logger.Float64("sample_rate", sampleRate))
	return nil
}

// applyPrivacyFilters strips host identity and scrubs URLs from messages.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// Flush waits for queued events.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
