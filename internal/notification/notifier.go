// Package notification pushes short alerts through shoutrrr services
// (Telegram, ntfy, Pushover, generic webhooks, ...).
package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
	"github.com/tphakala/epaper-weather/internal/privacy"
)

// Kind labels a notification in logs and metrics.
type Kind string

const (
	KindCycling Kind = "cycling"
	KindTest    Kind = "test"
)

// Notification is a single push message.
type Notification struct {
	Kind    Kind
	Title   string
	Message string
}

// Sender delivers a message to every configured service. The shoutrrr
// router satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier sends notifications and records their outcome.
type Notifier struct {
	sender  Sender
	metrics *metrics.NotificationMetrics
	log     logger.Logger
}

// NewNotifier builds a shoutrrr router for the configured URLs.
func NewNotifier(s *conf.NotifySettings, m *metrics.NotificationMetrics) (*Notifier, error) {
	if len(s.URLs) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	router, err := shoutrrr.CreateSender(slices.Clone(s.URLs)...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(s.URLs)).
			Build()
	}
	if s.Timeout > 0 {
		router.Timeout = s.Timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))

	return NewNotifierWithSender(router, m), nil
}

// NewNotifierWithSender wraps an existing Sender.
func NewNotifierWithSender(sender Sender, m *metrics.NotificationMetrics) *Notifier {
	return &Notifier{
		sender:  sender,
		metrics: m,
		log:     logger.Global().Module("notification"),
	}
}

// Send delivers n to every service. The first failure is returned with any
// URL in its message redacted.
func (n *Notifier) Send(ctx context.Context, notif Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if notif.Title != "" {
		params.SetTitle(notif.Title)
	}

	start := time.Now()
	var firstErr error
	for _, e := range n.sender.Send(notif.Message, &params) {
		if e != nil {
			firstErr = e
			break
		}
	}
	elapsed := time.Since(start)

	if firstErr != nil {
		n.metrics.RecordDelivery(string(notif.Kind), metrics.StatusError, elapsed)
		return errors.New(privacy.WrapError(firstErr)).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("kind", string(notif.Kind)).
			Timing("send", elapsed).
			Build()
	}

	n.metrics.RecordDelivery(string(notif.Kind), metrics.StatusSuccess, elapsed)
	n.log.Info("notification sent",
		logger.String("kind", string(notif.Kind)),
		logger.Duration("duration", elapsed))
	return nil
}
