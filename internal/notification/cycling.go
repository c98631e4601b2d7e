package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// DefaultAlertInterval bounds how often a cycling alert can fire when the
// forecast flaps around the threshold.
const DefaultAlertInterval = 30 * time.Minute

// CyclingAlert pushes a notification when the cycling warning switches on.
// A warning that stays on does not repeat; it has to clear first.
type CyclingAlert struct {
	notifier *Notifier
	limiter  *rate.Limiter
	log      logger.Logger

	mu     sync.Mutex
	active bool
}

// NewCyclingAlert returns an alert allowing one notification per interval.
func NewCyclingAlert(n *Notifier, interval time.Duration) *CyclingAlert {
	if interval <= 0 {
		interval = DefaultAlertInterval
	}
	return &CyclingAlert{
		notifier: n,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		log:      logger.Global().Module("notification"),
	}
}

// Observe feeds the latest warning. It reports whether a notification was
// sent.
func (a *CyclingAlert) Observe(ctx context.Context, cw weather.CyclingWarning) (bool, error) {
	a.mu.Lock()
	wasActive := a.active
	a.active = cw.Warning
	a.mu.Unlock()

	if !cw.Warning || wasActive {
		return false, nil
	}
	if !a.limiter.Allow() {
		// leave the edge unconsumed so a warning that persists fires once the interval passes
		a.mu.Lock()
		a.active = false
		a.mu.Unlock()
		a.log.Debug("cycling alert rate limited")
		return false, nil
	}

	if err := a.notifier.Send(ctx, CyclingNotification(cw)); err != nil {
		// retry on the next observation
		a.mu.Lock()
		a.active = false
		a.mu.Unlock()
		return false, err
	}
	return true, nil
}

// CyclingNotification formats the warning for a phone screen, e.g.
// "Rain from 15:00, 0.6 mm/h (light)".
func CyclingNotification(cw weather.CyclingWarning) Notification {
	what := cw.PrecipitationType
	if what == "" || what == weather.PrecipitationType(0) {
		what = "Precipitation"
	}
	msg := fmt.Sprintf("%s expected, %.1f mm/h", what, cw.PrecipitationMM)
	if cw.ForecastTime != "" {
		msg = fmt.Sprintf("%s from %s, %.1f mm/h", what, cw.ForecastTime, cw.PrecipitationMM)
	}
	if cw.Intensity != "" {
		msg += " (" + cw.Intensity + ")"
	}
	return Notification{
		Kind:    KindCycling,
		Title:   "Cycling weather",
		Message: msg,
	}
}
