package app

import (
	"context"
	"time"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
	"github.com/tphakala/epaper-weather/internal/render"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// ReasonForced marks a push requested regardless of change detection.
const ReasonForced = "forced"

// Result describes one refresh cycle.
type Result struct {
	Snapshot weather.WeatherSnapshot
	Frame    *render.Frame
	Pushed   bool
	Reason   string // why the frame was pushed or skipped
	Notified bool
}

// Cycle fetches, renders and, when the displayed values changed or force is
// set, pushes the frame to every output. The snapshot is then published and
// the cycling alert evaluated. Output failures are returned; broker and
// notification failures are only logged.
func (a *App) Cycle(ctx context.Context, force bool) (*Result, error) {
	a.cycleMu.Lock()
	defer a.cycleMu.Unlock()

	now := a.Now()
	snap := a.source.GetCurrentWeather(ctx, now)
	frame := a.dashboard.Render(&snap, now)
	a.metrics.Display.SetIconCacheEntries(a.icons.Len())

	png, err := encodeFrame(frame)
	if err != nil {
		a.log.Warn("failed to encode frame", logger.Error(err))
	}
	a.mu.Lock()
	a.lastSnap, a.lastFrame = &snap, frame
	if png != nil {
		a.lastPNG = png
	}
	a.mu.Unlock()

	res := &Result{Snapshot: snap, Frame: frame, Reason: ReasonForced}
	log := a.log.With(logger.String("run_id", frame.RunID))

	state := render.NewDisplayState(&snap, frame)
	update := true
	if !force {
		update, res.Reason = a.shouldUpdate(state)
	}

	var pushErr error
	if update {
		pushErr = a.push(ctx, frame)
		res.Pushed = pushErr == nil
		if res.Pushed {
			if err := render.SaveState(a.settings.Output.StateFile, state); err != nil {
				log.Warn("failed to save display state", logger.Error(err))
			}
		}
		log.Info("display refreshed",
			logger.String("reason", res.Reason),
			logger.Bool("pushed", res.Pushed),
			logger.Int("outputs", len(a.outputs)))
	} else {
		a.metrics.Display.RecordSkipped(res.Reason)
		log.Debug("display unchanged, skipping push")
	}

	if a.publisher != nil {
		if err := a.publisher.PublishSnapshot(ctx, &snap); err != nil {
			log.Warn("failed to publish snapshot", logger.Error(err))
		}
	}
	if a.alert != nil {
		sent, err := a.alert.Observe(ctx, snap.Cycling)
		if err != nil {
			log.Warn("failed to send cycling alert", logger.Error(err))
		}
		res.Notified = sent
	}

	return res, pushErr
}

func (a *App) shouldUpdate(next render.DisplayState) (bool, string) {
	prev, err := render.LoadState(a.settings.Output.StateFile)
	if err != nil {
		// unreadable state counts as a first run
		a.log.Warn("ignoring unreadable display state", logger.Error(err))
		prev = nil
	}
	return render.ShouldUpdate(prev, next, a.settings.Display.Watchdog)
}

// push sends the frame to every output; one failing output does not stop
// the others.
func (a *App) push(ctx context.Context, frame *render.Frame) error {
	var errs []error
	for _, o := range a.outputs {
		if err := o.Push(ctx, frame.Image); err != nil {
			a.metrics.Display.RecordPush(o.Name(), metrics.StatusError)
			errs = append(errs, err)
			continue
		}
		a.metrics.Display.RecordPush(o.Name(), metrics.StatusSuccess)
	}
	return errors.Join(errs...)
}

// Run cycles immediately and then every display.refresh until ctx ends.
func (a *App) Run(ctx context.Context) error {
	interval := a.settings.Display.Refresh
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	a.log.Info("starting refresh loop", logger.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := a.Cycle(ctx, false); err != nil {
			a.log.Error("refresh cycle failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			a.log.Info("refresh loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}
