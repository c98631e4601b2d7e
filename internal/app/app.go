// Package app wires the weather sources, renderer and outputs together and
// runs the refresh cycle used by the CLI commands and the daemon.
package app

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/tphakala/epaper-weather/internal/cache"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/httpclient"
	"github.com/tphakala/epaper-weather/internal/icons"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/mqtt"
	"github.com/tphakala/epaper-weather/internal/notification"
	"github.com/tphakala/epaper-weather/internal/observability"
	"github.com/tphakala/epaper-weather/internal/render"
	"github.com/tphakala/epaper-weather/internal/suncalc"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// SnapshotSource produces the merged weather snapshot. *weather.Client
// implements it.
type SnapshotSource interface {
	GetCurrentWeather(ctx context.Context, now time.Time) weather.WeatherSnapshot
}

// Publisher receives every fetched snapshot. *mqtt.Publisher implements it.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *weather.WeatherSnapshot) error
	Close()
}

// Option customizes an App.
type Option func(*App)

// WithSource replaces the configured weather client.
func WithSource(s SnapshotSource) Option {
	return func(a *App) { a.source = s }
}

// WithOutputs replaces the outputs enabled in the configuration.
func WithOutputs(outs ...display.Output) Option {
	return func(a *App) {
		a.outputs = outs
		a.customOutputs = true
	}
}

func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publisher = p }
}

func WithCyclingAlert(ca *notification.CyclingAlert) Option {
	return func(a *App) { a.alert = ca }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(a *App) { a.clock = clock }
}

// App owns every long-lived component. Cycle is safe for concurrent use
// with the Latest accessors; concurrent Cycle calls are serialized.
type App struct {
	settings *conf.Settings
	metrics  *observability.Metrics
	loc      *time.Location
	clock    func() time.Time
	log      logger.Logger

	http      *httpclient.Client
	store     cache.Store
	sun       *suncalc.SunCalc
	source    SnapshotSource
	icons     *icons.Manager
	fonts     *display.Fonts
	dashboard *render.Dashboard

	outputs       []display.Output
	customOutputs bool
	publisher     Publisher
	alert         *notification.CyclingAlert

	cycleMu sync.Mutex

	mu        sync.RWMutex
	lastSnap  *weather.WeatherSnapshot
	lastFrame *render.Frame
	lastPNG   []byte
}

// New builds the application from settings. m may be nil in one-shot
// commands that do not serve metrics.
func New(settings *conf.Settings, m *observability.Metrics, opts ...Option) (*App, error) {
	if m == nil {
		var err error
		if m, err = observability.NewMetrics(); err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategorySystem).
				Build()
		}
	}

	a := &App{
		settings: settings,
		metrics:  m,
		loc:      settings.TimeLocation(),
		clock:    time.Now,
		log:      logger.Global().Module("app"),
	}
	for _, opt := range opts {
		opt(a)
	}

	store, err := cache.Open(&settings.Cache)
	if err != nil {
		return nil, err
	}
	a.store = store

	hs := settings.Weather.HTTP
	hcfg := httpclient.DefaultConfig()
	if hs.Timeout > 0 {
		hcfg.DefaultTimeout = hs.Timeout
	}
	hcfg.RequestsPerSecond = hs.RequestsPerSecond
	if hs.Burst > 0 {
		hcfg.Burst = hs.Burst
	}
	a.http = httpclient.New(&hcfg)

	a.sun = suncalc.New(suncalc.ConfigFromSettings(settings), a.store, a.http,
		suncalc.WithMetrics(m.SunCalc))
	if a.source == nil {
		a.source = weather.NewClient(settings, a.sun, a.http, weather.WithMetrics(m.Weather))
	}

	a.icons = icons.New(settings.Icons.Dir, icons.WithMetrics(m.Display))
	a.fonts = display.LoadFonts(settings.Display.FontPath, settings.Display.Fonts)
	a.dashboard = render.NewDashboard(settings.Display, settings.Layout,
		render.Deps{Fonts: a.fonts, Icons: a.icons},
		render.WithMetrics(m.Display))

	if !a.customOutputs {
		if err := a.openOutputs(); err != nil {
			a.closeStore()
			return nil, err
		}
	}

	if a.publisher == nil && settings.MQTT.Enabled {
		client := mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT), m.MQTT)
		a.publisher = mqtt.NewPublisher(client, settings.MQTT.Topic, settings.MQTT.Retain)
	}

	if a.alert == nil && settings.Notify.Enabled {
		n, err := notification.NewNotifier(&settings.Notify, m.Notification)
		if err != nil {
			// a broken notification URL should not keep the display dark
			a.log.Warn("notifications disabled", logger.Error(err))
		} else {
			a.alert = notification.NewCyclingAlert(n, notification.DefaultAlertInterval)
		}
	}

	return a, nil
}

func (a *App) openOutputs() error {
	out := a.settings.Output
	if out.PNG.Enabled {
		a.outputs = append(a.outputs, display.NewPNGOutput(out.PNG.Path))
	}
	if out.EPaper.Enabled {
		ep, err := display.OpenEPaper(out.EPaper.SPIPort)
		if err != nil {
			return err
		}
		a.outputs = append(a.outputs, ep)
	}
	return nil
}

// Now is the current time in the display zone.
func (a *App) Now() time.Time {
	return a.clock().In(a.loc)
}

// Location is the display time zone.
func (a *App) Location() *time.Location { return a.loc }

// Metrics exposes the collectors for the HTTP server.
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// Fetch returns the current merged snapshot.
func (a *App) Fetch(ctx context.Context) weather.WeatherSnapshot {
	snap := a.source.GetCurrentWeather(ctx, a.Now())
	a.mu.Lock()
	a.lastSnap = &snap
	a.mu.Unlock()
	return snap
}

// SunTimes resolves the sun times of date at the configured location.
func (a *App) SunTimes(ctx context.Context, date time.Time) suncalc.SunTimes {
	l := a.settings.Location
	return a.sun.GetSunTimes(ctx, l.Latitude, l.Longitude, date)
}

// CacheStats reports the sun-time cache and the icon cache sizes.
func (a *App) CacheStats() (cache.Stats, int) {
	return a.sun.CacheStats(), a.icons.Len()
}

// ClearCaches empties the sun-time and icon caches.
func (a *App) ClearCaches() error {
	a.icons.Clear()
	a.metrics.Display.SetIconCacheEntries(0)
	return a.sun.ClearCache()
}

// Latest returns the most recent snapshot, frame and encoded PNG, any of
// which may be nil before the first cycle.
func (a *App) Latest() (*weather.WeatherSnapshot, *render.Frame, []byte) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastSnap, a.lastFrame, a.lastPNG
}

// Close releases outputs, the broker connection and the cache store.
func (a *App) Close() error {
	var errs []error
	for _, o := range a.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if err := a.fonts.Close(); err != nil {
		errs = append(errs, err)
	}
	a.http.Close()
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStore() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close cache store", logger.Error(err))
	}
}

func encodeFrame(f *render.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := display.EncodePNG(&buf, f.Image); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
