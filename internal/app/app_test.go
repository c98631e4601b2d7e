package app

import (
	"context"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/render"
	"github.com/tphakala/epaper-weather/internal/suncalc"
	"github.com/tphakala/epaper-weather/internal/weather"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var cest = time.FixedZone("CEST", 2*3600)

type fakeSource struct {
	mu   sync.Mutex
	snap weather.WeatherSnapshot
	hits int
}

func (f *fakeSource) GetCurrentWeather(_ context.Context, now time.Time) weather.WeatherSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits++
	s := f.snap
	s.Timestamp = now
	return s
}

func (f *fakeSource) set(fn func(*weather.WeatherSnapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.snap)
}

type recordingOutput struct {
	mu     sync.Mutex
	name   string
	pushes int
	err    error
	closed bool
}

func (o *recordingOutput) Name() string { return o.name }

func (o *recordingOutput) Push(_ context.Context, frame image.Image) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.pushes++
	return nil
}

func (o *recordingOutput) Close() error {
	o.closed = true
	return nil
}

type fakePublisher struct {
	published int
	err       error
	closed    bool
}

func (p *fakePublisher) PublishSnapshot(context.Context, *weather.WeatherSnapshot) error {
	p.published++
	return p.err
}

func (p *fakePublisher) Close() { p.closed = true }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Location = conf.LocationSettings{Name: "Stockholm", Latitude: 59.33, Longitude: 18.07, Timezone: "Europe/Stockholm"}
	s.Cache.Backend = "memory"
	s.Icons.Dir = t.TempDir()
	s.Display = conf.DisplaySettings{Width: 800, Height: 480, Refresh: time.Minute, Watchdog: 30 * time.Minute}
	s.Layout = conf.LayoutSettings{Modules: conf.DefaultModules(), Triggers: conf.DefaultTriggers()}
	s.Output.StateFile = filepath.Join(t.TempDir(), "state.json")
	return s
}

func dryWeather() weather.WeatherSnapshot {
	return weather.WeatherSnapshot{
		Location:           "Stockholm",
		Temperature:        16.4,
		TemperatureSource:  weather.SourceSMHI,
		Pressure:           1009,
		PressureTrend:      weather.PressureTrend{Trend: weather.TrendStable, Text: "Stable", Arrow: "stable"},
		WeatherSymbol:      3,
		WeatherDescription: "Variable cloudiness",
		Sun: suncalc.SunTimes{
			Sunrise: time.Date(2026, 6, 24, 3, 31, 0, 0, cest),
			Sunset:  time.Date(2026, 6, 24, 22, 8, 0, 0, cest),
		},
		DataSources: []string{weather.SourceSMHI},
	}
}

type fixture struct {
	app   *App
	src   *fakeSource
	out   *recordingOutput
	pub   *fakePublisher
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		src:   &fakeSource{snap: dryWeather()},
		out:   &recordingOutput{name: "test"},
		pub:   &fakePublisher{},
		clock: &clock{now: time.Date(2026, 6, 24, 14, 5, 0, 0, cest)},
	}
	a, err := New(testSettings(t), nil,
		WithSource(f.src),
		WithOutputs(f.out),
		WithPublisher(f.pub),
		WithClock(f.clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	f.app = a
	return f
}

func TestCycle_ChangeDetection(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	res, err := f.app.Cycle(ctx, false)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.Equal(t, render.ReasonFirstRun, res.Reason)

	f.clock.Advance(5 * time.Minute)
	res, err = f.app.Cycle(ctx, false)
	require.NoError(t, err)
	assert.False(t, res.Pushed)
	assert.Equal(t, render.ReasonUnchanged, res.Reason)

	f.src.set(func(s *weather.WeatherSnapshot) { s.Temperature = 17.0 })
	f.clock.Advance(5 * time.Minute)
	res, err = f.app.Cycle(ctx, false)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.Equal(t, render.ReasonDataChanged, res.Reason)

	f.clock.Advance(30 * time.Minute)
	res, err = f.app.Cycle(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, render.ReasonWatchdog, res.Reason)

	assert.Equal(t, 3, f.out.pushes)
	assert.Equal(t, 4, f.pub.published, "every cycle is published")

	n, err := testutil.GatherAndCount(f.app.Metrics().Registry(), "display_updates_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCycle_LayoutChangePushes(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.Cycle(t.Context(), false)
	require.NoError(t, err)

	f.src.set(func(s *weather.WeatherSnapshot) {
		s.ForecastPrecipitation2h = 0.4
	})
	f.clock.Advance(time.Minute)
	res, err := f.app.Cycle(t.Context(), false)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.Equal(t, "precipitation_active", res.Frame.ActiveGroups["bottom_section"])
}

func TestCycle_ForceAlwaysPushes(t *testing.T) {
	f := newFixture(t)

	for range 2 {
		res, err := f.app.Cycle(t.Context(), true)
		require.NoError(t, err)
		assert.True(t, res.Pushed)
		assert.Equal(t, ReasonForced, res.Reason)
	}
	assert.Equal(t, 2, f.out.pushes)
}

func TestCycle_OutputFailure(t *testing.T) {
	f := newFixture(t)
	f.out.err = errors.NewStd("spi busy")
	f.pub.err = errors.NewStd("broker down")

	res, err := f.app.Cycle(t.Context(), false)
	require.Error(t, err)
	assert.False(t, res.Pushed)
	assert.Equal(t, 1, f.pub.published, "publish still attempted")

	// state was not saved, so the next cycle is a first run again
	f.out.err = nil
	res, err = f.app.Cycle(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, render.ReasonFirstRun, res.Reason)
}

func TestLatest(t *testing.T) {
	f := newFixture(t)

	snap, frame, png := f.app.Latest()
	assert.Nil(t, snap)
	assert.Nil(t, frame)
	assert.Nil(t, png)

	_, err := f.app.Cycle(t.Context(), false)
	require.NoError(t, err)

	snap, frame, png = f.app.Latest()
	require.NotNil(t, snap)
	require.NotNil(t, frame)
	assert.Equal(t, "Stockholm", snap.Location)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestFetchAndNow(t *testing.T) {
	f := newFixture(t)

	snap := f.app.Fetch(t.Context())
	assert.Equal(t, "Europe/Stockholm", snap.Timestamp.Location().String())
	assert.Equal(t, 14, snap.Timestamp.Hour())
	assert.Equal(t, 1, f.src.hits)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	require.Eventually(t, func() bool {
		f.out.mu.Lock()
		defer f.out.mu.Unlock()
		return f.out.pushes == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Close())
	assert.True(t, f.out.closed)
	assert.True(t, f.pub.closed)
}

func TestCacheStatsAndClear(t *testing.T) {
	f := newFixture(t)

	st := f.app.SunTimes(t.Context(), time.Date(2026, 6, 24, 0, 0, 0, 0, cest))
	assert.Equal(t, suncalc.SourceFallback, st.Source)

	stats, icons := f.app.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Zero(t, icons)

	require.NoError(t, f.app.ClearCaches())
	stats, _ = f.app.CacheStats()
	assert.Zero(t, stats.Entries)
}
