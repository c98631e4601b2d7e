// Package suncalc resolves sunrise and sunset times for a location and date.
//
// Lookups try, in order, the persistent cache, the astronomy API, an analytic
// approximation and finally fixed 06:00/18:00 times. GetSunTimes therefore
// always returns a usable value; SunTimes.Source tells which step answered.
package suncalc

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/sj14/astral/pkg/astral"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/epaper-weather/internal/cache"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/httpclient"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
)

// Source identifies where a SunTimes value came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceStatic   Source = "static_fallback"
)

const (
	defaultRemoteTTL   = 24 * time.Hour
	defaultFallbackTTL = 2 * time.Hour
	defaultTimeout     = 10 * time.Second

	// hour angle argument is clamped so polar days and nights still yield
	// a short day or night instead of NaN.
	hourAngleClamp = 0.99
)

// SunTimes holds the sun events of one day in the configured location.
type SunTimes struct {
	Sunrise          time.Time `json:"sunrise"`
	Sunset           time.Time `json:"sunset"`
	DaylightDuration string    `json:"daylight_duration"`
	Source           Source    `json:"source"`
	Cached           bool      `json:"cached"`
	CivilDawn        time.Time `json:"civil_dawn"`
	CivilDusk        time.Time `json:"civil_dusk"`
}

// Config configures a SunCalc.
type Config struct {
	APIKey      string // empty skips the remote lookup
	Endpoint    string
	Timeout     time.Duration
	RemoteTTL   time.Duration
	FallbackTTL time.Duration
	Location    *time.Location // zone the dates and results are expressed in
}

// ConfigFromSettings maps the suncalc section of the settings.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		APIKey:      s.SunCalc.APIKey,
		Endpoint:    s.SunCalc.Endpoint,
		Timeout:     s.SunCalc.Timeout,
		RemoteTTL:   s.SunCalc.RemoteTTL,
		FallbackTTL: s.SunCalc.FallbackTTL,
		Location:    s.TimeLocation(),
	}
}

// SunCalc is the sun-time cache. Safe for concurrent use; concurrent lookups
// of the same key share one resolution.
type SunCalc struct {
	cfg     Config
	store   cache.Store
	client  *httpclient.Client
	metrics *metrics.SunCalcMetrics
	log     logger.Logger
	group   singleflight.Group
}

// Option customizes a SunCalc.
type Option func(*SunCalc)

func WithMetrics(m *metrics.SunCalcMetrics) Option {
	return func(sc *SunCalc) { sc.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(sc *SunCalc) {
		if l != nil {
			sc.log = l
		}
	}
}

// New creates a SunCalc persisting to store. A nil client gets a default one.
func New(cfg Config, store cache.Store, client *httpclient.Client, opts ...Option) *SunCalc {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = conf.DefaultAstronomyEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RemoteTTL <= 0 {
		cfg.RemoteTTL = defaultRemoteTTL
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = defaultFallbackTTL
	}
	if client == nil {
		client = httpclient.New(nil)
	}
	sc := &SunCalc{
		cfg:    cfg,
		store:  store,
		client: client,
		log:    logger.Global().Module("suncalc"),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// GetSunTimes returns the sun times of date's calendar day in the configured
// location. It never fails.
func (sc *SunCalc) GetSunTimes(ctx context.Context, lat, lon float64, date time.Time) SunTimes {
	day := startOfDay(date, sc.cfg.Location)
	key := cacheKey(lat, lon, day)

	// the lookup is shared by every waiter, so one caller's cancellation must
	// not push the others onto computed times; fetchRemote still bounds it
	lookupCtx := context.WithoutCancel(ctx)
	v, _, _ := sc.group.Do(key, func() (any, error) {
		return sc.resolve(lookupCtx, lat, lon, day, key), nil
	})
	st, _ := v.(SunTimes)
	return st
}

// IsNight reports whether t lies before sunrise or after sunset of its day.
func (sc *SunCalc) IsNight(ctx context.Context, lat, lon float64, t time.Time) bool {
	st := sc.GetSunTimes(ctx, lat, lon, t)
	return t.Before(st.Sunrise) || t.After(st.Sunset)
}

// ClearCache drops every persisted entry.
func (sc *SunCalc) ClearCache() error {
	return sc.store.Clear()
}

// CacheStats reports the persisted entries.
func (sc *SunCalc) CacheStats() cache.Stats {
	return sc.store.Stats()
}

func (sc *SunCalc) resolve(ctx context.Context, lat, lon float64, day time.Time, key string) SunTimes {
	if st, ok := sc.fromCache(key); ok {
		sc.metrics.RecordCacheHit()
		sc.metrics.RecordLookup(string(st.Source))
		return st
	}
	sc.metrics.RecordCacheMiss()

	st, err := sc.fetchRemote(ctx, lat, lon, day)
	if err == nil {
		sc.enrich(&st, lat, lon, day)
		sc.persist(key, st, sc.cfg.RemoteTTL)
		sc.log.Info("sun times fetched",
			logger.String("date", day.Format(time.DateOnly)),
			logger.String("sunrise", st.Sunrise.Format("15:04")),
			logger.String("sunset", st.Sunset.Format("15:04")))
		return sc.finish(st)
	}
	sc.log.Warn("astronomy lookup failed, using computed sun times",
		logger.String("date", day.Format(time.DateOnly)),
		logger.Error(err))

	st, err = CalculateFallback(lat, day)
	if err == nil {
		sc.enrich(&st, lat, lon, day)
		sc.persist(key, st, sc.cfg.FallbackTTL)
		return sc.finish(st)
	}
	sc.log.Error("sun time calculation failed, using static times", logger.Error(err))

	return sc.finish(StaticFallback(day))
}

func (sc *SunCalc) finish(st SunTimes) SunTimes {
	sc.metrics.RecordLookup(string(st.Source))
	sc.metrics.UpdateSunTimes(st.Sunrise, st.Sunset)
	return st
}

func (sc *SunCalc) fromCache(key string) (SunTimes, bool) {
	entry, ok := sc.store.Get(key)
	if !ok {
		return SunTimes{}, false
	}
	var st SunTimes
	if err := entry.Decode(&st); err != nil || st.Sunrise.IsZero() || st.Sunset.IsZero() {
		sc.log.Warn("discarding unreadable cached sun times", logger.String("key", key))
		return SunTimes{}, false
	}
	loc := sc.cfg.Location
	st.Sunrise = st.Sunrise.In(loc)
	st.Sunset = st.Sunset.In(loc)
	if !st.CivilDawn.IsZero() {
		st.CivilDawn = st.CivilDawn.In(loc)
	}
	if !st.CivilDusk.IsZero() {
		st.CivilDusk = st.CivilDusk.In(loc)
	}
	st.Cached = true
	return st, true
}

func (sc *SunCalc) persist(key string, st SunTimes, ttl time.Duration) {
	st.Cached = false
	if err := sc.store.Put(key, st, ttl); err != nil {
		sc.log.Warn("failed to persist sun times", logger.String("key", key), logger.Error(err))
	}
}

// enrich adds civil twilight; failures (polar summer) leave the fields zero.
func (sc *SunCalc) enrich(st *SunTimes, lat, lon float64, day time.Time) {
	observer := astral.Observer{Latitude: lat, Longitude: lon}
	y, m, d := day.Date()
	utcDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if dawn, err := astral.Dawn(observer, utcDay, astral.DepressionCivil); err == nil {
		st.CivilDawn = dawn.In(sc.cfg.Location)
	} else {
		sc.metrics.RecordAstralError("dawn")
	}
	if dusk, err := astral.Dusk(observer, utcDay, astral.DepressionCivil); err == nil {
		st.CivilDusk = dusk.In(sc.cfg.Location)
	} else {
		sc.metrics.RecordAstralError("dusk")
	}
}

func (sc *SunCalc) fetchRemote(ctx context.Context, lat, lon float64, day time.Time) (st SunTimes, err error) {
	if sc.cfg.APIKey == "" {
		return SunTimes{}, errors.Newf("astronomy api key not configured").
			Component("suncalc").
			Category(errors.CategoryConfiguration).
			Build()
	}

	u, err := url.Parse(sc.cfg.Endpoint)
	if err != nil {
		return SunTimes{}, errors.New(err).
			Component("suncalc").
			Category(errors.CategoryConfiguration).
			Context("operation", "parse_endpoint").
			Build()
	}
	q := u.Query()
	q.Set("apiKey", sc.cfg.APIKey)
	q.Set("lat", formatCoord(lat))
	q.Set("long", formatCoord(lon))
	q.Set("date", day.Format(time.DateOnly))
	u.RawQuery = q.Encode()

	start := time.Now()
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		sc.metrics.RecordRemoteFetch(status, time.Since(start))
	}()

	reqCtx, cancel := context.WithTimeout(ctx, sc.cfg.Timeout)
	defer cancel()

	resp, err := sc.client.Get(reqCtx, u.String())
	if err != nil {
		return SunTimes{}, errors.New(err).
			Component("suncalc").
			Category(errors.CategoryNetwork).
			NetworkContext(sc.cfg.Endpoint, sc.cfg.Timeout).
			Context("operation", "fetch_astronomy").
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if err := httpclient.CheckResponse(resp); err != nil {
		return SunTimes{}, errors.New(err).
			Component("suncalc").
			Category(errors.CategoryNetwork).
			Context("operation", "fetch_astronomy").
			Context("status_code", resp.StatusCode).
			Build()
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return SunTimes{}, errors.New(err).
			Component("suncalc").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_astronomy").
			Build()
	}
	return parseAstronomy(obj, day)
}

// parseAstronomy reads the sunrise and sunset clock strings of the response.
func parseAstronomy(obj *jason.Object, day time.Time) (SunTimes, error) {
	sunriseStr, err := obj.GetString("sunrise")
	if err != nil {
		return SunTimes{}, missingField("sunrise", err)
	}
	sunsetStr, err := obj.GetString("sunset")
	if err != nil {
		return SunTimes{}, missingField("sunset", err)
	}

	sunrise, err := parseClock(sunriseStr, day)
	if err != nil {
		return SunTimes{}, missingField("sunrise", err)
	}
	sunset, err := parseClock(sunsetStr, day)
	if err != nil {
		return SunTimes{}, missingField("sunset", err)
	}
	if !sunset.After(sunrise) {
		return SunTimes{}, errors.Newf("sunset %s is not after sunrise %s", sunsetStr, sunriseStr).
			Component("suncalc").
			Category(errors.CategoryValidation).
			Build()
	}

	return SunTimes{
		Sunrise:          sunrise,
		Sunset:           sunset,
		DaylightDuration: FormatDaylight(sunset.Sub(sunrise)),
		Source:           SourceRemote,
	}, nil
}

func missingField(field string, err error) error {
	return errors.New(err).
		Component("suncalc").
		Category(errors.CategoryFileParsing).
		Context("field", field).
		Build()
}

// parseClock combines an "HH:MM" or "HH:MM:SS" string with day.
func parseClock(s string, day time.Time) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid clock time %q", s)
	}
	limits := []int{23, 59, 59}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return time.Time{}, fmt.Errorf("invalid clock time %q", s)
		}
		vals[i] = n
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, vals[0], vals[1], vals[2], 0, day.Location()), nil
}

// CalculateFallback approximates sunrise and sunset from the solar declination.
// Solar noon is taken as 12:00 local time and longitude is ignored.
func CalculateFallback(lat float64, day time.Time) (SunTimes, error) {
	if day.IsZero() {
		return SunTimes{}, errors.Newf("no date to calculate sun times for").
			Component("suncalc").
			Category(errors.CategoryValidation).
			Build()
	}

	doy := float64(day.YearDay())
	decl := math.Asin(0.39795 * math.Cos(0.01723*(doy-173)))
	latRad := lat * math.Pi / 180
	arg := -math.Tan(latRad) * math.Tan(decl)
	arg = max(-hourAngleClamp, min(hourAngleClamp, arg))
	h := math.Acos(arg)

	offset := h * 12 / math.Pi
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return SunTimes{}, errors.Newf("hour angle is not finite for latitude %v", lat).
			Component("suncalc").
			Category(errors.CategoryValidation).
			Build()
	}

	sunrise := atHour(day, 12-offset)
	sunset := atHour(day, 12+offset)
	return SunTimes{
		Sunrise:          sunrise,
		Sunset:           sunset,
		DaylightDuration: FormatDaylight(sunset.Sub(sunrise)),
		Source:           SourceFallback,
	}, nil
}

// StaticFallback is the last resort: 06:00 to 18:00.
func StaticFallback(day time.Time) SunTimes {
	y, m, d := day.Date()
	loc := day.Location()
	return SunTimes{
		Sunrise:          time.Date(y, m, d, 6, 0, 0, 0, loc),
		Sunset:           time.Date(y, m, d, 18, 0, 0, 0, loc),
		DaylightDuration: "12h 0m",
		Source:           SourceStatic,
	}
}

// FormatDaylight renders a duration as "<H>h <M>m", truncating seconds.
func FormatDaylight(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
}

// atHour returns the wall-clock time hours after midnight of day.
func atHour(day time.Time, hours float64) time.Time {
	y, m, d := day.Date()
	secs := int(math.Round(hours * 3600))
	return time.Date(y, m, d, 0, 0, secs, 0, day.Location())
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func cacheKey(lat, lon float64, day time.Time) string {
	return formatCoord(lat) + "_" + formatCoord(lon) + "_" + day.Format(time.DateOnly)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
