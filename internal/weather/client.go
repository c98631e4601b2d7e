package weather

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/httpclient"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
	"github.com/tphakala/epaper-weather/internal/suncalc"
)

// SunProvider resolves the sun times of a day. *suncalc.SunCalc implements it.
type SunProvider interface {
	GetSunTimes(ctx context.Context, lat, lon float64, date time.Time) suncalc.SunTimes
}

// Config is the location and debug part of the settings the client needs.
type Config struct {
	LocationName string
	Latitude     float64
	Longitude    float64
	Location     *time.Location

	TestDataEnabled bool
	TestDataFile    string
}

func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		LocationName:    s.Location.Name,
		Latitude:        s.Location.Latitude,
		Longitude:       s.Location.Longitude,
		Location:        s.TimeLocation(),
		TestDataEnabled: s.Debug.AllowTestData,
		TestDataFile:    s.Debug.TestDataFile,
	}
}

// Option customizes a Client.
type Option func(*Client)

func WithMetrics(m *metrics.WeatherMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client merges the forecast, observation, local sensor and sun sources.
// Safe for concurrent use.
type Client struct {
	cfg          Config
	smhi         *SMHIProvider
	observations *ObservationProvider
	netatmo      *NetatmoProvider
	sun          SunProvider
	pressure     *PressureHistory
	metrics      *metrics.WeatherMetrics
	log          logger.Logger
}

// NewClient wires the providers configured in settings. sun may be nil, in
// which case static sun times are attached.
func NewClient(settings *conf.Settings, sun SunProvider, hc *httpclient.Client, opts ...Option) *Client {
	if hc == nil {
		hc = httpclient.New(nil)
	}
	c := &Client{
		cfg: ConfigFromSettings(settings),
		sun: sun,
		log: logger.Global().Module("weather"),
	}
	for _, opt := range opts {
		opt(c)
	}

	ws := settings.Weather
	c.smhi = NewSMHIProvider(ws.SMHI, c.cfg.Latitude, c.cfg.Longitude, hc, c.metrics)
	if ws.Observations.Enabled {
		c.observations = NewObservationProvider(ws.Observations, hc, c.metrics)
	}
	c.netatmo = NewNetatmoProvider(ws.Netatmo, hc, c.metrics)
	if ws.PressureHistory.Enabled && ws.PressureHistory.Path != "" {
		c.pressure = NewPressureHistory(ws.PressureHistory.Path, ws.PressureHistory.Retention)
	}
	if c.cfg.Location == nil {
		c.cfg.Location = time.UTC
	}
	return c
}

// Forecast exposes the cached forecast series.
func (c *Client) Forecast(ctx context.Context) FetchResult[ForecastSeries] {
	return c.smhi.Forecast(ctx)
}

// GetCurrentWeather fetches every source in parallel and merges them. It
// never fails: with neither forecast nor local sensor data it returns the
// fallback snapshot.
func (c *Client) GetCurrentWeather(ctx context.Context, now time.Time) WeatherSnapshot {
	now = now.In(c.cfg.Location)

	var (
		forecast FetchResult[ForecastSeries]
		local    FetchResult[LocalReading]
		obs      FetchResult[Observation]
		sun      suncalc.SunTimes
	)

	// every fetch degrades on its own, none returns an error to the group
	var g errgroup.Group
	g.Go(func() error { forecast = c.smhi.Forecast(ctx); return nil })
	g.Go(func() error { local = c.netatmo.Reading(ctx, now); return nil })
	g.Go(func() error { obs = c.latestObservation(ctx, now); return nil })
	g.Go(func() error { sun = c.sunTimes(ctx, now); return nil })
	_ = g.Wait()

	snap := c.merge(now, forecast, local, obs, sun)

	c.metrics.UpdateSnapshot(metrics.SnapshotValues{
		Temperature:             snap.Temperature,
		Pressure:                snap.Pressure,
		Precipitation:           snap.Precipitation,
		ForecastPrecipitation2h: snap.ForecastPrecipitation2h,
		WindSpeed:               snap.WindSpeed,
		CyclingWarning:          snap.Cycling.Warning,
	})
	c.log.Info("weather merged",
		logger.Float64("temperature", snap.Temperature),
		logger.String("temperature_source", snap.TemperatureSource),
		logger.Float64("precipitation", snap.Precipitation),
		logger.Float64("forecast_precipitation_2h", snap.ForecastPrecipitation2h),
		logger.Any("sources", snap.DataSources))
	return snap
}

func (c *Client) latestObservation(ctx context.Context, now time.Time) FetchResult[Observation] {
	if c.observations == nil {
		return Unavailable[Observation](errors.Newf("observations disabled").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Build())
	}
	return c.observations.Latest(ctx, now)
}

func (c *Client) sunTimes(ctx context.Context, now time.Time) suncalc.SunTimes {
	if c.sun == nil {
		return suncalc.StaticFallback(now)
	}
	return c.sun.GetSunTimes(ctx, c.cfg.Latitude, c.cfg.Longitude, now)
}

func (c *Client) merge(now time.Time, forecast FetchResult[ForecastSeries], local FetchResult[LocalReading],
	obs FetchResult[Observation], sun suncalc.SunTimes) WeatherSnapshot {

	series, hasForecast := forecast.Get()
	reading, hasLocal := local.Get()

	if !hasForecast && !hasLocal {
		c.metrics.RecordFallback()
		c.log.Warn("no forecast and no local sensor data, using fallback snapshot",
			logger.Error(errors.Join(forecast.Reason(), local.Reason())))
		return fallbackSnapshot(c.cfg.LocationName, now, sun)
	}

	snap := WeatherSnapshot{
		Timestamp: now,
		Location:  c.cfg.LocationName,
		Sun:       sun,
	}

	var cur currentConditions
	if hasForecast {
		if s, ok := series.Current(now); ok {
			cur = parseCurrent(s)
		}
	}

	switch {
	case hasLocal && reading.Temperature != nil:
		snap.Temperature, snap.TemperatureSource = *reading.Temperature, SourceLocalSensor
	case cur.HasTemperature:
		snap.Temperature, snap.TemperatureSource = cur.Temperature, SourceSMHI
	default:
		// a pressure-only station without forecast has no temperature at all
		snap.Temperature, snap.TemperatureSource = fallbackTemperature, SourceFallback
	}

	switch {
	case hasLocal && reading.OutdoorHumidity != nil:
		snap.Humidity, snap.HumiditySource = *reading.OutdoorHumidity, SourceLocalSensor
	case cur.HasHumidity:
		snap.Humidity, snap.HumiditySource = cur.Humidity, SourceSMHI
	}

	switch {
	case hasLocal && reading.Pressure != nil:
		snap.Pressure, snap.PressureSource = *reading.Pressure, SourceLocalSensor
	case cur.HasPressure:
		snap.Pressure, snap.PressureSource = cur.Pressure, SourceSMHI
	}

	observation, hasObs := obs.Get()
	switch {
	case hasObs:
		snap.Precipitation, snap.PrecipitationSource = observation.PrecipitationMM, SourceObservations
		snap.Observation = &observation
	case hasForecast:
		snap.Precipitation, snap.PrecipitationSource = cur.Precipitation, SourceSMHI
	}

	if hasForecast {
		snap.WeatherSymbol = cur.Symbol
		if hasObs {
			snap.WeatherDescription = SyncedDescription(cur.Symbol, observation.PrecipitationMM)
		} else {
			snap.WeatherDescription = Description(cur.Symbol)
		}
		snap.WindSpeed = cur.WindSpeed
		snap.WindDirection = cur.WindDirection
		snap.PrecipitationType = cur.PrecipitationType
		if t, ok := series.Tomorrow(now); ok {
			snap.Tomorrow = parseTomorrow(t)
		}
		snap.Cycling = AnalyzeCycling(series, now)
	} else {
		snap.WeatherDescription = "forecast unavailable"
		snap.Cycling = CyclingWarning{Reason: "no forecast data", PrecipitationType: PrecipitationType(0)}
	}
	snap.ForecastPrecipitation2h = snap.Cycling.PrecipitationMM

	if hasLocal {
		snap.LocalSensor = &reading
	}

	snap.PressureTrend = c.pressureTrend(snap, now)

	if hasObs {
		snap.DataSources = append(snap.DataSources, SourceObservations)
	}
	if hasLocal {
		snap.DataSources = append(snap.DataSources, SourceLocalSensor)
	}
	if hasForecast {
		snap.DataSources = append(snap.DataSources, SourceSMHI)
	}

	c.applyTestData(&snap, now)
	return snap
}

func (c *Client) pressureTrend(snap WeatherSnapshot, now time.Time) PressureTrend {
	if c.pressure == nil || snap.PressureSource == "" {
		return newPressureTrend(TrendUnknown, 0, 0)
	}
	if err := c.pressure.Record(snap.Pressure, snap.PressureSource, now); err != nil {
		c.log.Warn("failed to record pressure", logger.Error(err))
	}
	return c.pressure.Trend(now)
}

func (c *Client) applyTestData(snap *WeatherSnapshot, now time.Time) {
	if !c.cfg.TestDataEnabled || c.cfg.TestDataFile == "" {
		return
	}
	td, ok, err := LoadTestData(c.cfg.TestDataFile, now)
	if err != nil {
		c.log.Warn("ignoring unreadable test data", logger.Error(err))
		return
	}
	if !ok {
		return
	}
	td.apply(snap)
	c.log.Info("test data override active",
		logger.String("description", snap.TestDescription),
		logger.Float64("precipitation", td.Precipitation),
		logger.Float64("forecast_precipitation_2h", td.ForecastPrecipitation2h),
		logger.Time("expires_at", td.ExpiresAt))
}
