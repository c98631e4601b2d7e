// Package weather builds the merged weather snapshot shown on the display.
//
// Three remote sources feed it: the SMHI point forecast, SMHI precipitation
// observations and an optional Netatmo station. Each source sits behind its
// own in-memory cache and reports a FetchResult, so a failed source degrades
// the snapshot instead of failing it. GetCurrentWeather never returns an error.
package weather

import (
	"math"
	"slices"
	"time"

	"github.com/tphakala/epaper-weather/internal/suncalc"
)

// Source labels recorded on the snapshot.
const (
	SourceLocalSensor  = "local-sensor"
	SourceSMHI         = "smhi"
	SourceObservations = "smhi-observations"
	SourceFallback     = "fallback"
	SourceTestData     = "test-data"
)

// FetchResult is the outcome of one source fetch: either a value or the
// reason it is unavailable.
type FetchResult[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps an available value.
func Ok[T any](v T) FetchResult[T] {
	return FetchResult[T]{value: v, ok: true}
}

// Unavailable records why a source produced nothing.
func Unavailable[T any](reason error) FetchResult[T] {
	return FetchResult[T]{err: reason}
}

func (r FetchResult[T]) Available() bool { return r.ok }

// Get returns the value and whether it is available.
func (r FetchResult[T]) Get() (T, bool) { return r.value, r.ok }

// Reason is nil for available results.
func (r FetchResult[T]) Reason() error { return r.err }

// ForecastSample is one forecast step. Parameters map a parameter name to
// its values; SMHI sends one value per parameter.
type ForecastSample struct {
	ValidTime  time.Time            `json:"valid_time"`
	Parameters map[string][]float64 `json:"parameters"`
}

// Value returns the first value of the named parameter.
func (s ForecastSample) Value(name string) (float64, bool) {
	vals := s.Parameters[name]
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// ForecastSeries is an immutable, validTime-ascending list of samples.
type ForecastSeries struct {
	ApprovedTime time.Time
	samples      []ForecastSample
}

// NewForecastSeries copies and sorts samples.
func NewForecastSeries(approved time.Time, samples []ForecastSample) ForecastSeries {
	s := slices.Clone(samples)
	slices.SortStableFunc(s, func(a, b ForecastSample) int {
		return a.ValidTime.Compare(b.ValidTime)
	})
	return ForecastSeries{ApprovedTime: approved, samples: s}
}

func (fs ForecastSeries) Len() int { return len(fs.samples) }

// Samples returns a copy of the samples.
func (fs ForecastSeries) Samples() []ForecastSample { return slices.Clone(fs.samples) }

// Current is the first sample valid at or after now, or the last sample
// when the whole series lies in the past.
func (fs ForecastSeries) Current(now time.Time) (ForecastSample, bool) {
	if len(fs.samples) == 0 {
		return ForecastSample{}, false
	}
	for _, s := range fs.samples {
		if !s.ValidTime.Before(now) {
			return s, true
		}
	}
	return fs.samples[len(fs.samples)-1], true
}

// Tomorrow is the sample at 12:00 UTC on the day after now (UTC), or the
// sample of that day closest to noon.
func (fs ForecastSeries) Tomorrow(now time.Time) (ForecastSample, bool) {
	y, m, d := now.UTC().AddDate(0, 0, 1).Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)

	var (
		best     ForecastSample
		bestDiff time.Duration = -1
	)
	for _, s := range fs.samples {
		sy, sm, sd := s.ValidTime.UTC().Date()
		if sy != y || sm != m || sd != d {
			continue
		}
		diff := s.ValidTime.Sub(noon)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = s, diff
		}
	}
	return best, bestDiff >= 0
}

// Tomorrow holds tomorrow's midday forecast.
type Tomorrow struct {
	Temperature        float64 `json:"temperature"`
	WeatherSymbol      int     `json:"weather_symbol"`
	WeatherDescription string  `json:"weather_description"`
	WindSpeed          float64 `json:"wind_speed"`
	WindDirection      float64 `json:"wind_direction"`
	Precipitation      float64 `json:"precipitation"`
	PrecipitationType  int     `json:"precipitation_type"`
}

// Observation is the latest hourly precipitation amount of a station.
type Observation struct {
	PrecipitationMM float64       `json:"precipitation_mm"`
	ObservedAt      time.Time     `json:"observed_at"`
	StationID       string        `json:"station_id"`
	StationName     string        `json:"station_name"`
	StationRole     string        `json:"station_role"` // primary or alternative
	Quality         string        `json:"quality"`
	Age             time.Duration `json:"age"`
}

// LocalReading is a local weather station reading. Nil fields were not
// reported.
type LocalReading struct {
	StationName       string    `json:"station_name"`
	Temperature       *float64  `json:"temperature,omitempty"`
	Pressure          *float64  `json:"pressure,omitempty"`
	OutdoorHumidity   *float64  `json:"outdoor_humidity,omitempty"`
	IndoorTemperature *float64  `json:"indoor_temperature,omitempty"`
	IndoorHumidity    *float64  `json:"indoor_humidity,omitempty"`
	CO2               *float64  `json:"co2,omitempty"`
	Noise             *float64  `json:"noise,omitempty"`
	LastMeasurement   time.Time `json:"last_measurement"`
}

// CyclingWarning is the result of scanning the next two hours for rain.
type CyclingWarning struct {
	Warning           bool      `json:"warning"`
	PrecipitationMM   float64   `json:"precipitation_mm"`
	Reason            string    `json:"reason"`
	OnsetTime         time.Time `json:"onset_time"`
	PrecipitationType string    `json:"precipitation_type"`
	Intensity         string    `json:"intensity"`
	ForecastTime      string    `json:"forecast_time"` // onset as HH:MM in the display zone
}

// WeatherSnapshot is the merged record handed to the renderers. It is built
// fresh by every GetCurrentWeather call.
type WeatherSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`

	Temperature       float64 `json:"temperature"`
	TemperatureSource string  `json:"temperature_source"`
	Humidity          float64 `json:"humidity"`
	HumiditySource    string  `json:"humidity_source,omitempty"`
	Pressure          float64 `json:"pressure"`
	PressureSource    string  `json:"pressure_source"`

	PressureTrend PressureTrend `json:"pressure_trend"`

	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`

	Precipitation           float64      `json:"precipitation"`
	PrecipitationSource     string       `json:"precipitation_source"`
	PrecipitationType       int          `json:"precipitation_type"`
	ForecastPrecipitation2h float64      `json:"forecast_precipitation_2h"`
	Observation             *Observation `json:"observation,omitempty"`

	WeatherSymbol      int    `json:"weather_symbol"`
	WeatherDescription string `json:"weather_description"`

	Tomorrow Tomorrow         `json:"tomorrow"`
	Sun      suncalc.SunTimes `json:"sun_data"`
	Cycling  CyclingWarning   `json:"cycling_weather"`

	LocalSensor *LocalReading `json:"local_sensor,omitempty"`

	DataSources     []string `json:"data_sources"`
	Fallback        bool     `json:"fallback"`
	TestMode        bool     `json:"test_mode,omitempty"`
	TestDescription string   `json:"test_description,omitempty"`
}

// IsDaylight reports whether t lies between the snapshot's sunrise and
// sunset.
func (s *WeatherSnapshot) IsDaylight(t time.Time) bool {
	if s.Sun.Sunrise.IsZero() || s.Sun.Sunset.IsZero() {
		return t.Hour() >= 6 && t.Hour() < 18
	}
	return !t.Before(s.Sun.Sunrise) && !t.After(s.Sun.Sunset)
}

// fallbackTemperature stands in whenever no source reports a temperature.
const fallbackTemperature = 20.0

// fallbackSnapshot is shown when neither the forecast nor the local sensor
// answered.
func fallbackSnapshot(location string, now time.Time, sun suncalc.SunTimes) WeatherSnapshot {
	return WeatherSnapshot{
		Timestamp:           now,
		Location:            location,
		Temperature:         fallbackTemperature,
		TemperatureSource:   SourceFallback,
		Pressure:            1013,
		PressureSource:      SourceFallback,
		PressureTrend:       newPressureTrend(TrendUnknown, 0, 0),
		PrecipitationSource: SourceFallback,
		WeatherSymbol:       1,
		WeatherDescription:  "data unavailable",
		Tomorrow: Tomorrow{
			Temperature:        18.0,
			WeatherDescription: "Unknown",
		},
		Sun: sun,
		Cycling: CyclingWarning{
			PrecipitationType: PrecipitationType(0),
			Reason:            "fallback data",
		},
		DataSources: []string{SourceFallback},
		Fallback:    true,
	}
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
