package render

import (
	"cmp"
	"slices"
	"time"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// DefaultGroup is shown in a section no trigger claims.
const DefaultGroup = "normal"

// Trigger context fields.
const (
	FieldPrecipitation = "precipitation"
	FieldForecast2h    = "forecast_precipitation_2h"
	FieldTemperature   = "temperature"
	FieldWindSpeed     = "wind_speed"
	FieldTimeHour      = "time_hour"
	FieldIsDaylight    = "is_daylight"
)

// NewTriggerContext extracts the values triggers can test. Booleans are 1
// or 0; time_hour is fractional.
func NewTriggerContext(snap *weather.WeatherSnapshot, now time.Time) map[string]float64 {
	values := map[string]float64{
		FieldTimeHour: float64(now.Hour()) + float64(now.Minute())/60,
	}
	if snap == nil {
		return values
	}
	values[FieldPrecipitation] = snap.Precipitation
	values[FieldForecast2h] = snap.ForecastPrecipitation2h
	values[FieldTemperature] = snap.Temperature
	values[FieldWindSpeed] = snap.WindSpeed
	values[FieldIsDaylight] = 0
	if snap.IsDaylight(now) {
		values[FieldIsDaylight] = 1
	}
	return values
}

// Matches reports whether any condition of t holds. Conditions on unknown
// fields or with unknown operators are false.
func Matches(t conf.TriggerSettings, values map[string]float64) bool {
	for _, c := range t.Conditions {
		v, ok := values[c.Field]
		if ok && compare(v, c.Op, c.Value) {
			return true
		}
	}
	return false
}

// ActiveGroups returns the group to show per section. Triggers are tried by
// descending priority, config order breaking ties; the first match in a
// section wins. Sections without a match are absent from the result.
func ActiveGroups(triggers []conf.TriggerSettings, values map[string]float64) map[string]string {
	ordered := slices.Clone(triggers)
	slices.SortStableFunc(ordered, func(a, b conf.TriggerSettings) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	active := make(map[string]string)
	for _, t := range ordered {
		if _, taken := active[t.Section]; taken {
			continue
		}
		if Matches(t, values) {
			active[t.Section] = t.Group
		}
	}
	return active
}

func compare(v float64, op string, ref float64) bool {
	switch op {
	case ">":
		return v > ref
	case ">=":
		return v >= ref
	case "<":
		return v < ref
	case "<=":
		return v <= ref
	case "==":
		return v == ref
	case "!=":
		return v != ref
	default:
		return false
	}
}
