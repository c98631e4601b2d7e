package render

import (
	"maps"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// Update reasons reported by ShouldUpdate.
const (
	ReasonFirstRun      = "first_run"
	ReasonWatchdog      = "watchdog"
	ReasonDateChanged   = "date_changed"
	ReasonLayoutChanged = "layout_changed"
	ReasonDataChanged   = "data_changed"
	ReasonUnchanged     = "unchanged"
)

// numericTolerance is the smallest change of a measured value that counts.
const numericTolerance = 0.1 - 1e-9

// DisplayState is what the panel currently shows.
type DisplayState struct {
	Temperature         float64           `json:"temperature"`
	WeatherSymbol       int               `json:"weather_symbol"`
	WeatherDescription  string            `json:"weather_description"`
	Pressure            float64           `json:"pressure"`
	TrendText           string            `json:"trend_text"`
	TrendArrow          string            `json:"trend_arrow"`
	TomorrowTemperature float64           `json:"tomorrow_temperature"`
	TomorrowSymbol      int               `json:"tomorrow_symbol"`
	TomorrowDescription string            `json:"tomorrow_description"`
	Sunrise             string            `json:"sunrise"`
	Sunset              string            `json:"sunset"`
	ActiveGroups        map[string]string `json:"active_groups"`
	Date                string            `json:"date"`
	LastUpdate          time.Time         `json:"last_update"`
	RunID               string            `json:"run_id,omitempty"`
}

// NewDisplayState captures the compared values of a rendered frame.
func NewDisplayState(snap *weather.WeatherSnapshot, frame *Frame) DisplayState {
	st := DisplayState{
		ActiveGroups: maps.Clone(frame.ActiveGroups),
		Date:         frame.RenderedAt.Format(time.DateOnly),
		LastUpdate:   frame.RenderedAt,
		RunID:        frame.RunID,
	}
	if snap == nil {
		return st
	}
	ctx := Context{Now: frame.RenderedAt}
	st.Temperature = snap.Temperature
	st.WeatherSymbol = snap.WeatherSymbol
	st.WeatherDescription = snap.WeatherDescription
	st.Pressure = snap.Pressure
	st.TrendText = snap.PressureTrend.Text
	st.TrendArrow = snap.PressureTrend.Arrow
	st.TomorrowTemperature = snap.Tomorrow.Temperature
	st.TomorrowSymbol = snap.Tomorrow.WeatherSymbol
	st.TomorrowDescription = snap.Tomorrow.WeatherDescription
	st.Sunrise = clockTime(snap.Sun.Sunrise, ctx)
	st.Sunset = clockTime(snap.Sun.Sunset, ctx)
	return st
}

// ShouldUpdate decides whether next differs enough from what the panel
// shows. A nil prev always updates.
func ShouldUpdate(prev *DisplayState, next DisplayState, watchdog time.Duration) (bool, string) {
	switch {
	case prev == nil:
		return true, ReasonFirstRun
	case watchdog > 0 && next.LastUpdate.Sub(prev.LastUpdate) >= watchdog:
		return true, ReasonWatchdog
	case prev.Date != next.Date:
		return true, ReasonDateChanged
	case !maps.Equal(prev.ActiveGroups, next.ActiveGroups):
		return true, ReasonLayoutChanged
	}

	numeric := [][2]float64{
		{prev.Temperature, next.Temperature},
		{prev.Pressure, next.Pressure},
		{prev.TomorrowTemperature, next.TomorrowTemperature},
	}
	for _, pair := range numeric {
		if math.Abs(pair[0]-pair[1]) >= numericTolerance {
			return true, ReasonDataChanged
		}
	}
	if prev.WeatherSymbol != next.WeatherSymbol ||
		prev.WeatherDescription != next.WeatherDescription ||
		prev.TrendText != next.TrendText ||
		prev.TrendArrow != next.TrendArrow ||
		prev.TomorrowSymbol != next.TomorrowSymbol ||
		prev.TomorrowDescription != next.TomorrowDescription ||
		prev.Sunrise != next.Sunrise ||
		prev.Sunset != next.Sunset {
		return true, ReasonDataChanged
	}
	return false, ReasonUnchanged
}

// LoadState reads the state file. A missing file returns nil and no error.
func LoadState(path string) (*DisplayState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, stateError(err, path, "read")
	}
	var st DisplayState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.New(err).
			Component("render").
			Category(errors.CategoryFileParsing).
			FileContext(path, int64(len(data))).
			Build()
	}
	return &st, nil
}

// SaveState replaces the state file atomically.
func SaveState(path string, st DisplayState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return stateError(err, path, "encode")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stateError(err, path, "create_dir")
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return stateError(err, path, "create_temp")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return stateError(err, path, "write_temp")
	}
	if err := tmp.Close(); err != nil {
		return stateError(err, path, "close_temp")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return stateError(err, path, "rename")
	}
	return nil
}

func stateError(err error, path, op string) error {
	return errors.New(err).
		Component("render").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Context("operation", op).
		Build()
}
