package weather

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tphakala/epaper-weather/internal/errors"
)

// TestData overrides the precipitation fields of the snapshot so the
// precipitation layout can be exercised on a dry day.
type TestData struct {
	Precipitation           float64   `json:"precipitation"`
	ForecastPrecipitation2h float64   `json:"forecast_precipitation_2h"`
	ExpiresAt               time.Time `json:"expires_at"`
	Description             string    `json:"description"`
}

// Expired reports whether the override has run out at now.
func (td TestData) Expired(now time.Time) bool {
	return !td.ExpiresAt.IsZero() && !now.Before(td.ExpiresAt)
}

// LoadTestData reads the override at path. A missing file yields ok=false
// without error; an expired file is removed and yields ok=false.
func LoadTestData(path string, now time.Time) (td TestData, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return TestData{}, false, nil
		}
		return TestData{}, false, errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			Context("operation", "read_test_data").
			Build()
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return TestData{}, false, errors.New(err).
			Component("weather").
			Category(errors.CategoryFileParsing).
			FileContext(path, int64(len(data))).
			Build()
	}
	if td.Expired(now) {
		_ = os.Remove(path)
		return TestData{}, false, nil
	}
	return td, true, nil
}

// InjectTestData writes an override at path.
func InjectTestData(path string, td TestData) error {
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			Context("operation", "create_test_data_dir").
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			FileContext(path, int64(len(data))).
			Build()
	}
	return nil
}

// ClearTestData removes the override. Removing a missing file is not an error.
func ClearTestData(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			Context("operation", "clear_test_data").
			Build()
	}
	return nil
}

// apply writes the override onto a snapshot.
func (td TestData) apply(s *WeatherSnapshot) {
	s.Precipitation = td.Precipitation
	s.PrecipitationSource = SourceTestData
	s.ForecastPrecipitation2h = td.ForecastPrecipitation2h
	// the override replaces the forecast verdict in both directions
	s.Cycling = CyclingWarning{Reason: "test data"}
	if td.ForecastPrecipitation2h >= CyclingThreshold {
		s.Cycling.Warning = true
		s.Cycling.PrecipitationMM = td.ForecastPrecipitation2h
		s.Cycling.Intensity = IntensityDescription(td.ForecastPrecipitation2h)
	}
	s.TestMode = true
	s.TestDescription = td.Description
	if s.TestDescription == "" {
		s.TestDescription = "test data active"
	}
}
