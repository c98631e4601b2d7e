package mqtt

import (
	"time"

	"github.com/tphakala/epaper-weather/internal/weather"
)

// WeatherMessage is published retained on <topic>/weather after every
// refresh. Field names are consumed by home automation templates; keep them
// stable.
type WeatherMessage struct {
	Timestamp          time.Time `json:"timestamp"`
	Location           string    `json:"location"`
	Temperature        float64   `json:"temperature"`
	TemperatureSource  string    `json:"temperatureSource"`
	Humidity           float64   `json:"humidity"`
	Pressure           float64   `json:"pressure"`
	PressureTrend      string    `json:"pressureTrend"`
	PressureChange3h   float64   `json:"pressureChange3h"`
	WindSpeed          float64   `json:"windSpeed"`
	WindDirection      float64   `json:"windDirection"`
	Precipitation      float64   `json:"precipitation"`
	Precipitation2h    float64   `json:"precipitation2h"`
	WeatherSymbol      int       `json:"weatherSymbol"`
	WeatherDescription string    `json:"weatherDescription"`
	TomorrowTemp       float64   `json:"tomorrowTemperature"`
	Sunrise            time.Time `json:"sunrise"`
	Sunset             time.Time `json:"sunset"`
	Fallback           bool      `json:"fallback"`
	TestMode           bool      `json:"testMode,omitempty"`
}

// CyclingMessage is published on <topic>/cycling.
type CyclingMessage struct {
	Warning         bool       `json:"warning"`
	PrecipitationMM float64    `json:"precipitationMm"`
	Type            string     `json:"type,omitempty"`
	Intensity       string     `json:"intensity,omitempty"`
	Onset           *time.Time `json:"onset,omitempty"`
	ForecastTime    string     `json:"forecastTime,omitempty"`
	Reason          string     `json:"reason"`
}

// NewWeatherMessage flattens snap.
func NewWeatherMessage(snap *weather.WeatherSnapshot) WeatherMessage {
	return WeatherMessage{
		Timestamp:          snap.Timestamp,
		Location:           snap.Location,
		Temperature:        snap.Temperature,
		TemperatureSource:  snap.TemperatureSource,
		Humidity:           snap.Humidity,
		Pressure:           snap.Pressure,
		PressureTrend:      snap.PressureTrend.Trend,
		PressureChange3h:   snap.PressureTrend.Change3h,
		WindSpeed:          snap.WindSpeed,
		WindDirection:      snap.WindDirection,
		Precipitation:      snap.Precipitation,
		Precipitation2h:    snap.ForecastPrecipitation2h,
		WeatherSymbol:      snap.WeatherSymbol,
		WeatherDescription: snap.WeatherDescription,
		TomorrowTemp:       snap.Tomorrow.Temperature,
		Sunrise:            snap.Sun.Sunrise,
		Sunset:             snap.Sun.Sunset,
		Fallback:           snap.Fallback,
		TestMode:           snap.TestMode,
	}
}

func NewCyclingMessage(cw weather.CyclingWarning) CyclingMessage {
	msg := CyclingMessage{
		Warning:         cw.Warning,
		PrecipitationMM: cw.PrecipitationMM,
		Type:            cw.PrecipitationType,
		Intensity:       cw.Intensity,
		ForecastTime:    cw.ForecastTime,
		Reason:          cw.Reason,
	}
	if !cw.OnsetTime.IsZero() {
		onset := cw.OnsetTime
		msg.Onset = &onset
	}
	return msg
}
