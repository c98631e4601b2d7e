package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntensityDescription(t *testing.T) {
	tests := []struct {
		mm   float64
		want string
	}{
		{0, "none"},
		{0.05, "none"},
		{0.1, "light drizzle"},
		{0.3, "light drizzle"},
		{0.5, "light"},
		{0.8, "light"},
		{1.0, "moderate"},
		{2.0, "moderate"},
		{2.5, "heavy"},
		{5.0, "heavy"},
		{10.0, "very heavy"},
		{15.0, "very heavy"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IntensityDescription(tt.mm), "mm=%v", tt.mm)
	}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "Clear", Description(1))
	assert.Equal(t, "Thunder", Description(21))
	assert.Equal(t, "Heavy snowfall", Description(27))
	assert.Equal(t, "Unknown weather", Description(0))
	assert.Equal(t, "Unknown weather", Description(28))

	for code := 1; code <= 27; code++ {
		assert.NotEqual(t, "Unknown weather", Description(code), "code %d", code)
	}
}

func TestSyncedDescription(t *testing.T) {
	tests := []struct {
		name     string
		symbol   int
		observed float64
		want     string
	}{
		{"rain forecast, dry observation", 18, 0, "Light rain expected"},
		{"showers forecast, dry observation", 9, 0, "Moderate rain showers expected"},
		{"sleet forecast, dry observation", 24, 0, "Heavy sleet expected"},
		{"thunder forecast, dry observation", 21, 0, "Thunder expected"},
		{"rain forecast, wet observation", 18, 0.4, "Light rain"},
		{"snow is not synchronized", 26, 0, "Moderate snowfall"},
		{"thunderstorm is not synchronized", 11, 0, "Thunderstorm"},
		{"clear sky", 1, 0, "Clear"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SyncedDescription(tt.symbol, tt.observed))
		})
	}
}

func TestPrecipitationType(t *testing.T) {
	assert.Equal(t, "None", PrecipitationType(0))
	assert.Equal(t, "Snow", PrecipitationType(1))
	assert.Equal(t, "Sleet", PrecipitationType(2))
	assert.Equal(t, "Rain", PrecipitationType(3))
	assert.Equal(t, "Hail", PrecipitationType(4))
	assert.Equal(t, "Hail and rain", PrecipitationType(5))
	assert.Equal(t, "Hail and snow", PrecipitationType(6))
	assert.Equal(t, "Unknown type (9)", PrecipitationType(9))
}

func TestBeaufort(t *testing.T) {
	tests := []struct {
		speed float64
		force int
		name  string
	}{
		{0, 0, "Calm"},
		{0.19, 0, "Calm"},
		{0.2, 1, "Light air"},
		{3.3, 3, "Gentle breeze"},
		{7.8, 4, "Moderate breeze"},
		{17.1, 8, "Gale"},
		{32.5, 11, "Violent storm"},
		{32.6, 12, "Hurricane"},
		{50, 12, "Hurricane"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.force, Beaufort(tt.speed), "speed=%v", tt.speed)
		assert.Equal(t, tt.name, BeaufortDescription(tt.speed), "speed=%v", tt.speed)
	}
}

func TestCompassDirection(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{11.2, "N"},
		{11.25, "NNE"},
		{45, "NE"},
		{90, "E"},
		{180, "S"},
		{225, "SW"},
		{348.75, "N"},
		{348.7, "NNW"},
		{360, "N"},
		{-90, "W"},
		{720 + 135, "SE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompassDirection(tt.deg), "deg=%v", tt.deg)
	}
}
