package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/weather"
)

func TestPrecipitationStatus(t *testing.T) {
	tests := []struct {
		name       string
		now        float64
		forecast   float64
		cycling    weather.CyclingWarning
		wantStatus string
		wantDetail string
	}{
		{"raining", 0.3, 0, weather.CyclingWarning{}, StatusRainingNow, "Light drizzle intensity"},
		{"raining heavily beats forecast", 15, 0.4, weather.CyclingWarning{ForecastTime: "15:00"}, StatusRainingNow, "Very heavy intensity"},
		{"expected with onset", 0, 0.8, weather.CyclingWarning{ForecastTime: "13:00"}, StatusRainExpected, "Light - starts 13:00"},
		{"expected without onset", 0, 2.0, weather.CyclingWarning{}, StatusRainExpected, "Moderate - starts soon"},
		{"neutral", 0, 0, weather.CyclingWarning{}, StatusDetected, "Checking data..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := PrecipitationStatus(tt.now, tt.forecast, tt.cycling)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestPrecipitationRenderer_Layout(t *testing.T) {
	icons := &blackIcons{}
	r := NewPrecipitationRenderer(testDeps(icons))
	c := display.NewCanvas(800, 480)
	rect := image.Rect(10, 300, 480, 470)
	snap := wetSnapshot()

	ok := r.Render(c, rect, snap, Context{Now: testNow, Values: NewTriggerContext(snap, testNow)})

	assert.True(t, ok)
	assert.Equal(t, 1, icons.calls)
	assert.Equal(t, 40*40, blackIn(c, image.Rect(28, 318, 68, 358)), "warning icon")
	assert.Positive(t, blackIn(c, image.Rect(75, 320, 480, 335)), "status")
	assert.Positive(t, blackIn(c, image.Rect(75, 365, 480, 380)), "detail")
	assert.Zero(t, blackOutside(c, rect))
}

func TestPrecipitationRenderer_ContextOverridesSnapshot(t *testing.T) {
	// trigger context says it is dry now, so the forecast branch is shown
	snap := wetSnapshot()
	values := NewTriggerContext(snap, testNow)
	values[FieldPrecipitation] = 0

	status, detail := PrecipitationStatus(
		Context{Values: values}.Value(FieldPrecipitation, snap.Precipitation),
		Context{Values: values}.Value(FieldForecast2h, snap.ForecastPrecipitation2h),
		snap.Cycling,
	)
	assert.Equal(t, StatusRainExpected, status)
	assert.Equal(t, "Light - starts 15:00", detail)
}

func TestPrecipitationRenderer_IconFailureDrawsMark(t *testing.T) {
	r := NewPrecipitationRenderer(testDeps(panicIcons{}))
	c := display.NewCanvas(800, 480)
	rect := image.Rect(10, 300, 480, 470)

	ok := r.Render(c, rect, wetSnapshot(), Context{Now: testNow})

	assert.True(t, ok)
	mark := blackIn(c, image.Rect(28, 318, 36, 332))
	assert.Positive(t, mark, "exclamation mark")
	assert.Less(t, mark, 40, "mark is a glyph, not the icon")
	// the mark counts as an icon, so the status keeps its indent
	assert.Zero(t, blackIn(c, image.Rect(36, 318, 74, 340)))
	assert.Positive(t, blackIn(c, image.Rect(75, 320, 480, 335)))
}

func TestPrecipitationRenderer_TotalFailure(t *testing.T) {
	r := NewPrecipitationRenderer(testDeps(panicIcons{}))
	// every element lies outside this canvas except the fallback mark
	c := display.NewCanvas(17, 17)

	ok := r.Render(c, image.Rect(0, 0, 470, 170), wetSnapshot(), Context{Now: testNow})

	assert.False(t, ok)
	assert.Positive(t, blackIn(c, c.Bounds()), "fallback mark")
}

func TestPrecipitationRenderer_NilSnapshot(t *testing.T) {
	r := NewPrecipitationRenderer(testDeps(&blackIcons{}))
	c := display.NewCanvas(800, 480)

	assert.True(t, r.Render(c, image.Rect(10, 300, 480, 470), nil, Context{Now: testNow}))
}
