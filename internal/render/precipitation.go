package render

import (
	"image"
	"unicode"
	"unicode/utf8"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/icons"
	"github.com/tphakala/epaper-weather/internal/weather"
)

const (
	StatusRainingNow   = "RAINING NOW"
	StatusRainExpected = "RAIN EXPECTED"
	StatusDetected     = "PRECIPITATION DETECTED"
)

// PrecipitationRenderer shows current rain or rain expected within two
// hours. It replaces the bottom section while the precipitation trigger is
// active.
type PrecipitationRenderer struct {
	Deps
}

func NewPrecipitationRenderer(d Deps) *PrecipitationRenderer {
	return &PrecipitationRenderer{Deps: d}
}

// PrecipitationStatus returns the headline and detail line for the given
// current and two-hour forecast amounts in mm/h.
func PrecipitationStatus(now, forecast2h float64, cw weather.CyclingWarning) (status, detail string) {
	switch {
	case now > 0:
		return StatusRainingNow, capitalize(weather.IntensityDescription(now)) + " intensity"
	case forecast2h > 0:
		start := cw.ForecastTime
		if start == "" {
			start = "soon"
		}
		return StatusRainExpected, capitalize(weather.IntensityDescription(forecast2h)) + " - starts " + start
	default:
		return StatusDetected, "Checking data..."
	}
}

func (r *PrecipitationRenderer) Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("precipitation_module", ctx)
	if snap == nil {
		snap = &weather.WeatherSnapshot{}
	}
	x, y, w := rect.Min.X, rect.Min.Y, rect.Dx()

	status, detail := PrecipitationStatus(
		ctx.Value("precipitation", snap.Precipitation),
		ctx.Value("forecast_precipitation_2h", snap.ForecastPrecipitation2h),
		snap.Cycling,
	)

	mark := image.Pt(x+18, y+18)
	iconOK := p.bitmap(c, "warning_icon", mark, func() image.Image {
		return r.Icons.SystemIcon("umbrella", icons.Square(40))
	})
	if !iconOK {
		iconOK = p.text(c, "warning_mark", mark, "!", r.face("medium_main", "small_main"), 0)
	}

	textX := x + 20
	if iconOK {
		textX = x + 65
	}
	p.text(c, "status", image.Pt(textX, y+20), status, r.face("small_main", "medium_desc"), w-(textX-x))
	p.text(c, "detail", image.Pt(x+65, y+65), detail, r.face("medium_desc", "small_desc"), w-85)

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Precipitation data unavailable")
		return false
	}
	return true
}

// capitalize upper-cases the first letter of s.
func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}
