package render

import (
	"fmt"
	"image"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/icons"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// BarometerRenderer shows air pressure and its three-hour trend.
type BarometerRenderer struct {
	Deps
}

func NewBarometerRenderer(d Deps) *BarometerRenderer {
	return &BarometerRenderer{Deps: d}
}

func (r *BarometerRenderer) Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("barometer_module", ctx)
	if snap == nil {
		fallbackContent(c, rect, r.Deps, p, "Pressure data unavailable")
		return false
	}
	x, y, w, h := rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()
	trend := snap.PressureTrend

	iconOK := p.bitmap(c, "barometer_icon", image.Pt(x+15, y+20), func() image.Image {
		return r.Icons.SystemIcon("barometer", icons.Square(80))
	})
	value := fmt.Sprintf("%d", int(snap.Pressure+0.5))
	if iconOK {
		p.text(c, "pressure", image.Pt(x+100, y+40), value, r.face("medium_main"), 0)
	} else {
		p.text(c, "pressure", image.Pt(x+20, y+50), value, r.face("medium_main"), 0)
	}
	p.text(c, "unit", image.Pt(x+100, y+100), "hPa", r.face("small_desc"), 0)

	trendFace := r.face("small_main", "small_desc")
	changeY := y + 150
	if trend.Text == "Collecting data" {
		p.text(c, "trend", image.Pt(x+20, y+125), "Collecting", trendFace, 0)
		p.text(c, "trend_2", image.Pt(x+20, y+150), "data", trendFace, 0)
		changeY = y + 175
	} else {
		p.text(c, "trend", image.Pt(x+20, y+125), trend.Text, trendFace, w-110)
	}
	if trend.Trend != weather.TrendInsufficient && trend.Trend != weather.TrendUnknown {
		p.text(c, "change", image.Pt(x+20, changeY), fmt.Sprintf("%+.1f hPa/3h", trend.Change3h), r.face("small_desc"), 0)
	}

	p.bitmap(c, "trend_icon", image.Pt(x+w-75, y+100), func() image.Image {
		return r.Icons.PressureIcon(trend.Arrow, icons.Square(64))
	})
	p.text(c, "source", image.Pt(x+20, y+h-20), pressureSourceLabel(snap.PressureSource), r.face("tiny"), 0)

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Pressure data unavailable")
		return false
	}
	return true
}

func pressureSourceLabel(source string) string {
	switch source {
	case weather.SourceLocalSensor:
		return "(Netatmo)"
	case weather.SourceSMHI:
		return "(SMHI)"
	default:
		return "(" + capitalize(source) + ")"
	}
}
