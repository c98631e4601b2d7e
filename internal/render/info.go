package render

import (
	"image"
	"slices"
	"strings"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/icons"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// ClockRenderer shows the weekday and date.
type ClockRenderer struct {
	Deps
}

func NewClockRenderer(d Deps) *ClockRenderer {
	return &ClockRenderer{Deps: d}
}

func (r *ClockRenderer) Render(c *display.Canvas, rect image.Rectangle, _ *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("clock_module", ctx)
	x, y, w := rect.Min.X, rect.Min.Y, rect.Dx()

	textX := x + 15
	if p.bitmap(c, "calendar_icon", image.Pt(x+15, y+20), func() image.Image {
		return r.Icons.SystemIcon("calendar", icons.Square(40))
	}) {
		textX = x + 65
	}
	p.text(c, "weekday", image.Pt(textX, y+20), ctx.Now.Format("Monday"), r.face("small_main"), w-80)
	p.text(c, "date", image.Pt(textX, y+55), ctx.Now.Format("2 January"), r.face("small_desc"), 0)
	p.try("underline", func() error {
		c.Line(image.Pt(textX, y+80), image.Pt(min(x+w-20, textX+150), y+80))
		return nil
	})

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Date unavailable")
		return false
	}
	return true
}

// StatusRenderer shows data health, the update time and the sources used.
type StatusRenderer struct {
	Deps
}

func NewStatusRenderer(d Deps) *StatusRenderer {
	return &StatusRenderer{Deps: d}
}

func (r *StatusRenderer) Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("status_module", ctx)
	x, y, w := rect.Min.X, rect.Min.Y, rect.Dx()
	face := r.face("small_desc")

	lines := []string{
		"Status: " + statusWord(snap),
		"Update: " + ctx.Now.Format("15:04"),
		"Data: " + DataSourceSummary(snap),
	}
	for i, line := range lines {
		row := y + 20 + 25*i
		p.try("dot", func() error {
			c.Dot(image.Pt(x+10, row+8), 3)
			return nil
		})
		p.text(c, "line", image.Pt(x+20, row), line, face, w-30)
	}

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Status unavailable")
		return false
	}
	return true
}

func statusWord(snap *weather.WeatherSnapshot) string {
	switch {
	case snap == nil || snap.Fallback:
		return "Fallback"
	case snap.TestMode:
		return "Test data"
	default:
		return "OK"
	}
}

// DataSourceSummary names the temperature and pressure sources, e.g.
// "Netatmo + SMHI".
func DataSourceSummary(snap *weather.WeatherSnapshot) string {
	if snap == nil || snap.Fallback {
		return "fallback"
	}
	var names []string
	for _, src := range []string{snap.TemperatureSource, snap.PressureSource} {
		name := sourceName(src)
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "fallback"
	}
	return strings.Join(names, " + ")
}

func sourceName(src string) string {
	switch src {
	case weather.SourceLocalSensor:
		return "Netatmo"
	case weather.SourceSMHI:
		return "SMHI"
	case "":
		return ""
	default:
		return src
	}
}
