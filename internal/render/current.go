package render

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/icons"
	"github.com/tphakala/epaper-weather/internal/suncalc"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// MainWeatherRenderer is the hero module: location, temperature, current
// conditions and today's sun times.
type MainWeatherRenderer struct {
	Deps
}

func NewMainWeatherRenderer(d Deps) *MainWeatherRenderer {
	return &MainWeatherRenderer{Deps: d}
}

func (r *MainWeatherRenderer) Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("main_weather", ctx)
	if snap == nil {
		fallbackContent(c, rect, r.Deps, p, "Weather data unavailable")
		return false
	}
	x, y, w := rect.Min.X, rect.Min.Y, rect.Dx()
	isNight := !snap.IsDaylight(ctx.Now)

	p.text(c, "location", image.Pt(x+20, y+15), cases.Title(language.English).String(snap.Location), r.face("medium_desc"), w-180)
	p.bitmap(c, "weather_icon", image.Pt(x+w-150, y+50), func() image.Image {
		return r.Icons.GetWeatherIcon(snap.WeatherSymbol, isNight, icons.Square(96))
	})
	p.text(c, "temperature", image.Pt(x+20, y+60), fmt.Sprintf("%.1f°", snap.Temperature), r.face("hero_temp"), 0)
	p.text(c, "description", image.Pt(x+20, y+150), snap.WeatherDescription, r.face("hero_desc"), w-40)
	p.text(c, "source", image.Pt(x+20, y+185), temperatureSourceLabel(snap.TemperatureSource), r.face("tiny"), 0)

	timeFace := r.face("small_main", "small_desc")
	p.bitmap(c, "sunrise_icon", image.Pt(x+20, y+200), func() image.Image {
		return r.Icons.SunIcon("sunrise", icons.Square(56))
	})
	p.text(c, "sunrise", image.Pt(x+80, y+215), clockTime(snap.Sun.Sunrise, ctx), timeFace, 0)
	p.bitmap(c, "sunset_icon", image.Pt(x+180, y+200), func() image.Image {
		return r.Icons.SunIcon("sunset", icons.Square(56))
	})
	p.text(c, "sunset", image.Pt(x+240, y+215), clockTime(snap.Sun.Sunset, ctx), timeFace, 0)
	p.text(c, "sun_source", image.Pt(x+20, y+250), sunSourceLabel(snap.Sun), r.face("tiny"), 0)

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Weather data unavailable")
		return false
	}
	return true
}

// TomorrowRenderer shows tomorrow's midday forecast.
type TomorrowRenderer struct {
	Deps
}

func NewTomorrowRenderer(d Deps) *TomorrowRenderer {
	return &TomorrowRenderer{Deps: d}
}

func (r *TomorrowRenderer) Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("tomorrow_forecast", ctx)
	if snap == nil {
		fallbackContent(c, rect, r.Deps, p, "Forecast unavailable")
		return false
	}
	x, y, w := rect.Min.X, rect.Min.Y, rect.Dx()
	t := snap.Tomorrow

	p.text(c, "title", image.Pt(x+20, y+30), "Tomorrow", r.face("medium_desc"), 0)
	p.bitmap(c, "weather_icon", image.Pt(x+w-160, y+20), func() image.Image {
		return r.Icons.GetWeatherIcon(t.WeatherSymbol, false, icons.Square(80))
	})
	p.text(c, "temperature", image.Pt(x+20, y+80), fmt.Sprintf("%.1f°", t.Temperature), r.face("medium_main"), 0)
	p.text(c, "description", image.Pt(x+20, y+130), t.WeatherDescription, r.face("small_desc"), w-60)
	p.text(c, "source", image.Pt(x+20, y+155), "(SMHI forecast)", r.face("tiny"), 0)

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Forecast unavailable")
		return false
	}
	return true
}

func temperatureSourceLabel(source string) string {
	switch source {
	case weather.SourceSMHI:
		return "(SMHI)"
	case weather.SourceLocalSensor:
		return "(NETATMO)"
	case "":
		return ""
	default:
		return "(" + cases.Upper(language.English).String(source) + ")"
	}
}

func sunSourceLabel(st suncalc.SunTimes) string {
	switch st.Source {
	case suncalc.SourceRemote:
		return "Sun: API"
	default:
		return "Sun: approx"
	}
}

// clockTime formats t as HH:MM in the display zone, or "--:--" when unset.
func clockTime(t time.Time, ctx Context) string {
	if t.IsZero() {
		return "--:--"
	}
	if loc := ctx.Now.Location(); loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}
