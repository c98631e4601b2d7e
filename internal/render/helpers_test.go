package render

import (
	"image"
	"time"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/suncalc"
	"github.com/tphakala/epaper-weather/internal/weather"
)

var cest = time.FixedZone("CEST", 2*60*60)

// testNow is a Wednesday afternoon.
var testNow = time.Date(2026, 6, 24, 14, 5, 0, 0, cest)

// blackIcons returns solid black icons of the requested size.
type blackIcons struct{ calls int }

func (b *blackIcons) icon(size image.Point) image.Image {
	b.calls++
	return image.NewGray(image.Rectangle{Max: size})
}

func (b *blackIcons) GetWeatherIcon(_ int, _ bool, size image.Point) image.Image { return b.icon(size) }
func (b *blackIcons) PressureIcon(_ string, size image.Point) image.Image { return b.icon(size) }
func (b *blackIcons) WindIcon(_ string, size image.Point) image.Image { return b.icon(size) }
func (b *blackIcons) SunIcon(_ string, size image.Point) image.Image { return b.icon(size) }
func (b *blackIcons) SystemIcon(_ string, size image.Point) image.Image { return b.icon(size) }

// panicIcons fails every lookup.
type panicIcons struct{}

func (panicIcons) GetWeatherIcon(int, bool, image.Point) image.Image { panic("icon store gone") }
func (panicIcons) PressureIcon(string, image.Point) image.Image { panic("icon store gone") }
func (panicIcons) WindIcon(string, image.Point) image.Image { panic("icon store gone") }
func (panicIcons) SunIcon(string, image.Point) image.Image { panic("icon store gone") }
func (panicIcons) SystemIcon(string, image.Point) image.Image { panic("icon store gone") }

func testDeps(icons IconSource) Deps {
	names := make([]string, 0, len(conf.DefaultFontSizes()))
	for name := range conf.DefaultFontSizes() {
		names = append(names, name)
	}
	return Deps{Fonts: display.BitmapFonts(names...), Icons: icons}
}

func testSnapshot() *weather.WeatherSnapshot {
	return &weather.WeatherSnapshot{
		Timestamp:          testNow,
		Location:           "stockholm",
		Temperature:        16.4,
		TemperatureSource:  weather.SourceSMHI,
		Pressure:           1009,
		PressureSource:     weather.SourceSMHI,
		PressureTrend:      weather.PressureTrend{Trend: "rising", Change3h: 1.6, DataHours: 3, Text: "Rising", Arrow: "rising"},
		WindSpeed:          6.2,
		WindDirection:      225,
		WeatherSymbol:      3,
		WeatherDescription: "Variable cloudiness",
		Tomorrow: weather.Tomorrow{
			Temperature:        21.3,
			WeatherSymbol:      2,
			WeatherDescription: "Mostly clear",
		},
		Sun: suncalc.SunTimes{
			Sunrise: time.Date(2026, 6, 24, 1, 31, 0, 0, time.UTC),
			Sunset:  time.Date(2026, 6, 24, 20, 8, 0, 0, time.UTC),
			Source:  suncalc.SourceRemote,
		},
		DataSources: []string{weather.SourceSMHI},
	}
}

func wetSnapshot() *weather.WeatherSnapshot {
	s := testSnapshot()
	s.Precipitation = 0.6
	s.ForecastPrecipitation2h = 0.6
	s.Cycling = weather.CyclingWarning{Warning: true, PrecipitationMM: 0.6, ForecastTime: "15:00"}
	return s
}

func blackIn(c *display.Canvas, r image.Rectangle) int {
	r = r.Intersect(c.Bounds())
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c.Image().GrayAt(x, y) == display.Black {
				n++
			}
		}
	}
	return n
}

// blackOutside counts black pixels of the canvas not in r.
func blackOutside(c *display.Canvas, r image.Rectangle) int {
	return blackIn(c, c.Bounds()) - blackIn(c, r)
}
