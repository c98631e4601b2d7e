// Package icons loads Weather Icons PNG assets and converts them to 1-bit
// bitmaps for the e-paper panel. Converted icons are cached in memory for the
// life of the process.
package icons

import (
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
)

// asset is a day and night pair of icon names.
type asset struct {
	day, night string
}

// weatherAssets maps SMHI Wsymb2 codes to Weather Icons names.
var weatherAssets = map[int]asset{
	1:  {"wi-day-sunny", "wi-night-clear"},
	2:  {"wi-day-sunny-overcast", "wi-night-partly-cloudy"},
	3:  {"wi-day-cloudy", "wi-night-alt-cloudy"},
	4:  {"wi-day-cloudy-high", "wi-night-cloudy-high"},
	5:  {"wi-cloudy", "wi-cloudy"},
	6:  {"wi-cloud", "wi-cloud"},
	7:  {"wi-fog", "wi-fog"},
	8:  {"wi-day-showers", "wi-night-showers"},
	9:  {"wi-day-rain", "wi-night-rain"},
	10: {"wi-rain", "wi-rain"},
	11: {"wi-day-thunderstorm", "wi-night-thunderstorm"},
	12: {"wi-day-rain-mix", "wi-night-rain-mix"},
	13: {"wi-rain-mix", "wi-rain-mix"},
	14: {"wi-rain-mix", "wi-rain-mix"},
	15: {"wi-day-snow", "wi-night-snow"},
	16: {"wi-snow", "wi-snow"},
	17: {"wi-snow", "wi-snow"},
	18: {"wi-day-rain", "wi-night-rain"},
	19: {"wi-rain", "wi-rain"},
	20: {"wi-rain", "wi-rain"},
	21: {"wi-thunderstorm", "wi-thunderstorm"},
	22: {"wi-day-sleet", "wi-night-sleet"},
	23: {"wi-sleet", "wi-sleet"},
	24: {"wi-sleet", "wi-sleet"},
	25: {"wi-day-snow", "wi-night-snow"},
	26: {"wi-snow", "wi-snow"},
	27: {"wi-snow", "wi-snow"},
}

var pressureAssets = map[string]string{
	"rising":  "wi-direction-up",
	"falling": "wi-direction-down",
	"stable":  "wi-direction-right",
}

// pressureGlyphs are drawn when the arrow asset is missing. The fallback
// font only covers ASCII.
var pressureGlyphs = map[string]string{
	"rising":  "^",
	"falling": "v",
	"stable":  ">",
}

var sunAssets = map[string]string{
	"sunrise":  "wi-sunrise",
	"sunset":   "wi-sunset",
	"daylight": "wi-day-sunny",
}

var systemAssets = map[string]string{
	"update":       "wi-refresh",
	"data_source":  "wi-strong-wind",
	"status_ok":    "wi-day-sunny",
	"status_error": "wi-na",
	"clock":        "wi-time-1",
	"clock3":       "wi-time-3",
	"clock7":       "wi-time-7",
	"barometer":    "wi-barometer",
	"calendar":     "wi-calendar",
	"strong-wind":  "wi-strong-wind",
	"umbrella":     "wi-umbrella",
}

// cardinals are the 16 compass points with a wind icon each.
var cardinals = []string{
	"n", "nne", "ne", "ene", "e", "ese", "se", "sse",
	"s", "ssw", "sw", "wsw", "w", "wnw", "nw", "nnw",
}

// Square is a size of n by n pixels.
func Square(n int) image.Point { return image.Pt(n, n) }

// WeatherAsset returns the asset name of a weather code, and false for codes
// outside 1..27.
func WeatherAsset(code int, isNight bool) (string, bool) {
	a, ok := weatherAssets[code]
	if !ok {
		return "", false
	}
	if isNight {
		return a.night, true
	}
	return a.day, true
}

// Option customizes a Manager.
type Option func(*Manager)

func WithMetrics(m *metrics.DisplayMetrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// Manager resolves icons below a base directory laid out as
// weather/, pressure/, sun/, system/ and wind/<W>x<H>/. Safe for concurrent use.
type Manager struct {
	dir     string
	cache   *gocache.Cache
	metrics *metrics.DisplayMetrics
	log     logger.Logger
}

// New creates a manager reading assets from dir.
func New(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:   dir,
		cache: gocache.New(gocache.NoExpiration, 0),
		log:   logger.Global().Module("icons"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetWeatherIcon returns the 1-bit icon of an SMHI weather code. It never
// returns nil: unknown codes and unreadable assets yield a fallback glyph
// reading "?<code>".
func (m *Manager) GetWeatherIcon(code int, isNight bool, size image.Point) image.Image {
	name, ok := WeatherAsset(code, isNight)
	if !ok {
		m.log.Warn("unknown weather symbol", logger.Int("code", code))
		return m.fallback(fmt.Sprintf("unmapped/%d", code), size, fmt.Sprintf("?%d", code))
	}
	return m.load(filepath.Join("weather", name+".png"), size, classFor(size), fmt.Sprintf("?%d", code))
}

// PressureIcon returns the trend arrow; unknown trends use the stable arrow.
func (m *Manager) PressureIcon(trend string, size image.Point) image.Image {
	name, ok := pressureAssets[trend]
	if !ok {
		trend, name = "stable", pressureAssets["stable"]
	}
	return m.load(filepath.Join("pressure", name+".png"), size, classPressure, pressureGlyphs[trend])
}

// WindIcon returns the direction icon of a compass point such as "sw".
// Assets are stored per size.
func (m *Manager) WindIcon(cardinal string, size image.Point) image.Image {
	cardinal = strings.ToLower(cardinal)
	if !slices.Contains(cardinals, cardinal) {
		cardinal = "n"
	}
	dir := fmt.Sprintf("%dx%d", size.X, size.Y)
	return m.load(filepath.Join("wind", dir, "wi-wind-"+cardinal+".png"), size, classWind, strings.ToUpper(cardinal))
}

// SunIcon returns the sunrise, sunset or daylight icon.
func (m *Manager) SunIcon(kind string, size image.Point) image.Image {
	name, ok := sunAssets[kind]
	if !ok {
		name = sunAssets["daylight"]
	}
	return m.load(filepath.Join("sun", name+".png"), size, classFor(size), "?")
}

// SystemIcon returns one of the status bar and module header icons.
func (m *Manager) SystemIcon(kind string, size image.Point) image.Image {
	name, ok := systemAssets[kind]
	if !ok {
		name = "wi-na"
	}
	class := classFor(size)
	switch kind {
	case "calendar":
		class = classCalendar
	case "strong-wind":
		class = classWind
	}
	return m.load(filepath.Join("system", name+".png"), size, class, "?")
}

// Len is the number of cached bitmaps, fallbacks included.
func (m *Manager) Len() int { return m.cache.ItemCount() }

// Clear drops every cached bitmap.
func (m *Manager) Clear() {
	m.cache.Flush()
	m.metrics.SetIconCacheEntries(0)
	m.log.Info("icon cache cleared")
}

func (m *Manager) load(rel string, size image.Point, class enhancement, glyph string) image.Image {
	key := cacheKey(rel, size)
	if v, ok := m.cache.Get(key); ok {
		return v.(image.Image)
	}

	path := filepath.Join(m.dir, rel)
	img, err := convertFile(path, size, class)
	if err != nil {
		m.log.Warn("icon unavailable, drawing fallback",
			logger.String("path", path),
			logger.Error(err))
		fb := Fallback(size, glyph)
		m.store(key, fb)
		return fb
	}
	m.store(key, img)
	m.log.Debug("icon loaded", logger.String("path", rel), logger.Int("width", size.X), logger.Int("height", size.Y))
	return img
}

func (m *Manager) fallback(rel string, size image.Point, glyph string) image.Image {
	key := cacheKey(rel, size)
	if v, ok := m.cache.Get(key); ok {
		return v.(image.Image)
	}
	img := Fallback(size, glyph)
	m.store(key, img)
	return img
}

func (m *Manager) store(key string, img image.Image) {
	m.cache.Set(key, img, gocache.NoExpiration)
	m.metrics.SetIconCacheEntries(m.cache.ItemCount())
}

func cacheKey(rel string, size image.Point) string {
	return fmt.Sprintf("%s_%dx%d", rel, size.X, size.Y)
}
