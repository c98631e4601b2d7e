// Package render lays weather snapshots out on the display canvas. Each
// module renderer owns one rectangle; the Dashboard decides which modules
// are visible and composes a frame.
package render

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/image/font"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// Renderer draws one module into rect. It reports whether the module's own
// content was drawn; false means a fallback message was shown instead.
type Renderer interface {
	Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool
}

// IconSource supplies 1-bit icons. *icons.Manager implements it.
type IconSource interface {
	GetWeatherIcon(code int, isNight bool, size image.Point) image.Image
	PressureIcon(trend string, size image.Point) image.Image
	WindIcon(cardinal string, size image.Point) image.Image
	SunIcon(kind string, size image.Point) image.Image
	SystemIcon(kind string, size image.Point) image.Image
}

// Context is what a renderer knows besides the snapshot.
type Context struct {
	Now    time.Time          // in the display time zone
	Values map[string]float64 // trigger context, see NewTriggerContext
	RunID  string
}

// Value returns a trigger context value, or def when absent.
func (c Context) Value(name string, def float64) float64 {
	if v, ok := c.Values[name]; ok {
		return v
	}
	return def
}

// Deps are shared by all renderers.
type Deps struct {
	Fonts *display.Fonts
	Icons IconSource
}

func (d Deps) face(names ...string) font.Face { return d.Fonts.First(names...) }

// pass runs the guarded draw calls of one module render. A failing or
// panicking element is logged and skipped.
type pass struct {
	module string
	log    logger.Logger
	drawn  int
	failed int
}

func newPass(module string, ctx Context) *pass {
	log := logger.Global().Module("render").With(logger.String("module", module))
	if ctx.RunID != "" {
		log = log.With(logger.String("run_id", ctx.RunID))
	}
	return &pass{module: module, log: log}
}

func (p *pass) try(element string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("element panicked",
				logger.String("element", element),
				logger.Error(fmt.Errorf("panic: %v", r)))
			ok = false
		}
		if ok {
			p.drawn++
		} else {
			p.failed++
		}
	}()
	if err := fn(); err != nil {
		p.log.Warn("element not drawn", logger.String("element", element), logger.Error(err))
		return false
	}
	return true
}

// text is a guarded DrawText.
func (p *pass) text(c *display.Canvas, element string, pt image.Point, s string, face font.Face, maxWidth int) bool {
	return p.try(element, func() error {
		_, err := c.DrawText(pt, s, face, maxWidth)
		return err
	})
}

// bitmap is a guarded icon lookup and DrawBitmap.
func (p *pass) bitmap(c *display.Canvas, element string, pt image.Point, load func() image.Image) bool {
	return p.try(element, func() error {
		return c.DrawBitmap(pt, load())
	})
}

// fallbackContent replaces a module whose elements all failed with a
// warning mark and a message.
func fallbackContent(c *display.Canvas, rect image.Rectangle, d Deps, p *pass, msg string) {
	x, y := rect.Min.X, rect.Min.Y
	p.text(c, "fallback_mark", image.Pt(x+10, y+10), "!", d.face("medium_desc", "small_main"), 0)
	p.text(c, "fallback_message", image.Pt(x+50, y+15), msg, d.face("small_desc", "tiny"), rect.Dx()-60)
	p.log.Warn("module rendered as fallback", logger.String("message", msg))
}
