package render

import (
	"fmt"
	"image"
	"strings"

	"github.com/tphakala/epaper-weather/internal/display"
	"github.com/tphakala/epaper-weather/internal/icons"
	"github.com/tphakala/epaper-weather/internal/weather"
)

const (
	windPadding  = 20
	windIconSize = 40
	// below this height the module is drawn as a single row
	windTallHeight = 150
)

// WindRenderer shows wind speed, its Beaufort name and a direction icon.
type WindRenderer struct {
	Deps
}

func NewWindRenderer(d Deps) *WindRenderer {
	return &WindRenderer{Deps: d}
}

func (r *WindRenderer) Render(c *display.Canvas, rect image.Rectangle, snap *weather.WeatherSnapshot, ctx Context) bool {
	p := newPass("wind_module", ctx)
	if snap == nil {
		fallbackContent(c, rect, r.Deps, p, "Wind data unavailable")
		return false
	}
	speed := fmt.Sprintf("%.1f m/s", snap.WindSpeed)
	desc := weather.BeaufortDescription(snap.WindSpeed)
	cardinal := weather.CompassDirection(snap.WindDirection)

	if rect.Dy() >= windTallHeight {
		r.tall(c, rect, p, speed, desc, cardinal)
	} else {
		r.row(c, rect, p, speed, desc, cardinal)
	}

	if p.drawn == 0 {
		fallbackContent(c, rect, r.Deps, p, "Wind data unavailable")
		return false
	}
	return true
}

// tall stacks speed, a wrapped description and the direction.
func (r *WindRenderer) tall(c *display.Canvas, rect image.Rectangle, p *pass, speed, desc, cardinal string) {
	x, y, w, h := rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()
	c.Rect(image.Rect(x+2, y+2, x+w-2, y+h-2), 2)

	speedFace := r.face("large_main", "medium_main")
	var speedH int
	p.try("speed", func() error {
		box, err := c.DrawText(image.Pt(x+windPadding, y+windPadding), speed, speedFace, w-2*windPadding)
		speedH = box.Dy()
		return err
	})

	descFace := r.face("small_main")
	lineY := y + windPadding + speedH + 18
	for i, line := range display.Wrap(descFace, desc, w-2*windPadding, 2) {
		p.text(c, fmt.Sprintf("description_%d", i+1), image.Pt(x+windPadding, lineY), line, descFace, 0)
		lineY += display.TextSize(descFace, line).Y + 6
	}

	iconPt := image.Pt(x+windPadding, y+h-windPadding-windIconSize)
	p.bitmap(c, "direction_icon", iconPt, func() image.Image {
		return r.Icons.WindIcon(strings.ToLower(cardinal), icons.Square(windIconSize))
	})
	labelFace := r.face("small_main")
	labelY := iconPt.Y + (windIconSize-display.TextSize(labelFace, cardinal).Y)/2
	p.text(c, "direction", image.Pt(iconPt.X+windIconSize+8, labelY), cardinal, labelFace, 0)
}

// row puts the direction icon left of speed and description.
func (r *WindRenderer) row(c *display.Canvas, rect image.Rectangle, p *pass, speed, desc, cardinal string) {
	x, y, w, h := rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()

	p.bitmap(c, "direction_icon", image.Pt(x+15, y+(h-windIconSize)/2), func() image.Image {
		return r.Icons.WindIcon(strings.ToLower(cardinal), icons.Square(windIconSize))
	})
	textX := x + 15 + windIconSize + 10
	p.text(c, "speed", image.Pt(textX, y+10), speed+" "+cardinal, r.face("small_main"), w-(textX-x)-10)
	p.text(c, "description", image.Pt(textX, y+40), desc, r.face("small_desc"), w-(textX-x)-10)
}
