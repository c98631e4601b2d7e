// Package display owns the frame buffer the renderers draw into, the fonts
// they draw with and the outputs a finished frame is pushed to.
package display

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/tphakala/epaper-weather/internal/errors"
)

var (
	Black = color.Gray{Y: 0}
	White = color.Gray{Y: 0xff}
)

// ErrEmptyText is returned when asked to draw nothing.
var ErrEmptyText = errors.NewStd("empty text")

// Canvas is a grayscale frame. Coordinates are absolute pixels with the
// origin top left.
type Canvas struct {
	img *image.Gray
}

// NewCanvas returns a white canvas of w by h pixels.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{img: image.NewGray(image.Rect(0, 0, w, h))}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(White), image.Point{}, draw.Src)
}

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Image exposes the backing buffer.
func (c *Canvas) Image() *image.Gray { return c.img }

// DrawText draws text with its top left corner at pt. When maxWidth is
// positive the text is shortened word by word until it fits. It returns the
// rectangle covered.
func (c *Canvas) DrawText(pt image.Point, text string, face font.Face, maxWidth int) (image.Rectangle, error) {
	if face == nil {
		return image.Rectangle{}, displayError("text", "no font face", pt)
	}
	text = Fold(face, strings.TrimSpace(text))
	if text == "" {
		return image.Rectangle{}, ErrEmptyText
	}
	if !pt.In(c.img.Bounds()) {
		return image.Rectangle{}, displayError("text", "origin outside canvas", pt)
	}
	if maxWidth > 0 {
		text = Truncate(face, text, maxWidth)
	}

	m := face.Metrics()
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(Black),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(pt.X), Y: fixed.I(pt.Y) + m.Ascent},
	}
	d.DrawString(text)

	size := TextSize(face, text)
	return image.Rectangle{Min: pt, Max: pt.Add(size)}, nil
}

// DrawBitmap copies img with its top left corner at pt.
func (c *Canvas) DrawBitmap(pt image.Point, img image.Image) error {
	if img == nil {
		return displayError("bitmap", "nil image", pt)
	}
	b := img.Bounds()
	dst := image.Rectangle{Min: pt, Max: pt.Add(b.Size())}
	if !dst.Overlaps(c.img.Bounds()) {
		return displayError("bitmap", "outside canvas", pt)
	}
	draw.Draw(c.img, dst, img, b.Min, draw.Src)
	return nil
}

// Rect outlines r with the given stroke width, drawn inwards.
func (c *Canvas) Rect(r image.Rectangle, width int) {
	width = max(width, 1)
	for i := range width {
		in := r.Inset(i)
		if in.Empty() {
			return
		}
		c.Line(in.Min, image.Pt(in.Max.X-1, in.Min.Y))
		c.Line(image.Pt(in.Min.X, in.Max.Y-1), image.Pt(in.Max.X-1, in.Max.Y-1))
		c.Line(in.Min, image.Pt(in.Min.X, in.Max.Y-1))
		c.Line(image.Pt(in.Max.X-1, in.Min.Y), image.Pt(in.Max.X-1, in.Max.Y-1))
	}
}

// FillRect paints r black.
func (c *Canvas) FillRect(r image.Rectangle) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(Black), image.Point{}, draw.Src)
}

// Line draws a one pixel line between p0 and p1 inclusive.
func (c *Canvas) Line(p0, p1 image.Point) {
	dx, dy := abs(p1.X-p0.X), -abs(p1.Y-p0.Y)
	sx, sy := sign(p1.X-p0.X), sign(p1.Y-p0.Y)
	e := dx + dy
	for {
		c.img.SetGray(p0.X, p0.Y, Black)
		if p0 == p1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p0.X += sx
		}
		if e2 <= dx {
			e += dx
			p0.Y += sy
		}
	}
}

// Dot fills a circle of radius r around center.
func (c *Canvas) Dot(center image.Point, r int) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				c.img.SetGray(center.X+x, center.Y+y, Black)
			}
		}
	}
}

// TextSize is the advance width and line height of text.
func TextSize(face font.Face, text string) image.Point {
	m := face.Metrics()
	return image.Pt(font.MeasureString(face, text).Ceil(), (m.Ascent + m.Descent).Ceil())
}

// Truncate drops trailing words until text fits maxWidth. When not even one
// word fits, the first word is returned.
func Truncate(face font.Face, text string, maxWidth int) string {
	if font.MeasureString(face, text).Ceil() <= maxWidth {
		return text
	}
	words := strings.Fields(text)
	for n := len(words) - 1; n > 0; n-- {
		candidate := strings.Join(words[:n], " ")
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			return candidate
		}
	}
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// Wrap breaks text into at most maxLines lines no wider than maxWidth. When
// words are left over the last line ends with an ellipsis.
func Wrap(face font.Face, text string, maxWidth, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || maxLines <= 0 {
		return nil
	}
	fits := func(s string) bool { return font.MeasureString(face, s).Ceil() <= maxWidth }

	var lines []string
	line := words[0]
	rest := words[1:]
	for len(rest) > 0 {
		next := line + " " + rest[0]
		if fits(next) {
			line = next
			rest = rest[1:]
			continue
		}
		lines = append(lines, line)
		line = rest[0]
		rest = rest[1:]
		if len(lines) == maxLines {
			rest = append([]string{line}, rest...)
			break
		}
	}
	if len(lines) < maxLines {
		lines = append(lines, line)
		rest = nil
	}
	if len(rest) > 0 {
		lines[len(lines)-1] = ellipsize(face, lines[len(lines)-1], maxWidth)
	}
	return lines
}

func ellipsize(face font.Face, line string, maxWidth int) string {
	const dots = "..."
	for line != "" {
		if font.MeasureString(face, line+dots).Ceil() <= maxWidth {
			return line + dots
		}
		_, size := lastRune(line)
		line = strings.TrimRight(line[:len(line)-size], " ")
	}
	return dots
}

func lastRune(s string) (rune, int) {
	r := []rune(s)
	last := r[len(r)-1]
	return last, len(string(last))
}

func displayError(op, msg string, pt image.Point) error {
	return errors.Newf("%s: %s", op, msg).
		Component("display").
		Category(errors.CategoryDisplay).
		Context("x", pt.X).
		Context("y", pt.Y).
		Build()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
