package icons

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Fallback draws a white bitmap with a one-pixel border and text centered
// in it. Zero sizes become 16x16.
func Fallback(size image.Point, text string) *image1bit.VerticalLSB {
	if size.X <= 0 || size.Y <= 0 {
		size = Square(16)
	}
	rect := image.Rectangle{Max: size}
	img := image1bit.NewVerticalLSB(rect)
	draw.Draw(img, rect, &image.Uniform{C: image1bit.On}, image.Point{}, draw.Src)

	for x := 0; x < size.X; x++ {
		img.SetBit(x, 0, image1bit.Off)
		img.SetBit(x, size.Y-1, image1bit.Off)
	}
	for y := 0; y < size.Y; y++ {
		img.SetBit(0, y, image1bit.Off)
		img.SetBit(size.X-1, y, image1bit.Off)
	}

	if text == "" {
		return img
	}
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	h := (m.Ascent + m.Descent).Ceil()
	x := (size.X - w) / 2
	y := (size.Y-h)/2 + m.Ascent.Ceil()

	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.Off},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
	return img
}
