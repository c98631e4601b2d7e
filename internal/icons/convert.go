package icons

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/tphakala/epaper-weather/internal/errors"
)

// enhancement is the contrast and brightness boost applied before
// dithering. Thin strokes need more contrast to survive the 1-bit
// conversion.
type enhancement struct {
	contrast   float64
	brightness float64
}

var (
	classPressure = enhancement{contrast: 2.5, brightness: 1.0}
	classCalendar = enhancement{contrast: 2.2, brightness: 1.1}
	classWind     = enhancement{contrast: 2.4, brightness: 1.1}
	classLarge    = enhancement{contrast: 2.2, brightness: 1.1}
	classMedium   = enhancement{contrast: 2.3, brightness: 1.1}
	classSmall    = enhancement{contrast: 2.6, brightness: 1.2}
)

func classFor(size image.Point) enhancement {
	switch n := max(size.X, size.Y); {
	case n >= 80:
		return classLarge
	case n >= 48:
		return classMedium
	default:
		return classSmall
	}
}

// bilevel is the palette Floyd-Steinberg diffuses into.
var bilevel = color.Palette{color.Black, color.White}

func convertFile(path string, size image.Point, class enhancement) (*image1bit.VerticalLSB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("icons").
			Category(errors.CategoryNotFound).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	src, err := png.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("icons").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	if size.X <= 0 || size.Y <= 0 {
		size = src.Bounds().Size()
	}
	return toMonochrome(src, size, class), nil
}

// toMonochrome scales src to size, flattens transparency onto white, boosts
// contrast and dithers the result to one bit per pixel.
func toMonochrome(src image.Image, size image.Point, class enhancement) *image1bit.VerticalLSB {
	rect := image.Rectangle{Max: size}

	// transparent pixels become paper white
	flat := image.NewRGBA(rect)
	draw.Draw(flat, rect, image.White, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(flat, rect, src, src.Bounds(), xdraw.Over, nil)

	gray := image.NewGray(rect)
	draw.Draw(gray, rect, flat, image.Point{}, draw.Src)
	enhance(gray, class)

	pal := image.NewPaletted(rect, bilevel)
	xdraw.FloydSteinberg.Draw(pal, rect, gray, image.Point{})

	out := image1bit.NewVerticalLSB(rect)
	draw.Draw(out, rect, pal, image.Point{}, draw.Src)
	return out
}

// enhance stretches contrast around the mean luminance, then scales
// brightness.
func enhance(img *image.Gray, class enhancement) {
	if len(img.Pix) == 0 {
		return
	}
	var sum int
	for _, p := range img.Pix {
		sum += int(p)
	}
	mean := float64(sum)/float64(len(img.Pix)) + 0.5
	mean = float64(int(mean))

	for i, p := range img.Pix {
		v := mean + class.contrast*(float64(p)-mean)
		v *= class.brightness
		img.Pix[i] = clamp8(v)
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
