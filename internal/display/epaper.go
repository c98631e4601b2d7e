package display

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

// Panel is the subset of an e-paper driver the output needs.
type Panel interface {
	Init() error
	Clear(c color.Color) error
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
	Sleep() error
	Halt() error
}

// EPaperOutput pushes frames to a Waveshare panel. The panel sleeps between
// pushes.
type EPaperOutput struct {
	mu    sync.Mutex
	panel Panel
	port  spi.PortCloser
	log   logger.Logger
}

// OpenEPaper initializes the host drivers, opens the SPI port (empty for the
// first one) and wakes the 2.13" V4 HAT.
func OpenEPaper(spiPort string) (*EPaperOutput, error) {
	if _, err := host.Init(); err != nil {
		return nil, panelError(err, "host_init")
	}
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, panelError(err, "spi_open")
	}
	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		_ = port.Close()
		return nil, panelError(err, "new_hat")
	}
	out, err := NewEPaperOutput(dev)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	out.port = port
	return out, nil
}

// NewEPaperOutput wraps an already opened panel.
func NewEPaperOutput(p Panel) (*EPaperOutput, error) {
	if err := p.Init(); err != nil {
		return nil, panelError(err, "init")
	}
	if err := p.Clear(color.White); err != nil {
		return nil, panelError(err, "clear")
	}
	return &EPaperOutput{panel: p, log: logger.Global().Module("display").Module("epaper")}, nil
}

func (e *EPaperOutput) Name() string { return "epaper" }

// Push fits frame to the panel and performs a full refresh.
func (e *EPaperOutput) Push(ctx context.Context, frame image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	if err := e.panel.Init(); err != nil {
		return panelError(err, "wake")
	}
	bounds := e.panel.Bounds()
	img := Fit(frame, bounds)
	if err := e.panel.Draw(bounds, img, image.Point{}); err != nil {
		return panelError(err, "draw")
	}
	if err := e.panel.Sleep(); err != nil {
		e.log.Warn("panel did not enter sleep", logger.Error(err))
	}
	e.log.Info("frame pushed to panel",
		logger.Int("width", bounds.Dx()),
		logger.Int("height", bounds.Dy()),
		logger.Duration("duration", time.Since(start)))
	return nil
}

func (e *EPaperOutput) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	if err := e.panel.Halt(); err != nil {
		errs = append(errs, panelError(err, "halt"))
	}
	if e.port != nil {
		if err := e.port.Close(); err != nil {
			errs = append(errs, panelError(err, "spi_close"))
		}
		e.port = nil
	}
	return errors.Join(errs...)
}

// Fit rotates a landscape frame for a portrait panel (and the reverse),
// scales it to bounds and thresholds it to one bit per pixel.
func Fit(frame image.Image, bounds image.Rectangle) *image1bit.VerticalLSB {
	src := frame
	fb := frame.Bounds()
	if landscape(fb) != landscape(bounds) {
		src = rotate(frame)
	}
	gray := image.NewGray(bounds)
	xdraw.ApproxBiLinear.Scale(gray, bounds, src, src.Bounds(), xdraw.Src, nil)

	out := image1bit.NewVerticalLSB(bounds)
	draw.Draw(out, bounds, gray, bounds.Min, draw.Src)
	return out
}

func landscape(r image.Rectangle) bool { return r.Dx() > r.Dy() }

// rotate turns src a quarter clockwise.
func rotate(src image.Image) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for y := range w {
		for x := range h {
			c := color.GrayModel.Convert(src.At(b.Min.X+y, b.Min.Y+h-1-x)).(color.Gray)
			dst.SetGray(x, y, c)
		}
	}
	return dst
}

func panelError(err error, op string) error {
	return errors.New(err).
		Component("display").
		Category(errors.CategoryDisplay).
		Context("operation", op).
		Context("panel", "waveshare2in13v4").
		Build()
}
