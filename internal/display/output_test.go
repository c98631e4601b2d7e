package display

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/tphakala/epaper-weather/internal/errors"
)

func TestPNGOutput_Push(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "frame.png")
	out := NewPNGOutput(path)
	assert.Equal(t, "png", out.Name())

	c := NewCanvas(40, 20)
	c.FillRect(image.Rect(0, 0, 10, 10))
	require.NoError(t, out.Push(context.Background(), c.Image()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
	r, _, _, _ := img.At(5, 5).RGBA()
	assert.Zero(t, r)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, out.Close())
}

func TestPNGOutput_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "frame.png")

	err := NewPNGOutput(path).Push(ctx, NewCanvas(4, 4).Image())
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

type fakePanel struct {
	calls   []string
	drawn   image.Image
	drawErr error
}

func (p *fakePanel) Init() error { p.calls = append(p.calls, "init"); return nil }
func (p *fakePanel) Clear(c color.Color) error { p.calls = append(p.calls, "clear"); return nil }
func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 122, 250) }
func (p *fakePanel) Sleep() error { p.calls = append(p.calls, "sleep"); return nil }
func (p *fakePanel) Halt() error { p.calls = append(p.calls, "halt"); return nil }

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.calls = append(p.calls, "draw")
	p.drawn = src
	return p.drawErr
}

// landscapeFrame is 250x122 with its ten leftmost columns black.
func landscapeFrame() *image.Gray {
	c := NewCanvas(250, 122)
	c.FillRect(image.Rect(0, 0, 10, 122))
	return c.Image()
}

func TestEPaperOutput_Push(t *testing.T) {
	panel := &fakePanel{}
	out, err := NewEPaperOutput(panel)
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "clear"}, panel.calls)

	require.NoError(t, out.Push(context.Background(), landscapeFrame()))
	assert.Equal(t, []string{"init", "clear", "init", "draw", "sleep"}, panel.calls)

	bits, ok := panel.drawn.(*image1bit.VerticalLSB)
	require.True(t, ok)
	assert.Equal(t, panel.Bounds(), bits.Bounds())
	// the left edge of the landscape frame is the top of the portrait panel
	assert.Equal(t, image1bit.Off, bits.BitAt(60, 4))
	assert.Equal(t, image1bit.On, bits.BitAt(60, 120))

	require.NoError(t, out.Close())
	assert.Equal(t, "halt", panel.calls[len(panel.calls)-1])
}

func TestEPaperOutput_DrawError(t *testing.T) {
	panel := &fakePanel{drawErr: errors.NewStd("spi timeout")}
	out, err := NewEPaperOutput(panel)
	require.NoError(t, err)

	err = out.Push(context.Background(), landscapeFrame())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDisplay))
	assert.NotContains(t, panel.calls[2:], "sleep")
}

func TestFit_ScalesToPanel(t *testing.T) {
	c := NewCanvas(800, 480)
	c.FillRect(image.Rect(0, 0, 800, 240))

	out := Fit(c.Image(), image.Rect(0, 0, 250, 122))
	assert.Equal(t, image.Rect(0, 0, 250, 122), out.Bounds())
	assert.Equal(t, image1bit.Off, out.BitAt(125, 20))
	assert.Equal(t, image1bit.On, out.BitAt(125, 100))
}
