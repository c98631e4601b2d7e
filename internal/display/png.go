package display

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

// Output receives finished frames.
type Output interface {
	Name() string
	Push(ctx context.Context, frame image.Image) error
	Close() error
}

// EncodePNG writes frame as PNG with best compression.
func EncodePNG(w io.Writer, frame image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, frame); err != nil {
		return errors.New(err).
			Component("display").
			Category(errors.CategoryDisplay).
			Context("operation", "encode_png").
			Build()
	}
	return nil
}

// PNGOutput writes each frame to a file, replacing it atomically.
type PNGOutput struct {
	path string
	log  logger.Logger
}

func NewPNGOutput(path string) *PNGOutput {
	return &PNGOutput{path: path, log: logger.Global().Module("display").Module("png")}
}

func (p *PNGOutput) Name() string { return "png" }

func (p *PNGOutput) Push(ctx context.Context, frame image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, frame); err != nil {
		return err
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fileError(err, p.path, "mkdir")
		}
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fileError(err, tmp, "write")
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return fileError(err, p.path, "rename")
	}
	p.log.Info("frame written", logger.String("path", p.path), logger.Int("bytes", buf.Len()))
	return nil
}

func (p *PNGOutput) Close() error { return nil }

func fileError(err error, path, op string) error {
	return errors.New(err).
		Component("display").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Context("operation", op).
		Build()
}
