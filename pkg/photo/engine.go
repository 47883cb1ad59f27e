package photo

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Engine renders captured frames into ID photos.
type Engine struct {
	anchor Anchor
	kernel *xdraw.Kernel
}

// NewEngine creates an Engine that positions the crop window with anchor.
// A nil anchor means a plain center crop.
func NewEngine(anchor Anchor) *Engine {
	if anchor == nil {
		anchor = CenterAnchor{}
	}
	return &Engine{anchor: anchor, kernel: xdraw.CatmullRom}
}

// Transform renders source to the exact pixel size of spec at dpi.
//
// A nil source is "not ready": Transform returns (nil, nil) and renders
// nothing. On any error no partial image is returned.
func (e *Engine) Transform(ctx context.Context, source *CapturedImage, spec OutputSpec, dpi float64) (*ProcessedImage, error) {
	if source == nil {
		return nil, nil
	}
	outW, outH, err := spec.PixelSize(dpi)
	if err != nil {
		return nil, err
	}
	if source.Width <= 0 || source.Height <= 0 {
		return nil, fmt.Errorf("capture is %dx%d: %w", source.Width, source.Height, ErrInvalidDimensions)
	}
	bg, err := ParseColor(spec.Background)
	if err != nil {
		return nil, err
	}

	img, err := e.DecodeImage(ctx, source.Data)
	if err != nil {
		return nil, err
	}

	out, err := e.Render(ctx, img, outW, outH, bg)
	if err != nil {
		return nil, err
	}

	data, err := e.EncodeImage(ctx, out, imaging.PNG)
	if err != nil {
		return nil, err
	}

	return &ProcessedImage{Image: out, PNG: data, Width: outW, Height: outH, DPI: dpi}, nil
}

// Render draws img onto a new outW x outH canvas filled with bg, scaled to
// cover the canvas and cropped around the anchor.
func (e *Engine) Render(ctx context.Context, img image.Image, outW, outH int, bg color.Color) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || outW <= 0 || outH <= 0 {
		return nil, ErrInvalidDimensions
	}

	// Background goes down first so translucent source pixels blend with it.
	dst := imaging.New(outW, outH, bg)

	crop := CoverCrop(b.Dx(), b.Dy(), outW, outH)
	crop = e.anchor.Place(ctx, img, crop)

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s := crop.Scale
	m := f64.Aff3{
		s, 0, -s * (float64(b.Min.X) + crop.X),
		0, s, -s * (float64(b.Min.Y) + crop.Y),
	}
	e.kernel.Transform(dst, m, img, b, xdraw.Over, nil)

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return dst, nil
}

// DecodeImage decodes a captured frame, applying any EXIF orientation.
func (e *Engine) DecodeImage(ctx context.Context, data []byte) (image.Image, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("decoded capture is empty: %w", ErrInvalidDimensions)
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return img, nil
}

// EncodeImage encodes img in the given format.
func (e *Engine) EncodeImage(ctx context.Context, img image.Image, format imaging.Format) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case imaging.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95))
	case imaging.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
