// Package photo turns a captured frame into a print-ready ID photo: the frame is
// scaled to cover the target size, center-cropped and composited over a
// background colour at a fixed resolution.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG for DecodeConfig
	_ "image/png"  // Register PNG for DecodeConfig
)

// MMPerInch is the number of millimetres in an inch.
const MMPerInch = 25.4

// MaxCapturePixels bounds the decoded size of a capture. A frame's header is
// checked against it before any pixels are allocated.
const MaxCapturePixels = 50_000_000

var (
	// ErrInvalidDimensions is returned for a non-positive target size, an
	// empty source, or a target that rounds to zero pixels.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrInvalidQuantity is returned when fewer than one print is requested.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// DecodeError means the captured bytes could not be decoded as an image.
// The capture should be retaken; decoding the same bytes again will not help.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding capture: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CapturedImage is one encoded still frame. It is never mutated; a new capture
// replaces it.
type CapturedImage struct {
	Data   []byte
	Format string
	Width  int // native pixel width, before any EXIF orientation
	Height int
}

// NewCapturedImage reads the header of an encoded frame (PNG or JPEG) and
// returns it as a CapturedImage.
func NewCapturedImage(data []byte) (*CapturedImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("capture is %dx%d: %w", cfg.Width, cfg.Height, ErrInvalidDimensions)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxCapturePixels {
		return nil, fmt.Errorf("capture is %dx%d, over %d pixels: %w", cfg.Width, cfg.Height, MaxCapturePixels, ErrInvalidDimensions)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &CapturedImage{Data: buf, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// OutputSpec is the physical size of the finished photo and its background.
type OutputSpec struct {
	WidthMM    float64 `json:"widthMm"`
	HeightMM   float64 `json:"heightMm"`
	Background string  `json:"background"`
}

// Validate checks both axes are positive.
func (s OutputSpec) Validate() error {
	if s.WidthMM <= 0 || s.HeightMM <= 0 {
		return fmt.Errorf("output %gx%g mm: %w", s.WidthMM, s.HeightMM, ErrInvalidDimensions)
	}
	return nil
}

// PixelSize converts the spec to pixels at dpi. See MMToPixels for rounding.
func (s OutputSpec) PixelSize(dpi float64) (int, int, error) {
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}
	if dpi <= 0 {
		return 0, 0, fmt.Errorf("resolution %g dpi: %w", dpi, ErrInvalidDimensions)
	}
	w, h := MMToPixels(s.WidthMM, dpi), MMToPixels(s.HeightMM, dpi)
	if w < 1 || h < 1 {
		return 0, 0, fmt.Errorf("output %gx%g mm at %g dpi is under one pixel: %w", s.WidthMM, s.HeightMM, dpi, ErrInvalidDimensions)
	}
	return w, h, nil
}

// ProcessedImage is the latest rendering for a (capture, spec) pair. It can be
// thrown away and regenerated at any time.
type ProcessedImage struct {
	Image  *image.NRGBA
	PNG    []byte
	Width  int
	Height int
	DPI    float64
}
