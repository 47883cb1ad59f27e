package photo

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"
	"github.com/muesli/smartcrop"
)

// Anchor positions the cover crop window inside the source. Implementations
// may only move the window; its size and scale stay as CoverCrop computed.
type Anchor interface {
	Name() string
	Place(ctx context.Context, img image.Image, crop Crop) Crop
}

// Anchor names accepted by NewAnchor.
const (
	AnchorCenter = "center"
	AnchorFace   = "face"
	AnchorSmart  = "smart"
)

// NewAnchor builds an anchor by name. faceModel is the pigo cascade and is
// only needed for AnchorFace; without it the result is a CenterAnchor.
func NewAnchor(name string, faceModel []byte) (Anchor, error) {
	switch name {
	case "", AnchorCenter:
		return CenterAnchor{}, nil
	case AnchorFace:
		if len(faceModel) == 0 {
			return CenterAnchor{}, nil
		}
		return NewFaceAnchor(faceModel)
	case AnchorSmart:
		return &SmartAnchor{resampler: imaging.Lanczos}, nil
	default:
		return nil, fmt.Errorf("unknown crop anchor %q", name)
	}
}

// CenterAnchor leaves the window centered.
type CenterAnchor struct{}

func (CenterAnchor) Name() string { return AnchorCenter }

func (CenterAnchor) Place(_ context.Context, _ image.Image, crop Crop) Crop { return crop }

// FaceAnchor centers the window horizontally on the most prominent face and
// puts the face center at headLine of the window height.
type FaceAnchor struct {
	classifier *pigo.Pigo
	minQuality float32
	iou        float64
	headLine   float64

	// detect finds the face to anchor on; img starts at the origin.
	detect func(img *image.NRGBA) (pigo.Detection, bool)
}

const defaultHeadLine = 0.45

// NewFaceAnchor unpacks a pigo face cascade.
func NewFaceAnchor(model []byte) (*FaceAnchor, error) {
	if err := checkCascade(model); err != nil {
		return nil, fmt.Errorf("unpacking face detection model: %w", err)
	}
	classifier, err := unpackCascade(model)
	if err != nil {
		return nil, fmt.Errorf("unpacking face detection model: %w", err)
	}
	a := &FaceAnchor{classifier: classifier, minQuality: 5.0, iou: 0.2, headLine: defaultHeadLine}
	a.detect = a.runCascade
	return a, nil
}

// checkCascade verifies the pigo header against the model size. Unpack
// trusts the header and indexes past short input.
func checkCascade(model []byte) error {
	if len(model) < 16 {
		return fmt.Errorf("model is %d bytes", len(model))
	}
	depth := binary.LittleEndian.Uint32(model[8:])
	trees := uint64(binary.LittleEndian.Uint32(model[12:]))
	if depth == 0 || depth > 16 {
		return fmt.Errorf("tree depth %d out of range", depth)
	}
	perTree := uint64(8) << depth
	if trees == 0 || trees > uint64(len(model)-16)/perTree {
		return fmt.Errorf("%d trees of depth %d do not fit in %d bytes", trees, depth, len(model))
	}
	return nil
}

func unpackCascade(model []byte) (classifier *pigo.Pigo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt cascade: %v", r)
		}
	}()
	return pigo.NewPigo().Unpack(model)
}

func (a *FaceAnchor) Name() string { return AnchorFace }

func (a *FaceAnchor) Place(ctx context.Context, img image.Image, crop Crop) Crop {
	if a.detect == nil || checkContext(ctx) != nil {
		return crop
	}
	b := img.Bounds()
	face, ok := a.detect(imaging.Clone(img))
	if !ok {
		return crop
	}
	cy := float64(face.Row) - (a.headLine-0.5)*crop.Height
	return crop.CenteredOn(float64(face.Col), cy, b.Dx(), b.Dy())
}

// runCascade returns the largest confident face found by the classifier.
func (a *FaceAnchor) runCascade(img *image.NRGBA) (pigo.Detection, bool) {
	cols, rows := img.Bounds().Dx(), img.Bounds().Dy()
	minDim := cols
	if rows < minDim {
		minDim = rows
	}
	minSize := minDim / 10
	if minSize < 20 {
		minSize = 20
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     minDim,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := a.classifier.RunCascade(params, 0.0)
	dets = a.classifier.ClusterDetections(dets, a.iou)

	var faces []pigo.Detection
	for _, d := range dets {
		if d.Q >= a.minQuality {
			faces = append(faces, d)
		}
	}
	if len(faces) == 0 {
		return pigo.Detection{}, false
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i].Scale > faces[j].Scale })
	return faces[0], true
}

// SmartAnchor centers the window on smartcrop's best crop of the same
// aspect ratio.
type SmartAnchor struct {
	resampler imaging.ResampleFilter
}

func (a *SmartAnchor) Name() string { return AnchorSmart }

func (a *SmartAnchor) Place(ctx context.Context, img image.Image, crop Crop) Crop {
	analyzer := smartcrop.NewAnalyzer(&resizer{resampler: a.resampler})

	// FindBestCrop cannot be interrupted; run it aside so cancellation returns early.
	type cropResult struct {
		rect image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)
	go func() {
		rect, err := analyzer.FindBestCrop(img, int(crop.Width+0.5), int(crop.Height+0.5))
		resultChan <- cropResult{rect: rect, err: err}
	}()

	select {
	case <-ctx.Done():
		return crop
	case res := <-resultChan:
		if res.err != nil || res.rect.Empty() {
			return crop
		}
		b := img.Bounds()
		cx := float64(res.rect.Min.X-b.Min.X) + float64(res.rect.Dx())/2
		cy := float64(res.rect.Min.Y-b.Min.Y) + float64(res.rect.Dy())/2
		return crop.CenteredOn(cx, cy, b.Dx(), b.Dy())
	}
}

// resizer implements the smartcrop.Resizer interface.
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}
