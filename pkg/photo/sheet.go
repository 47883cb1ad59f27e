package photo

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"
)

var guideColor = color.NRGBA{R: 160, G: 160, B: 160, A: 255}

// SheetSpec is the paper that prints are tiled onto.
type SheetSpec struct {
	WidthMM  float64 `json:"widthMm"`
	HeightMM float64 `json:"heightMm"`
	DPI      float64 `json:"dpi"`
	MarginMM float64 `json:"marginMm"`
	GapMM    float64 `json:"gapMm"`

	// CutGuides outlines every photo in grey, one pixel outside it. Only
	// drawn when the gap is at least two pixels wide.
	CutGuides bool `json:"cutGuides"`
}

// SheetLayout is the pixel grid computed for one SheetSpec and photo size.
type SheetLayout struct {
	SheetWidth, SheetHeight int
	PhotoWidth, PhotoHeight int
	Columns, Rows           int
	Gap                     int
	OriginX, OriginY        int
	PerSheet                int
	Sheets                  int
	Quantity                int
}

// Slot returns the top-left corner of the i-th photo on a sheet.
func (l SheetLayout) Slot(i int) image.Point {
	col, row := i%l.Columns, i/l.Columns
	return image.Pt(
		l.OriginX+col*(l.PhotoWidth+l.Gap),
		l.OriginY+row*(l.PhotoHeight+l.Gap),
	)
}

// CopiesOn returns how many photos go on sheet index n.
func (l SheetLayout) CopiesOn(n int) int {
	if n < l.Sheets-1 {
		return l.PerSheet
	}
	return l.Quantity - (l.Sheets-1)*l.PerSheet
}

// PlanSheets lays out quantity copies of spec on as many sheets as needed.
// The grid is centered inside the margins.
func PlanSheets(spec OutputSpec, quantity int, sheet SheetSpec) (SheetLayout, error) {
	if quantity < 1 {
		return SheetLayout{}, ErrInvalidQuantity
	}
	pw, ph, err := spec.PixelSize(sheet.DPI)
	if err != nil {
		return SheetLayout{}, err
	}
	sw, sh, err := OutputSpec{WidthMM: sheet.WidthMM, HeightMM: sheet.HeightMM}.PixelSize(sheet.DPI)
	if err != nil {
		return SheetLayout{}, fmt.Errorf("sheet: %w", err)
	}
	margin := MMToPixels(sheet.MarginMM, sheet.DPI)
	gap := MMToPixels(sheet.GapMM, sheet.DPI)

	cols := (sw - 2*margin + gap) / (pw + gap)
	rows := (sh - 2*margin + gap) / (ph + gap)
	if cols < 1 || rows < 1 {
		return SheetLayout{}, fmt.Errorf("%dx%d photo does not fit on a %dx%d sheet: %w", pw, ph, sw, sh, ErrInvalidDimensions)
	}

	perSheet := cols * rows
	gridW := cols*pw + (cols-1)*gap
	gridH := rows*ph + (rows-1)*gap
	return SheetLayout{
		SheetWidth:  sw,
		SheetHeight: sh,
		PhotoWidth:  pw,
		PhotoHeight: ph,
		Columns:     cols,
		Rows:        rows,
		Gap:         gap,
		OriginX:     (sw - gridW) / 2,
		OriginY:     (sh - gridH) / 2,
		PerSheet:    perSheet,
		Sheets:      (quantity + perSheet - 1) / perSheet,
		Quantity:    quantity,
	}, nil
}

// RenderSheets renders source at the sheet resolution and tiles quantity
// copies onto white sheets.
func (e *Engine) RenderSheets(ctx context.Context, source *CapturedImage, spec OutputSpec, quantity int, sheet SheetSpec) ([]*image.NRGBA, SheetLayout, error) {
	if source == nil {
		return nil, SheetLayout{}, nil
	}
	layout, err := PlanSheets(spec, quantity, sheet)
	if err != nil {
		return nil, SheetLayout{}, err
	}

	photo, err := e.Transform(ctx, source, spec, sheet.DPI)
	if err != nil {
		return nil, SheetLayout{}, err
	}

	sheets := make([]*image.NRGBA, layout.Sheets)
	g, ctx := errgroup.WithContext(ctx)
	for n := range sheets {
		n := n
		g.Go(func() error {
			var canvas *image.NRGBA
			if sheet.CutGuides && layout.Gap >= 2 {
				canvas = cutGuides(layout, layout.CopiesOn(n))
			} else {
				canvas = imaging.New(layout.SheetWidth, layout.SheetHeight, color.White)
			}
			for i := 0; i < layout.CopiesOn(n); i++ {
				if err := checkContext(ctx); err != nil {
					return err
				}
				canvas = imaging.Paste(canvas, photo.Image, layout.Slot(i))
			}
			sheets[n] = canvas
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, SheetLayout{}, err
	}
	return sheets, layout, nil
}

// cutGuides returns a white sheet with an outline around each of the first
// copies slots.
func cutGuides(layout SheetLayout, copies int) *image.NRGBA {
	dc := gg.NewContext(layout.SheetWidth, layout.SheetHeight)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(guideColor)
	dc.SetLineWidth(1)
	for i := 0; i < copies; i++ {
		p := layout.Slot(i)
		dc.DrawRectangle(float64(p.X)-0.5, float64(p.Y)-0.5, float64(layout.PhotoWidth)+1, float64(layout.PhotoHeight)+1)
	}
	dc.Stroke()
	return imaging.Clone(dc.Image())
}
