package photo

import "math"

// pixelEpsilon absorbs float noise such as 101.6/25.4 landing just under 4.
const pixelEpsilon = 1e-9

// MMToPixels converts millimetres to whole pixels at dpi, truncating toward
// zero: 51 mm at 96 dpi is 192.76 px and yields 192. Every size in this
// package goes through here so output dimensions are consistent.
func MMToPixels(mm, dpi float64) int {
	px := mm / MMPerInch * dpi
	if px <= 0 {
		return 0
	}
	return int(math.Floor(px + pixelEpsilon))
}

// Crop is the window of the source, in source pixels relative to its bounds,
// that gets scaled onto the output.
type Crop struct {
	X, Y          float64
	Width, Height float64
	Scale         float64 // output pixels per source pixel
}

// CoverCrop returns the centered window that, scaled uniformly, exactly
// covers an outW x outH output. Excess on the longer axis is split evenly
// between both sides.
func CoverCrop(srcW, srcH, outW, outH int) Crop {
	scale := math.Max(float64(outW)/float64(srcW), float64(outH)/float64(srcH))
	cw := float64(outW) / scale
	ch := float64(outH) / scale
	return Crop{
		X:      (float64(srcW) - cw) / 2,
		Y:      (float64(srcH) - ch) / 2,
		Width:  cw,
		Height: ch,
		Scale:  scale,
	}
}

// CenteredOn moves the window so its center sits at (cx, cy), kept inside a
// srcW x srcH source.
func (c Crop) CenteredOn(cx, cy float64, srcW, srcH int) Crop {
	c.X = clamp(cx-c.Width/2, 0, float64(srcW)-c.Width)
	c.Y = clamp(cy-c.Height/2, 0, float64(srcH)-c.Height)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		// Window is wider than the source on this axis; keep it centered.
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
