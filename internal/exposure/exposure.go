// Package exposure maps a user-chosen exposure value to the brightness
// multiplier applied to the photographic layer at capture time.
//
// Exposure is expressed in stops: the multiplier is 2^ev, so -2.0 is a
// quarter of the original brightness and +2.0 is four times it. The
// multiplier is applied to photo pixels only; frame overlays are drawn
// afterwards with no filter so their own color tone never shifts.
package exposure

import (
	"image"
	"math"
)

const (
	// Min and Max bound the exposure value in stops.
	Min = -2.0
	Max = 2.0

	// StepSize is the UI granularity (tenths of a stop, 41 steps total).
	StepSize = 0.1
)

// Clamp bounds ev to [Min, Max].
func Clamp(ev float64) float64 {
	return math.Max(Min, math.Min(Max, ev))
}

// Factor returns the brightness multiplier 2^ev for a clamped exposure
// value. Factor(0) == 1, Factor(-x) == 1/Factor(x).
func Factor(ev float64) float64 {
	return math.Pow(2, Clamp(ev))
}

// Steps enumerates the discrete exposure values the UI exposes, from
// Min to Max in tenths of a stop.
func Steps() []float64 {
	n := int(math.Round((Max-Min)/StepSize)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		// Round to one decimal to avoid float drift across the range.
		out = append(out, math.Round((Min+float64(i)*StepSize)*10)/10)
	}
	return out
}

// Apply returns a copy of img with each RGB channel scaled by
// Factor(ev), saturating at full white. Alpha is left untouched.
//
// A zero exposure returns the input unchanged, so the common path
// allocates nothing.
func Apply(img image.Image, ev float64) image.Image {
	ev = Clamp(ev)
	if ev == 0 {
		return img
	}

	factor := Factor(ev)
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := out.PixOffset(x, y)
			out.Pix[i+0] = scale8(r, factor)
			out.Pix[i+1] = scale8(g, factor)
			out.Pix[i+2] = scale8(bl, factor)
			out.Pix[i+3] = uint8(a >> 8)
		}
	}
	return out
}

// scale8 scales a 16-bit channel sample down to 8 bits with saturation.
func scale8(c uint32, factor float64) uint8 {
	v := float64(c>>8) * factor
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
