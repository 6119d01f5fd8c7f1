// Package geometry computes the crop and mirror transforms shared by the
// live preview, the still capture, and the frame overlay.
//
// All three consumers must agree on the same source rectangle for a given
// viewport, otherwise the kept photo will not match what the user saw.
// CoverCrop is the single source of truth for that rectangle.
package geometry

import (
	"fmt"
	"image"
)

// Rect is a crop rectangle in source pixel coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Bounds converts the rectangle to an image.Rectangle.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// CoverCrop computes the centered source rectangle that, scaled to
// (viewW x viewH), reproduces a CSS object-fit:cover crop of the source.
//
// If the source is relatively wider than the viewport, its width is
// cropped (cropWidth = srcH * viewportAspect, centered horizontally);
// otherwise its height is cropped (centered vertically). The returned
// rectangle always has the viewport's aspect ratio within rounding and
// never exceeds the source bounds.
func CoverCrop(srcW, srcH, viewW, viewH int) (Rect, error) {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}, fmt.Errorf("cover crop: non-positive source %dx%d", srcW, srcH)
	}
	if viewW <= 0 || viewH <= 0 {
		return Rect{}, fmt.Errorf("cover crop: non-positive viewport %dx%d", viewW, viewH)
	}

	srcAspect := float64(srcW) / float64(srcH)
	viewAspect := float64(viewW) / float64(viewH)

	var r Rect
	if srcAspect > viewAspect {
		// Source is wider than the viewport: crop width, keep full height.
		cropW := int(float64(srcH) * viewAspect)
		if cropW < 1 {
			cropW = 1
		}
		if cropW > srcW {
			cropW = srcW
		}
		r = Rect{
			X:      (srcW - cropW) / 2,
			Y:      0,
			Width:  cropW,
			Height: srcH,
		}
	} else {
		// Source is taller (or equal): crop height, keep full width.
		cropH := int(float64(srcW) / viewAspect)
		if cropH < 1 {
			cropH = 1
		}
		if cropH > srcH {
			cropH = srcH
		}
		r = Rect{
			X:      0,
			Y:      (srcH - cropH) / 2,
			Width:  srcW,
			Height: cropH,
		}
	}
	return r, nil
}

// Mirror returns a horizontally flipped copy of img (flip around the
// vertical axis), matching what a user sees in a mirror.
//
// Mirroring applies to photographic content only. Frame overlays are
// drawn after the mirror and must never pass through this function.
func Mirror(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// Crop extracts the given source rectangle as a standalone image.
// The rectangle is clamped to the image bounds.
func Crop(img image.Image, r Rect) *image.RGBA {
	b := img.Bounds()
	region := r.Bounds().Add(b.Min).Intersect(b)
	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := 0; y < region.Dy(); y++ {
		for x := 0; x < region.Dx(); x++ {
			out.Set(x, y, img.At(region.Min.X+x, region.Min.Y+y))
		}
	}
	return out
}
