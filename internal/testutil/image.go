// Package testutil provides deterministic clocks and image builders for
// tests across the capture pipeline.
package testutil

import (
	"image"
	"image/color"
)

// SolidImage returns a w x h image filled with a single color.
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// GradientImage returns a w x h image whose red channel increases left
// to right and green channel top to bottom. Useful for asserting crop
// and mirror geometry on recognizable content.
func GradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				A: 255,
			})
		}
	}
	return img
}

// BorderFrame returns a w x h frame overlay: an opaque border of the
// given thickness around a fully transparent center, mimicking a real
// photobooth frame PNG.
func BorderFrame(w, h, thickness int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			onBorder := x < thickness || y < thickness || x >= w-thickness || y >= h-thickness
			if onBorder {
				img.Set(x, y, c)
			}
		}
	}
	return img
}
