package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverCrop_WideSource(t *testing.T) {
	// 1280x720 source shown in a 600x800 portrait viewport:
	// source is relatively wider, so width is cropped.
	r, err := CoverCrop(1280, 720, 600, 800)
	require.NoError(t, err)

	assert.Equal(t, 720, r.Height, "full height kept")
	assert.Equal(t, 540, r.Width, "width = 720 * (600/800)")
	assert.Equal(t, (1280-540)/2, r.X, "centered horizontally")
	assert.Equal(t, 0, r.Y)
}

func TestCoverCrop_TallSource(t *testing.T) {
	// 720x1280 source in a 800x600 landscape viewport: height is cropped.
	r, err := CoverCrop(720, 1280, 800, 600)
	require.NoError(t, err)

	assert.Equal(t, 720, r.Width, "full width kept")
	assert.Equal(t, 540, r.Height, "height = 720 / (800/600)")
	assert.Equal(t, 0, r.X)
	assert.Equal(t, (1280-540)/2, r.Y, "centered vertically")
}

func TestCoverCrop_MatchingAspect(t *testing.T) {
	r, err := CoverCrop(1280, 720, 640, 360)
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 1280, Height: 720}, r,
		"matching aspect ratios keep the full source")
}

func TestCoverCrop_AspectRatioPreserved(t *testing.T) {
	// Property from the capture pipeline: the crop rectangle's aspect
	// ratio equals the viewport's within rounding, for any positive dims.
	cases := []struct {
		srcW, srcH, viewW, viewH int
	}{
		{1280, 720, 600, 800},
		{1920, 1080, 1080, 1920},
		{640, 480, 480, 640},
		{800, 600, 800, 600},
		{3, 997, 1024, 768},
		{997, 3, 768, 1024},
		{1, 1, 1240, 1748},
	}
	for _, tc := range cases {
		r, err := CoverCrop(tc.srcW, tc.srcH, tc.viewW, tc.viewH)
		require.NoError(t, err)

		require.Greater(t, r.Width, 0)
		require.Greater(t, r.Height, 0)
		assert.LessOrEqual(t, r.X+r.Width, tc.srcW, "crop inside source")
		assert.LessOrEqual(t, r.Y+r.Height, tc.srcH, "crop inside source")

		got := float64(r.Width) / float64(r.Height)
		want := float64(tc.viewW) / float64(tc.viewH)
		// One pixel of rounding on the cropped dimension.
		tol := math.Max(want/float64(r.Height), want/float64(r.Width)) + 1.0/float64(r.Height)
		assert.InDelta(t, want, got, tol,
			"crop aspect for %dx%d in %dx%d", tc.srcW, tc.srcH, tc.viewW, tc.viewH)
	}
}

func TestCoverCrop_InvalidDimensions(t *testing.T) {
	_, err := CoverCrop(0, 720, 600, 800)
	assert.Error(t, err, "zero source width")

	_, err = CoverCrop(1280, 720, 600, 0)
	assert.Error(t, err, "zero viewport height")

	_, err = CoverCrop(-1, 720, 600, 800)
	assert.Error(t, err, "negative source width")
}

func TestMirror_FlipsHorizontally(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	img.Set(0, 0, red)
	img.Set(2, 0, blue)

	out := Mirror(img)

	assert.Equal(t, red, out.RGBAAt(2, 0), "left pixel moves right")
	assert.Equal(t, blue, out.RGBAAt(0, 0), "right pixel moves left")
}

func TestMirror_Involution(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), A: 255})
		}
	}

	twice := Mirror(Mirror(img))
	assert.Equal(t, img.Pix, twice.Pix, "mirroring twice restores the original")
}

func TestCrop_ExtractsRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	mark := color.RGBA{G: 255, A: 255}
	img.Set(5, 5, mark)

	out := Crop(img, Rect{X: 4, Y: 4, Width: 3, Height: 3})

	require.Equal(t, 3, out.Bounds().Dx())
	require.Equal(t, 3, out.Bounds().Dy())
	assert.Equal(t, mark, out.RGBAAt(1, 1))
}

func TestCrop_ClampsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	out := Crop(img, Rect{X: 2, Y: 2, Width: 10, Height: 10})
	assert.Equal(t, 2, out.Bounds().Dx())
	assert.Equal(t, 2, out.Bounds().Dy())
}
