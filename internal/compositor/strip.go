package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// A6 print target at 150 DPI, portrait.
const (
	DefaultStripWidth  = 1240
	DefaultStripHeight = 1748
	DefaultBorderWidth = 10
)

// StripOptions controls photostrip assembly.
type StripOptions struct {
	Width       int // output width, default DefaultStripWidth
	Height      int // output height, default DefaultStripHeight
	BorderWidth int // black border between and around photos
}

func (o StripOptions) withDefaults() StripOptions {
	if o.Width <= 0 {
		o.Width = DefaultStripWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultStripHeight
	}
	if o.BorderWidth <= 0 {
		o.BorderWidth = DefaultBorderWidth
	}
	return o
}

// stripLayout returns the grid for a photo count: 4 photos stack into a
// single vertical column, 9 form a 3x3 grid, anything else falls back
// to one column.
func stripLayout(n int) (cols, rows int) {
	switch n {
	case 4:
		return 1, 4
	case 9:
		return 3, 3
	default:
		return 1, n
	}
}

// ComposeStrip assembles already-framed photos into a single photostrip
// image on a black canvas with uniform borders. Photos are placed in
// capture order, row-major, each cover-fitted into its cell.
func ComposeStrip(photos []image.Image, opts StripOptions) (*image.RGBA, error) {
	if len(photos) == 0 {
		return nil, errors.New("compose strip: no photos")
	}
	for i, p := range photos {
		if p == nil {
			return nil, fmt.Errorf("compose strip: photo %d is nil", i)
		}
	}

	opts = opts.withDefaults()
	cols, rows := stripLayout(len(photos))

	availW := opts.Width - opts.BorderWidth*(cols+1)
	availH := opts.Height - opts.BorderWidth*(rows+1)
	if availW <= 0 || availH <= 0 {
		return nil, fmt.Errorf("compose strip: borders leave no room in %dx%d", opts.Width, opts.Height)
	}
	cellW := availW / cols
	cellH := availH / rows

	// Black canvas doubles as the outer border.
	strip := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(strip, strip.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for i, photo := range photos {
		row := i / cols
		col := i % cols
		x := opts.BorderWidth + col*(cellW+opts.BorderWidth)
		y := opts.BorderWidth + row*(cellH+opts.BorderWidth)

		cell := image.NewRGBA(image.Rect(0, 0, cellW, cellH))
		if err := drawCover(cell, photo); err != nil {
			return nil, fmt.Errorf("compose strip: photo %d: %w", i, err)
		}
		xdraw.Copy(strip, image.Pt(x, y), cell, cell.Bounds(), xdraw.Src, nil)
	}

	return strip, nil
}
