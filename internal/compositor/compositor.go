// Package compositor renders captured stills: it applies the mirror,
// cover-crop, exposure and frame-overlay steps that turn a raw camera
// grab into the photo the user keeps, and assembles kept photos into a
// printable photostrip.
//
// The overlay uses the same cover-fit rectangle as the live preview and
// the still capture (internal/geometry), so the three layers agree
// pixel-for-pixel on the viewport size.
package compositor

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/roach88/snapstrip/internal/exposure"
	"github.com/roach88/snapstrip/internal/geometry"
)

// ErrFrameLoad reports that a frame overlay image could not be read or
// decoded. It is recoverable: compositing proceeds without the frame.
var ErrFrameLoad = errors.New("frame image load failed")

// Options controls how a single still is rendered.
type Options struct {
	// ViewportWidth and ViewportHeight are the display viewport the
	// user saw during capture. The output image has these dimensions.
	ViewportWidth  int
	ViewportHeight int

	// Exposure is the exposure value in stops, applied to the
	// photographic layer only.
	Exposure float64

	// Mirror flips the photographic layer horizontally. On for live
	// camera grabs, off for uploaded files.
	Mirror bool
}

func (o Options) validate() error {
	if o.ViewportWidth <= 0 || o.ViewportHeight <= 0 {
		return fmt.Errorf("compositor: non-positive viewport %dx%d", o.ViewportWidth, o.ViewportHeight)
	}
	return nil
}

// ApplyFrame renders one captured still.
//
// The photo is mirrored (if requested), cover-cropped to the viewport
// aspect, scaled to the viewport size and exposure-adjusted. The frame,
// which may have any aspect ratio, is cover-fitted against the same
// viewport and drawn on top at full opacity with no exposure filter.
//
// A nil frame produces an unframed photo. Frame geometry failures never
// block the photo; callers that need the degraded-frame signal should
// load the frame via LoadFrame and treat its error as the warning.
func ApplyFrame(photo image.Image, frame image.Image, opts Options) (*image.RGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, errors.New("compositor: nil photo")
	}

	if opts.Mirror {
		photo = geometry.Mirror(photo)
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.ViewportWidth, opts.ViewportHeight))
	if err := drawCover(out, photo); err != nil {
		return nil, fmt.Errorf("photo layer: %w", err)
	}

	if ev := exposure.Clamp(opts.Exposure); ev != 0 {
		adjusted := exposure.Apply(out, ev).(*image.RGBA)
		out = adjusted
	}

	if frame != nil {
		// Frame layer: same cover geometry, drawn over, no filter.
		if err := drawCoverOver(out, frame); err != nil {
			return nil, fmt.Errorf("frame layer: %w", err)
		}
	}

	return out, nil
}

// LoadFrame reads and decodes a frame overlay image from disk.
// Errors wrap ErrFrameLoad so callers can degrade to an unframed photo.
func LoadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameLoad, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameLoad, path, err)
	}
	return img, nil
}

// drawCover scales the cover-crop of src onto the whole of dst,
// replacing its contents.
func drawCover(dst *image.RGBA, src image.Image) error {
	return drawCoverOp(dst, src, xdraw.Src)
}

// drawCoverOver is drawCover with alpha compositing, used for the
// frame layer so transparent frame regions keep the photo visible.
func drawCoverOver(dst *image.RGBA, src image.Image) error {
	return drawCoverOp(dst, src, xdraw.Over)
}

func drawCoverOp(dst *image.RGBA, src image.Image, op xdraw.Op) error {
	b := src.Bounds()
	viewW := dst.Bounds().Dx()
	viewH := dst.Bounds().Dy()

	crop, err := geometry.CoverCrop(b.Dx(), b.Dy(), viewW, viewH)
	if err != nil {
		return err
	}

	sr := crop.Bounds().Add(b.Min)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, op, nil)
	return nil
}
