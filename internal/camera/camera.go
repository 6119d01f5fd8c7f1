// Package camera owns the only long-lived external resource in the
// system: the capture device. It provides frame sources (device,
// uploaded file, static test double) and an asynchronous acquirer
// whose pending/ready/denied states drive the capture UI's degraded
// fallback.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
)

// Sentinel errors for acquisition failures. Both are recoverable: the
// session degrades to the file-upload fallback, never aborts.
var (
	// ErrPermissionDenied reports that the user or OS refused camera access.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceUnavailable reports that no usable capture device exists.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
)

// Constraints describes the requested capture stream. Matches the
// front-facing 1280x720 request the capture page makes.
type Constraints struct {
	Device string // capture device, e.g. /dev/video0; empty selects the default
	Width  int
	Height int
}

// DefaultConstraints returns the standard capture request.
func DefaultConstraints() Constraints {
	return Constraints{Width: 1280, Height: 720}
}

// Source produces still frames. Implementations: DeviceSource (live
// camera), FileSource (upload fallback), StaticSource (tests).
//
// Close releases the underlying resource and is safe to call more than
// once; Grab after Close returns an error.
type Source interface {
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// FileSource serves a user-selected image file, decoded once at
// construction. It backs the upload fallback when the camera is denied.
type FileSource struct {
	mu     sync.Mutex
	img    image.Image
	closed bool
}

// OpenFile decodes the image at path into a FileSource.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode upload %s: %w", path, err)
	}
	return &FileSource{img: img}, nil
}

// Grab returns the decoded image. Every call returns the same frame.
func (s *FileSource) Grab(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("file source closed")
	}
	return s.img, nil
}

// Close releases the decoded image. Idempotent.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.img = nil
	return nil
}

// StaticSource serves a fixed in-memory frame. Test double, also used
// for blank placeholder slots.
type StaticSource struct {
	mu     sync.Mutex
	img    image.Image
	err    error
	closed bool
	grabs  int
}

// NewStaticSource creates a source that always returns img.
func NewStaticSource(img image.Image) *StaticSource {
	return &StaticSource{img: img}
}

// NewFailingSource creates a source whose Grab always fails with err.
func NewFailingSource(err error) *StaticSource {
	return &StaticSource{err: err}
}

func (s *StaticSource) Grab(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("static source closed")
	}
	s.grabs++
	if s.err != nil {
		return nil, s.err
	}
	return s.img, nil
}

func (s *StaticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *StaticSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Grabs returns how many frames were served.
func (s *StaticSource) Grabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grabs
}
