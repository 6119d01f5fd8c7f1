package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// DeviceSource grabs stills from a capture device by shelling out to
// ffmpeg, one frame per Grab. Keeping ffmpeg at arm's length avoids a
// cgo video stack while still speaking to real hardware.
type DeviceSource struct {
	mu          sync.Mutex
	constraints Constraints
	closed      bool

	// runner executes the grab command. Overridable in tests.
	runner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OpenDevice verifies ffmpeg is present and returns a DeviceSource for
// the constraints. It satisfies OpenFunc.
//
// A missing ffmpeg binary maps to ErrDeviceUnavailable; everything else
// is classified at grab time.
func OpenDevice(_ context.Context, c Constraints) (Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found: %v", ErrDeviceUnavailable, err)
	}
	if c.Width <= 0 || c.Height <= 0 {
		d := DefaultConstraints()
		c.Width, c.Height = d.Width, d.Height
	}
	return &DeviceSource{constraints: c, runner: runCommand}, nil
}

// Grab captures a single frame as PNG via ffmpeg and decodes it.
func (s *DeviceSource) Grab(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("device source closed")
	}
	c := s.constraints
	runner := s.runner
	s.mu.Unlock()

	args := grabArgs(c, runtime.GOOS)
	out, err := runner(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, classifyGrabError(err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("%w: decode grabbed frame: %v", ErrDeviceUnavailable, err)
	}
	return img, nil
}

// Close marks the source closed. Idempotent; a closed source refuses
// further grabs but holds no OS resources between grabs anyway.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// grabArgs builds the single-frame ffmpeg invocation for the host OS.
func grabArgs(c Constraints, goos string) []string {
	size := fmt.Sprintf("%dx%d", c.Width, c.Height)

	var inputFormat, device string
	switch goos {
	case "darwin":
		inputFormat = "avfoundation"
		device = c.Device
		if device == "" {
			device = "0"
		}
	default:
		inputFormat = "v4l2"
		device = c.Device
		if device == "" {
			device = "/dev/video0"
		}
	}

	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", inputFormat,
		"-video_size", size,
		"-i", device,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		"pipe:1",
	}
}

// classifyGrabError maps ffmpeg failures onto the acquisition taxonomy.
// Permission failures and busy/missing devices are the two causes the
// UI distinguishes; both degrade to the upload fallback.
func classifyGrabError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "operation not permitted"),
		strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
}

// runCommand executes the command and returns stdout, folding stderr
// into the error for classification.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %v: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
