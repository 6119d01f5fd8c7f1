// Package session orchestrates the per-photo capture state machine
// across the N slots of one photostrip.
//
// States: LIVE -> COUNTDOWN(3,2,1) -> CAPTURED_PREVIEW -> {KEEP, RETAKE}.
// DEGRADED replaces LIVE when the camera is denied or unavailable and
// offers Skip (blank placeholder) and UploadFile instead of Capture.
//
// All mutations go through named operations on the Controller; the
// session invariants (captured count equals current index, slot order,
// no capture during countdown) are enforced in one place.
package session

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/roach88/snapstrip/internal/camera"
	"github.com/roach88/snapstrip/internal/compositor"
	"github.com/roach88/snapstrip/internal/exposure"
)

// State is the controller's observable state.
type State int

const (
	// StateIdle is the initial state, before a source is attached.
	StateIdle State = iota

	// StateLive shows the preview and accepts Capture.
	StateLive

	// StateCountdown is the 3-tick cooperative countdown. Further
	// capture requests are no-ops until it finishes.
	StateCountdown

	// StateCapturedPreview holds a pending photo awaiting Keep/Retake.
	StateCapturedPreview

	// StateDegraded replaces LIVE when the camera is denied; Skip and
	// UploadFile substitute for Capture.
	StateDegraded

	// StateComplete is terminal: every slot has a kept photo.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLive:
		return "LIVE"
	case StateCountdown:
		return "COUNTDOWN"
	case StateCapturedPreview:
		return "CAPTURED_PREVIEW"
	case StateDegraded:
		return "DEGRADED"
	case StateComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// CountdownTicks is the fixed number of countdown ticks before a grab.
const CountdownTicks = 3

// Sleeper abstracts the countdown cadence so tests can run it
// instantly. The real implementation waits on a timer or ctx.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper is the production Sleeper.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectedFrame is a per-slot frame choice. A zero Ref means the slot
// is still empty. Image holds the preloaded overlay; nil means the
// preload failed or has not happened, and capture degrades to an
// unframed photo for that slot.
type SelectedFrame struct {
	Ref   string
	Name  string
	Image image.Image
}

// Empty reports whether the slot has no frame selected.
func (f SelectedFrame) Empty() bool { return f.Ref == "" }

// CapturedPhoto is one kept photo: already composited with its frame,
// immutable once kept, ordered by capture sequence.
type CapturedPhoto struct {
	ID       string // time-sortable ulid
	Image    *image.RGBA
	Exposure float64
	Slot     int
}

// Config configures a capture session.
type Config struct {
	SlotCount      int // 4 or 9
	ViewportWidth  int
	ViewportHeight int
	Sleeper        Sleeper      // defaults to TimerSleeper
	Logger         *slog.Logger // defaults to slog.Default()
}

// Controller runs one capture session. Safe for concurrent use; every
// operation is serialized on an internal mutex except the countdown
// sleep, which deliberately runs unlocked so state queries (and the
// no-op check for concurrent captures) stay responsive.
type Controller struct {
	mu sync.Mutex

	id        string
	slotCount int
	viewW     int
	viewH     int
	sleeper   Sleeper
	logger    *slog.Logger

	state    State
	frames   []SelectedFrame
	captured []CapturedPhoto
	pending  *CapturedPhoto
	exposure float64
	source   camera.Source
	trace    []Event

	// degradedBusy guards the DEGRADED capture paths the way
	// StateCountdown guards Capture: one in-flight upload or skip at a
	// time, concurrent requests are no-ops.
	degradedBusy bool
}

// New creates a session for a 4- or 9-slot strip.
func New(cfg Config) (*Controller, error) {
	if cfg.SlotCount != 4 && cfg.SlotCount != 9 {
		return nil, newError(CodeSlotOutOfRange, -1, "slot count must be 4 or 9, got %d", cfg.SlotCount)
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return nil, newError(CodeInvalidState, -1, "non-positive viewport %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = TimerSleeper{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		id:        uuid.NewString(),
		slotCount: cfg.SlotCount,
		viewW:     cfg.ViewportWidth,
		viewH:     cfg.ViewportHeight,
		sleeper:   cfg.Sleeper,
		logger:    cfg.Logger,
		state:     StateIdle,
		frames:    make([]SelectedFrame, cfg.SlotCount),
	}, nil
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// SlotCount returns the fixed number of slots.
func (c *Controller) SlotCount() int { return c.slotCount }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentSlot returns the index of the slot being captured next.
// Always equal to the number of kept photos.
func (c *Controller) CurrentSlot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.captured)
}

// Photos returns the kept photos in capture order.
func (c *Controller) Photos() []CapturedPhoto {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedPhoto, len(c.captured))
	copy(out, c.captured)
	return out
}

// ExposureValues returns the exposure value each kept photo was taken
// at, in capture order.
func (c *Controller) ExposureValues() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.captured))
	for i, p := range c.captured {
		out[i] = p.Exposure
	}
	return out
}

// Done reports whether every slot has a kept photo.
func (c *Controller) Done() bool {
	return c.State() == StateComplete
}

// SetExposure sets the exposure value applied to subsequent captures,
// clamped to the supported range.
func (c *Controller) SetExposure(ev float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exposure = exposure.Clamp(ev)
}

// Exposure returns the current exposure setting.
func (c *Controller) Exposure() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure
}

// SelectFrame binds a frame to a slot. Allowed any time before that
// slot's photo is kept.
func (c *Controller) SelectFrame(slot int, f SelectedFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot < 0 || slot >= c.slotCount {
		return newError(CodeSlotOutOfRange, slot, "slot outside 0..%d", c.slotCount-1)
	}
	if slot < len(c.captured) {
		return newError(CodeInvalidState, slot, "slot already has a kept photo")
	}
	c.frames[slot] = f
	return nil
}

// SelectedFrames returns a copy of the per-slot frame choices.
func (c *Controller) SelectedFrames() []SelectedFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SelectedFrame, len(c.frames))
	copy(out, c.frames)
	return out
}

// ClearFrameRef empties every not-yet-captured slot whose selection
// references the given frame id. Called when a custom frame is deleted
// so no selected reference dangles. Returns the cleared slot indexes.
func (c *Controller) ClearFrameRef(ref string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var cleared []int
	for i := len(c.captured); i < c.slotCount; i++ {
		if c.frames[i].Ref == ref {
			c.frames[i] = SelectedFrame{}
			cleared = append(cleared, i)
		}
	}
	return cleared
}

// StartLive enters LIVE with an acquired camera source. Every slot must
// have a frame selected first.
func (c *Controller) StartLive(src camera.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.startLocked(); err != nil {
		return err
	}
	c.source = src
	c.setStateLocked(StateLive)
	return nil
}

// StartDegraded enters DEGRADED after camera denial. The cause is
// recorded for diagnostics; the session continues via Skip/UploadFile.
func (c *Controller) StartDegraded(cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.startLocked(); err != nil {
		return err
	}
	c.source = nil
	c.logger.Warn("camera unavailable, session degraded", "session", c.id, "cause", cause)
	c.setStateLocked(StateDegraded)
	return nil
}

func (c *Controller) startLocked() error {
	if c.state != StateIdle {
		return newError(CodeInvalidState, -1, "session already started (state=%s)", c.state)
	}
	for i, f := range c.frames {
		if f.Empty() {
			return newError(CodeFramesIncomplete, i, "slot has no frame selected")
		}
	}
	return nil
}

// Capture runs the countdown and grabs a still for the current slot.
//
// No-op while a countdown is already active (concurrent capture
// requests do not stack). The countdown is cancellable only through
// ctx, which callers tie to back-navigation/unmount.
func (c *Controller) Capture(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateCountdown {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateLive {
		c.mu.Unlock()
		return newError(CodeInvalidState, -1, "capture requires LIVE (state=%s)", c.state)
	}
	c.setStateLocked(StateCountdown)
	src := c.source
	sleeper := c.sleeper
	c.mu.Unlock()

	for n := CountdownTicks; n >= 1; n-- {
		c.traceTick(n)
		if err := sleeper.Sleep(ctx, time.Second); err != nil {
			c.abortCountdown()
			return err
		}
	}

	img, err := src.Grab(ctx)
	if err != nil {
		c.abortCountdown()
		return err
	}
	return c.finishCapture(img, true)
}

// abortCountdown returns to LIVE after a cancelled countdown or a
// failed grab.
func (c *Controller) abortCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCountdown {
		c.setStateLocked(StateLive)
	}
}

// beginDegradedOp takes the in-flight guard for an upload or skip.
// The bool reports whether the caller holds the guard; false with a
// nil error means another degraded capture is already in flight and
// this request is a no-op.
func (c *Controller) beginDegradedOp(op string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDegraded {
		return false, newError(CodeInvalidState, -1, "%s requires DEGRADED (state=%s)", op, c.state)
	}
	if c.degradedBusy {
		return false, nil
	}
	c.degradedBusy = true
	return true, nil
}

func (c *Controller) endDegradedOp() {
	c.mu.Lock()
	c.degradedBusy = false
	c.mu.Unlock()
}

// UploadFile substitutes a user-selected image for the current slot.
// DEGRADED only; the image runs through the same frame-overlay step as
// a live capture, without mirroring. No-op while another upload or
// skip is already in flight.
func (c *Controller) UploadFile(ctx context.Context, src camera.Source) error {
	ok, err := c.beginDegradedOp("upload")
	if !ok {
		return err
	}
	defer c.endDegradedOp()

	img, err := src.Grab(ctx)
	if err != nil {
		return err
	}
	return c.finishCapture(img, false)
}

// Skip inserts a blank placeholder photo for the current slot.
// DEGRADED only. No-op while another upload or skip is in flight.
func (c *Controller) Skip(_ context.Context) error {
	ok, err := c.beginDegradedOp("skip")
	if !ok {
		return err
	}
	defer c.endDegradedOp()
	// Plain white placeholder.
	blank := image.NewRGBA(image.Rect(0, 0, c.viewW, c.viewH))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	return c.finishCapture(blank, false)
}

// finishCapture composites the grabbed image with the current slot's
// frame and enters CAPTURED_PREVIEW.
func (c *Controller) finishCapture(img image.Image, mirror bool) error {
	c.mu.Lock()
	slot := len(c.captured)
	frame := c.frames[slot].Image
	ev := c.exposure
	c.mu.Unlock()

	composed, err := compositor.ApplyFrame(img, frame, compositor.Options{
		ViewportWidth:  c.viewW,
		ViewportHeight: c.viewH,
		Exposure:       ev,
		Mirror:         mirror,
	})
	if err != nil {
		c.abortCountdown()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &CapturedPhoto{
		ID:       ulid.Make().String(),
		Image:    composed,
		Exposure: ev,
		Slot:     slot,
	}
	c.setStateLocked(StateCapturedPreview)
	return nil
}

// Keep accepts the pending photo, advancing to the next slot or to
// COMPLETE when it was the last one.
func (c *Controller) Keep() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCapturedPreview || c.pending == nil {
		return newError(CodeInvalidState, -1, "keep requires a captured preview (state=%s)", c.state)
	}

	c.captured = append(c.captured, *c.pending)
	c.pending = nil
	c.traceKeep(len(c.captured) - 1)

	if len(c.captured) == c.slotCount {
		c.setStateLocked(StateComplete)
		return nil
	}
	if c.source != nil {
		c.setStateLocked(StateLive)
	} else {
		c.setStateLocked(StateDegraded)
	}
	return nil
}

// Retake discards the pending photo and returns to LIVE (or DEGRADED).
func (c *Controller) Retake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCapturedPreview || c.pending == nil {
		return newError(CodeInvalidState, -1, "retake requires a captured preview (state=%s)", c.state)
	}
	c.pending = nil
	c.traceRetake(len(c.captured))
	if c.source != nil {
		c.setStateLocked(StateLive)
	} else {
		c.setStateLocked(StateDegraded)
	}
	return nil
}

// Pending returns the photo awaiting Keep/Retake, if any.
func (c *Controller) Pending() *CapturedPhoto {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}

// Reset destroys the session state, returning to IDLE with empty slots.
// Used when navigating back to frame selection.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = make([]SelectedFrame, c.slotCount)
	c.captured = nil
	c.pending = nil
	c.source = nil
	c.trace = nil
	c.degradedBusy = false
	c.state = StateIdle
}

// checkInvariants panics on a broken session invariant. Called from
// setStateLocked so every transition is verified.
func (c *Controller) checkInvariants() {
	if len(c.captured) > c.slotCount {
		panic("session: captured photos exceed slot count")
	}
	for i, p := range c.captured {
		if p.Slot != i {
			panic("session: captured photos out of slot order")
		}
	}
}
