package camera

import (
	"context"
	"errors"
	"sync"
)

// ErrReleased reports that an acquisition settled after its consumer
// had already been torn down. The late source was closed, not attached.
var ErrReleased = errors.New("camera acquisition released before settling")

// State is the observable acquisition state. Three distinct values,
// not a boolean: the UI offers the upload fallback only once denial is
// actually observed, while "still pending" keeps the permission prompt
// visible.
type State int

const (
	// StatePending means acquisition has not settled. Permission
	// prompts can block indefinitely, so this state has no timeout.
	StatePending State = iota

	// StateReady means the source is attached and grabbing frames.
	StateReady

	// StateDenied means acquisition failed (permission denied or
	// device unavailable). Err() carries the cause.
	StateDenied
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// OpenFunc opens a source for the given constraints. It may suspend
// indefinitely waiting on user permission.
type OpenFunc func(ctx context.Context, c Constraints) (Source, error)

// Acquisition tracks one asynchronous camera acquisition.
//
// Re-entrant mounts must not leak a stream: if the open settles after
// Release has already been called (consumer torn down), the late
// source is closed immediately instead of attached.
type Acquisition struct {
	mu       sync.Mutex
	state    State
	src      Source
	err      error
	released bool
	settled  chan struct{}
}

// Acquire starts opening a source in the background and returns
// immediately in StatePending.
func Acquire(ctx context.Context, open OpenFunc, c Constraints) *Acquisition {
	a := &Acquisition{settled: make(chan struct{})}
	go func() {
		src, err := open(ctx, c)
		a.settle(src, err)
	}()
	return a
}

func (a *Acquisition) settle(src Source, err error) {
	a.mu.Lock()
	if a.released {
		a.state = StateDenied
		a.err = ErrReleased
		close(a.settled)
		a.mu.Unlock()
		// Late arrival after teardown: release, never attach.
		if src != nil {
			src.Close()
		}
		return
	}
	if err != nil {
		a.state = StateDenied
		a.err = err
	} else {
		a.state = StateReady
		a.src = src
	}
	close(a.settled)
	a.mu.Unlock()
}

// State returns the current acquisition state.
func (a *Acquisition) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the denial cause, or nil while pending or ready.
func (a *Acquisition) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Source returns the attached source once ready, nil otherwise.
func (a *Acquisition) Source() Source {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.src
}

// Wait blocks until acquisition settles or ctx is done. It returns the
// source on success and the denial error otherwise.
func (a *Acquisition) Wait(ctx context.Context) (Source, error) {
	select {
	case <-a.settled:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.src, nil
}

// Release tears down the acquisition. Idempotent and safe to call in
// any state: a ready source is closed, a pending acquisition is marked
// so a late-arriving source is closed on settle, and a denied or
// already-released acquisition is a no-op.
func (a *Acquisition) Release() {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		return
	}
	a.released = true
	src := a.src
	a.src = nil
	a.mu.Unlock()

	if src != nil {
		src.Close()
	}
}

// Released reports whether Release has been called.
func (a *Acquisition) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}
