package testutil

import (
	"context"
	"sync"
	"time"
)

// InstantSleeper satisfies the session countdown's sleeper contract
// without real waiting. Every Sleep returns immediately and is
// recorded, so tests can assert the countdown cadence deterministically.
//
// Thread-safety: all methods are safe for concurrent use.
type InstantSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

// NewInstantSleeper creates a sleeper with no recorded sleeps.
func NewInstantSleeper() *InstantSleeper {
	return &InstantSleeper{}
}

// Sleep records the requested duration and returns immediately.
// If ctx is already cancelled, the cancellation error is returned and
// nothing is recorded, matching the real sleeper's behavior.
func (s *InstantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
	return nil
}

// Slept returns a copy of the recorded sleep durations in order.
func (s *InstantSleeper) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}

// Reset clears the recorded sleeps for test reuse.
func (s *InstantSleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = nil
}
