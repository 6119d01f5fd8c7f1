package framestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is the in-memory fallback backend. Same contract as the
// SQLite store; every mutation is atomic under a single mutex.
type MemStore struct {
	mu     sync.Mutex
	frames map[string]CustomFrame
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{frames: make(map[string]CustomFrame)}
}

// Add inserts a frame. Existing ids are acknowledged no-ops, matching
// the SQLite backend's ON CONFLICT DO NOTHING.
func (m *MemStore) Add(_ context.Context, f CustomFrame) (string, error) {
	f = withDefaults(f)
	if err := f.Validate(); err != nil {
		return "", fmt.Errorf("add frame: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.frames[f.ID]; !exists {
		m.frames[f.ID] = f
	}
	return f.ID, nil
}

// Get returns the frame with the given id.
func (m *MemStore) Get(_ context.Context, id string) (CustomFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[id]
	if !ok {
		return CustomFrame{}, fmt.Errorf("frame %q: %w", id, ErrNotFound)
	}
	return f, nil
}

// List returns all frames, newest first then id ascending, matching
// the SQLite ordering exactly.
func (m *MemStore) List(_ context.Context) ([]CustomFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frames := make([]CustomFrame, 0, len(m.frames))
	for _, f := range m.frames {
		frames = append(frames, f)
	}
	sort.Slice(frames, func(i, j int) bool {
		if !frames[i].CreatedAt.Equal(frames[j].CreatedAt) {
			return frames[i].CreatedAt.After(frames[j].CreatedAt)
		}
		return frames[i].ID < frames[j].ID
	})
	return frames, nil
}

// Delete removes the frame with the given id, or reports ErrNotFound.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.frames[id]; !ok {
		return fmt.Errorf("frame %q: %w", id, ErrNotFound)
	}
	delete(m.frames, id)
	return nil
}

// Clear removes every frame.
func (m *MemStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = make(map[string]CustomFrame)
	return nil
}

// Count returns the number of stored frames.
func (m *MemStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames), nil
}

// Close is a no-op for the in-memory backend.
func (m *MemStore) Close() error { return nil }

// IsUsingFallback always reports true for the in-memory backend.
func (m *MemStore) IsUsingFallback() bool { return true }
