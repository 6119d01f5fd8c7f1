package framestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithFallback_UsesSQLiteWhenAvailable(t *testing.T) {
	s := OpenWithFallback(filepath.Join(t.TempDir(), "frames.db"), nil)
	t.Cleanup(func() { s.Close() })

	assert.False(t, s.IsUsingFallback())
}

func TestOpenWithFallback_DegradesToMemory(t *testing.T) {
	// Unwritable path: sqlite init fails, the fallback takes over
	// behind the same interface.
	s := OpenWithFallback("/nonexistent/dir/frames.db", nil)
	t.Cleanup(func() { s.Close() })

	assert.True(t, s.IsUsingFallback())

	ctx := context.Background()
	id, err := s.Add(ctx, testFrame("", "still-works"))
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "still-works", got.Name)
}
