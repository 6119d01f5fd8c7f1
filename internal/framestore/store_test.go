package framestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "frames.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testFrame(id, name string) CustomFrame {
	return CustomFrame{
		ID:        id,
		Name:      name,
		ImageData: []byte{0x89, 0x50, 0x4e, 0x47},
		MimeType:  "image/png",
		Source:    SourceUserUpload,
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open iteration %d", i)
		s.Close()
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/frames.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &SQLiteStore{}
	assert.NoError(t, s.Close())
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "frames.db")

	s1, err := Open(path)
	require.NoError(t, err)
	id, err := s1.Add(ctx, testFrame("", "holiday"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "holiday", got.Name)
}

// runStoreContract exercises the behavior both backends must share.
// Callers must be unable to distinguish the backends except through
// IsUsingFallback.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("add assigns id and defaults", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Add(ctx, testFrame("", "sparkle"))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "sparkle", got.Name)
		assert.Equal(t, SourceUserUpload, got.Source)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("add existing id is an acknowledged no-op", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Add(ctx, testFrame("dup-1", "first"))
		require.NoError(t, err)

		id, err := s.Add(ctx, testFrame("dup-1", "second"))
		require.NoError(t, err)
		assert.Equal(t, "dup-1", id)

		got, err := s.Get(ctx, "dup-1")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name, "existing record wins")

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("add rejects invalid frames", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Add(ctx, CustomFrame{Name: "no-data", MimeType: "image/png"})
		assert.Error(t, err, "write failures are acknowledged, never silent")
	})

	t.Run("get missing id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first with id tiebreak", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		older := testFrame("b-old", "older")
		older.CreatedAt = base
		newer := testFrame("a-new", "newer")
		newer.CreatedAt = base.Add(time.Hour)
		tied := testFrame("c-old", "tied")
		tied.CreatedAt = base

		for _, f := range []CustomFrame{older, newer, tied} {
			_, err := s.Add(ctx, f)
			require.NoError(t, err)
		}

		frames, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, frames, 3)
		assert.Equal(t, "a-new", frames[0].ID)
		assert.Equal(t, "b-old", frames[1].ID)
		assert.Equal(t, "c-old", frames[2].ID)
	})

	t.Run("list empty store", func(t *testing.T) {
		s := newStore(t)
		frames, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, frames)
	})

	t.Run("delete removes and acknowledges", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Add(ctx, testFrame("", "gone"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, id))
		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound, "double delete is acknowledged")
	})

	t.Run("clear and count", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"a", "b", "c"} {
			_, err := s.Add(ctx, testFrame("", name))
			require.NoError(t, err)
		}

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		require.NoError(t, s.Clear(ctx))
		n, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("concurrent adds serialize", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := s.Add(ctx, testFrame("", "frame"))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, n)
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return openTestStore(t)
	})
}

func TestMemStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemStore()
	})
}

func TestBackendDiagnostics(t *testing.T) {
	assert.False(t, openTestStore(t).IsUsingFallback())
	assert.True(t, NewMemStore().IsUsingFallback())
}
