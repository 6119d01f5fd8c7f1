package kvstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *File {
	t.Helper()
	f, err := Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return f
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	f := open(t)
	assert.Empty(t, f.Keys(""))
}

func TestSetGet_RoundTrip(t *testing.T) {
	f := open(t)

	type rec struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	require.NoError(t, f.Set("a", rec{Name: "x", N: 3}))

	var got rec
	ok, err := f.Get("a", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec{Name: "x", N: 3}, got)
}

func TestGet_MissingKey(t *testing.T) {
	f := open(t)
	var v string
	ok, err := f.Get("nope", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistence_AcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	f1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f1.Set("k", "v"))

	f2, err := Open(path)
	require.NoError(t, err)

	var v string
	ok, err := f2.Get("k", &v)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestDelete_RemovesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	f, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, f.Set("k", 1))
	require.NoError(t, f.Delete("k"))
	require.NoError(t, f.Delete("k"), "deleting a missing key is a no-op")

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.False(t, reopened.Has("k"))
}

func TestKeys_PrefixFilterSorted(t *testing.T) {
	f := open(t)
	require.NoError(t, f.Set("frame:b", 1))
	require.NoError(t, f.Set("frame:a", 1))
	require.NoError(t, f.Set("templates", 1))

	assert.Equal(t, []string{"frame:a", "frame:b"}, f.Keys("frame:"))
	assert.Len(t, f.Keys(""), 3)
}

func TestOpen_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestConcurrentSets(t *testing.T) {
	f := open(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = f.Set(string(rune('a'+n)), n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, f.Keys(""), 8)
}
