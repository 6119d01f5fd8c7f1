package template

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapstrip/internal/framestore"
	"github.com/roach88/snapstrip/internal/kvstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := kvstore.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return NewStore(kv)
}

func refs4() []string {
	return []string{"a", "b", "c", "d"}
}

func TestCreate_AssignsIDAndCount(t *testing.T) {
	s := newTestStore(t)

	tmpl, err := s.Create("party", refs4())
	require.NoError(t, err)

	assert.NotEmpty(t, tmpl.ID)
	assert.Equal(t, 4, tmpl.FrameCount)
	assert.False(t, tmpl.CreatedAt.IsZero())
}

func TestCreate_RejectsBadSlotCounts(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("three", []string{"a", "b", "c"})
	assert.Error(t, err, "3 slots is not a strip")

	_, err = s.Create("empty-ref", []string{"a", "b", "", "d"})
	assert.Error(t, err, "all slots must be non-empty")

	_, err = s.Create("", refs4())
	assert.Error(t, err, "name required")
}

func TestCreate_AcceptsNineSlots(t *testing.T) {
	s := newTestStore(t)
	refs := make([]string, 9)
	for i := range refs {
		refs[i] = "f"
	}
	tmpl, err := s.Create("grid", refs)
	require.NoError(t, err)
	assert.Equal(t, 9, tmpl.FrameCount)
}

func TestList_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("first", refs4())
	require.NoError(t, err)
	_, err = s.Create("second", refs4())
	require.NoError(t, err)

	templates, err := s.List()
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "second", templates[0].Name)
	assert.Equal(t, "first", templates[1].Name)
}

func TestDelete_RemovesTemplate(t *testing.T) {
	s := newTestStore(t)
	tmpl, err := s.Create("gone", refs4())
	require.NoError(t, err)

	require.NoError(t, s.Delete(tmpl.ID))

	_, err = s.Get(tmpl.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(tmpl.ID), ErrNotFound)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	kv1, err := kvstore.Open(path)
	require.NoError(t, err)
	tmpl, err := NewStore(kv1).Create("durable", refs4())
	require.NoError(t, err)

	kv2, err := kvstore.Open(path)
	require.NoError(t, err)
	got, err := NewStore(kv2).Get(tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Name)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my_party_frames", Slug("My Party Frames!"))
	assert.Equal(t, "caf_2026", Slug("  Café 2026  "))
	assert.Equal(t, "film", Slug("ﬁlm"), "NFKC folds the ligature")
}

func TestResolve_ExactIDOnly(t *testing.T) {
	ctx := context.Background()
	catalog := []Frame{{ID: "hearts", Name: "Hearts", URL: "/frames/hearts.png"}}

	frames := framestore.NewMemStore()
	_, err := frames.Add(ctx, framestore.CustomFrame{
		ID:        "custom-1",
		Name:      "My Upload",
		ImageData: []byte{1, 2, 3},
		MimeType:  "image/png",
	})
	require.NoError(t, err)

	r := NewResolver(catalog, frames)

	builtin, err := r.Resolve(ctx, "hearts")
	require.NoError(t, err)
	assert.Equal(t, "/frames/hearts.png", builtin.URL)

	custom, err := r.Resolve(ctx, "custom-1")
	require.NoError(t, err)
	assert.Equal(t, "My Upload", custom.Name)
	assert.Equal(t, []byte{1, 2, 3}, custom.Data)

	// No filename heuristics, no substring matching: near-misses are
	// explicit not-founds.
	_, err = r.Resolve(ctx, "heart")
	assert.ErrorIs(t, err, ErrFrameRefNotFound)
	_, err = r.Resolve(ctx, "hearts.png")
	assert.ErrorIs(t, err, ErrFrameRefNotFound)
}

func TestResolveAll_FailsOnMissingSlot(t *testing.T) {
	ctx := context.Background()
	r := NewResolver([]Frame{{ID: "a", URL: "a.png"}}, nil)

	_, err := r.ResolveAll(ctx, Template{
		ID: "t", Name: "t", FrameCount: 4,
		FrameRefs: []string{"a", "a", "missing", "a"},
	})
	require.ErrorIs(t, err, ErrFrameRefNotFound)
	assert.Contains(t, err.Error(), "slot 2")
}
