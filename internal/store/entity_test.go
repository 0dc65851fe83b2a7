package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readingnook/readingnook-server/internal/store"
)

type note struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Body string `json:"body"`
}

func newNotes(t *testing.T) *store.Entity[note] {
	t.Helper()
	s, err := store.NewInMemory(nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return store.NewEntity[note](s, "note:").
		WithIndex("slug", func(n *note) []string { return []string{n.Slug} })
}

func TestEntity_CRUD(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	require.NoError(t, notes.Create(ctx, "1", &note{ID: "1", Slug: "first", Body: "a"}))

	got, err := notes.GetByIndex(ctx, "slug", "first")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Body)

	require.NoError(t, notes.Update(ctx, "1", &note{ID: "1", Slug: "renamed", Body: "b"}))
	_, err = notes.GetByIndex(ctx, "slug", "first")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, notes.Delete(ctx, "1"))
	_, err = notes.Get(ctx, "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = notes.GetByIndex(ctx, "slug", "renamed")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_IndexConflict(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	require.NoError(t, notes.Create(ctx, "1", &note{ID: "1", Slug: "same"}))
	assert.ErrorIs(t, notes.Create(ctx, "2", &note{ID: "2", Slug: "same"}), store.ErrAlreadyExists)

	require.NoError(t, notes.Create(ctx, "2", &note{ID: "2", Slug: "other"}))
	assert.ErrorIs(t, notes.Update(ctx, "2", &note{ID: "2", Slug: "same"}), store.ErrAlreadyExists)

	// Keeping your own index value is not a conflict.
	assert.NoError(t, notes.Update(ctx, "1", &note{ID: "1", Slug: "same", Body: "edited"}))
}

func TestEntity_ListSkipsIndexKeys(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, notes.Create(ctx, id, &note{ID: id, Slug: "slug-" + id}))
	}

	var ids []string
	for n, err := range notes.List(ctx) {
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	count, err := notes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEntity_ListStopsEarly(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, notes.Create(ctx, id, &note{ID: id, Slug: id}))
	}

	seen := 0
	for range notes.List(ctx) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestEntity_ReplaceAll(t *testing.T) {
	notes := newNotes(t)
	ctx := context.Background()

	require.NoError(t, notes.Create(ctx, "old", &note{ID: "old", Slug: "old"}))
	require.NoError(t, notes.ReplaceAll(ctx,
		[]string{"x", "y"},
		[]*note{{ID: "x", Slug: "x"}, {ID: "y", Slug: "y"}},
	))

	_, err := notes.Get(ctx, "old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = notes.GetByIndex(ctx, "slug", "old")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := notes.GetByIndex(ctx, "slug", "y")
	require.NoError(t, err)
	assert.Equal(t, "y", got.ID)

	assert.ErrorIs(t, notes.ReplaceAll(ctx, []string{"x"}, nil), store.ErrInvalidInput)
}
