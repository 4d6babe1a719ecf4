package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeConformance exercises the BlobStore contract shared by all backends.
func storeConformance(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/b", []byte("hello")))
		got, err := store.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/b", []byte("world")))
		got, err := store.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, []byte("world"), got)
	})

	t.Run("PutEmpty", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "empty", nil))
		got, err := store.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/c", []byte("x")))
		names, err := store.List(ctx, "a/")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a/b", "a/c"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "a/b"))
		_, err := store.Get(ctx, "a/b")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never-existed"))
	})
}

func TestMemoryStore(t *testing.T) {
	storeConformance(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	storeConformance(t, store)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("mutable")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got, "store must copy on Put")

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), again, "store must copy on Get")
}
