package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing key reports not found", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.True(t, IsNotFound(err))
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "docroom.activeDoc.v1", "public-welcome"))
		value, err := store.Get(ctx, "docroom.activeDoc.v1")
		require.NoError(t, err)
		assert.Equal(t, "public-welcome", value)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k", "first"))
		require.NoError(t, store.Set(ctx, "k", "second"))
		value, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("empty value is stored, not absent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "empty", ""))
		value, err := store.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, "", value)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())

	t.Run("injected set error leaves value untouched", func(t *testing.T) {
		store := NewMemoryStore()
		store.SetErr = errors.New("disk full")
		err := store.Set(context.Background(), "k", "v")
		assert.EqualError(t, err, "disk full")
		_, err = store.Get(context.Background(), "k")
		assert.True(t, IsNotFound(err))
	})
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exerciseStore(t, store)

	t.Run("values survive reopen", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "persist", "yes"))
		require.NoError(t, store.Close())

		reopened, err := OpenSQLite(ctx, path)
		require.NoError(t, err)
		defer reopened.Close()

		value, err := reopened.Get(ctx, "persist")
		require.NoError(t, err)
		assert.Equal(t, "yes", value)
	})
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "storage path is required")
}

func TestRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exerciseStore(t, store)

	t.Run("keys are namespaced", func(t *testing.T) {
		require.NoError(t, store.Set(context.Background(), "docroom.user.v1", "{}"))
		assert.True(t, s.Exists("docroom:test:kv:docroom.user.v1"))
	})
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not a url", "test")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
