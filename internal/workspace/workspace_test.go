package workspace

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dyluth/docroom/internal/catalog"
	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/internal/kv"
	"github.com/dyluth/docroom/internal/presence"
	"github.com/dyluth/docroom/pkg/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGenerator struct{}

func (staticGenerator) NewIdentity() identity.Identity {
	return identity.Identity{ID: "user_test", Name: "Ada Knox", Color: "#8b5cf6"}
}

type counterIDs struct{ n int }

func (c *counterIDs) ID(prefix string) string {
	c.n++
	return fmt.Sprintf("%s_%d", prefix, c.n)
}

func testOptions() Options {
	return Options{Generator: staticGenerator{}, IDs: &counterIDs{}}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh install selects the first public document", func(t *testing.T) {
		store := kv.NewMemoryStore()
		w := Open(ctx, store, testOptions())
		defer w.Close()

		assert.Equal(t, "public-welcome", w.Active().ID)
		assert.Equal(t, "user_test", w.Identity().ID)
		assert.Len(t, w.Catalog().ListPrivate(), 1)
	})

	t.Run("restart restores identity and active document", func(t *testing.T) {
		store := kv.NewMemoryStore()
		w := Open(ctx, store, testOptions())
		doc, err := w.Create(ctx, "Plans")
		require.NoError(t, err)
		first := w.Identity()
		require.NoError(t, w.Close())

		restarted := Open(ctx, store, Options{})
		defer restarted.Close()
		assert.Equal(t, first, restarted.Identity())
		assert.Equal(t, doc.ID, restarted.Active().ID)
	})

	t.Run("dangling active id is repaired", func(t *testing.T) {
		store := kv.NewMemoryStore()
		require.NoError(t, store.Set(ctx, catalog.ActiveDocKey, "doc_gone"))

		w := Open(ctx, store, testOptions())
		defer w.Close()

		assert.Equal(t, "public-welcome", w.Active().ID)
		stored, err := store.Get(ctx, catalog.ActiveDocKey)
		require.NoError(t, err)
		assert.Equal(t, "public-welcome", stored)
	})
}

func TestCreateSelectsNewDocument(t *testing.T) {
	ctx := context.Background()
	w := Open(ctx, kv.NewMemoryStore(), testOptions())
	defer w.Close()

	doc, err := w.Create(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, catalog.DefaultTitle, doc.Title)
	assert.Equal(t, doc, w.Active())
	assert.Equal(t, doc.ID, w.Catalog().ActiveID())
}

func TestRenameRefreshesActiveTitle(t *testing.T) {
	ctx := context.Background()
	w := Open(ctx, kv.NewMemoryStore(), testOptions())
	defer w.Close()

	doc, err := w.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, w.Rename(ctx, doc.ID, "Notes"))

	assert.Equal(t, "Notes", w.Active().Title)
	assert.Equal(t, "Notes", w.Catalog().ListPrivate()[0].Title)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting the only active private document falls back", func(t *testing.T) {
		store := kv.NewMemoryStore()
		require.NoError(t, store.Set(ctx, catalog.PrivateDocsKey, "[]"))
		w := Open(ctx, store, testOptions())
		defer w.Close()

		d, err := w.Create(ctx, "D")
		require.NoError(t, err)
		require.Equal(t, d.ID, w.Active().ID)

		require.NoError(t, w.Delete(ctx, d.ID))

		public := w.Catalog().ListPublic()
		assert.Equal(t, public[0], w.Active())
		stored, err := store.Get(ctx, catalog.ActiveDocKey)
		require.NoError(t, err)
		assert.Equal(t, public[0].ID, stored, "persisted active id must not dangle")
	})

	t.Run("deleting another document keeps the selection", func(t *testing.T) {
		w := Open(ctx, kv.NewMemoryStore(), testOptions())
		defer w.Close()

		other, err := w.Create(ctx, "Other")
		require.NoError(t, err)
		active, err := w.Create(ctx, "Active")
		require.NoError(t, err)

		require.NoError(t, w.Delete(ctx, other.ID))
		assert.Equal(t, active.ID, w.Active().ID)
	})
}

func TestPersistFailuresAreNotices(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	w := Open(ctx, store, testOptions())
	defer w.Close()

	store.SetErr = errors.New("disk full")

	doc, err := w.Create(ctx, "Offline")
	var perr *catalog.PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, doc.ID, w.Active().ID, "in-memory effect still applied")

	err = w.Rename(ctx, doc.ID, "Renamed")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Renamed", w.Active().Title)

	err = w.Delete(ctx, doc.ID)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "public-welcome", w.Active().ID)
}

func TestPresenceFollowsSelection(t *testing.T) {
	ctx := context.Background()
	transport := room.NewMemoryTransport()
	opts := testOptions()
	opts.Transport = transport

	w := Open(ctx, kv.NewMemoryStore(), opts)
	defer w.Close()

	waitForDocument(t, w.Presence(), "public-welcome")
	assert.Len(t, transport.Snapshot(room.Key("public-welcome")), 1)

	doc, err := w.Create(ctx, "Mine")
	require.NoError(t, err)

	u := waitForDocument(t, w.Presence(), doc.ID)
	assert.Equal(t, 1, u.Facepile.TotalCount)
	assert.Empty(t, transport.Snapshot(room.Key("public-welcome")))

	require.NoError(t, w.Close())
	assert.Empty(t, transport.Snapshot(room.Key(doc.ID)))
}

func TestFacepileWithoutTransport(t *testing.T) {
	w := Open(context.Background(), kv.NewMemoryStore(), testOptions())
	defer w.Close()

	assert.Nil(t, w.Presence())
	u := w.Facepile()
	assert.Equal(t, w.Active().ID, u.DocumentID)
	assert.Equal(t, 0, u.Facepile.TotalCount)
}

func waitForDocument(t *testing.T, ch <-chan presence.Update, docID string) presence.Update {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case u := <-ch:
			if u.DocumentID == docID && u.Facepile.TotalCount > 0 {
				return u
			}
		case <-deadline:
			t.Fatalf("timed out waiting for presence in %s", docID)
		}
	}
}
