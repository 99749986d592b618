// Package workspace is the session owner: it bootstraps the identity, loads
// the catalog, keeps the active selection resolvable and moves presence
// tracking along with it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dyluth/docroom/internal/catalog"
	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/internal/kv"
	"github.com/dyluth/docroom/internal/presence"
	"github.com/dyluth/docroom/pkg/room"
)

// Options configures a workspace. Zero values use production defaults.
type Options struct {
	// Transport enables presence tracking of the active document. Nil leaves
	// presence off, which is what one-shot catalog commands want.
	Transport room.Transport

	Presence  presence.Options
	Generator identity.Generator
	IDs       catalog.IDSource
}

// Workspace owns all session state. Methods are safe for concurrent use, but
// are meant to be driven by one logical owner.
type Workspace struct {
	self    identity.Identity
	catalog *catalog.Catalog
	tracker *presence.Tracker

	mu     sync.Mutex
	active catalog.Document
}

// Open loads (or creates) the session and resolves the persisted active
// document. It does not fail: unreadable state falls back to defaults.
func Open(ctx context.Context, store kv.Store, opts Options) *Workspace {
	self := identity.NewStore(store, opts.Generator).GetOrCreate(ctx)

	cat := catalog.New(store, opts.IDs)
	cat.Load(ctx)

	w := &Workspace{self: self, catalog: cat}
	if opts.Transport != nil {
		w.tracker = presence.NewTracker(opts.Transport, self, opts.Presence)
	}

	stored := cat.ActiveID()
	doc, err := w.Select(ctx, stored)
	if err != nil {
		log.Printf("[Workspace] %v", err)
	}
	if stored != "" && doc.ID != stored {
		log.Printf("[Workspace] Active document %s no longer exists, showing %s", stored, doc.ID)
	}
	return w
}

func (w *Workspace) Identity() identity.Identity {
	return w.self
}

// Catalog exposes the catalog for reads. Mutate through the workspace so the
// active selection stays valid.
func (w *Workspace) Catalog() *catalog.Catalog {
	return w.catalog
}

// Active returns the active document. It always refers to an existing
// document.
func (w *Workspace) Active() catalog.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Select resolves id, makes the result active and persists its id. Unknown
// ids select the first public document. A failure to persist the active id
// is logged; the only error returned comes from presence tracking.
func (w *Workspace) Select(ctx context.Context, id string) (catalog.Document, error) {
	doc := catalog.Resolve(id, w.catalog.Snapshot())

	w.mu.Lock()
	w.active = doc
	w.mu.Unlock()

	if w.catalog.ActiveID() != doc.ID {
		if err := w.catalog.SetActiveID(ctx, doc.ID); err != nil {
			log.Printf("[Workspace] %v", err)
		}
	}

	if w.tracker != nil {
		if err := w.tracker.Switch(ctx, doc.ID); err != nil {
			return doc, fmt.Errorf("failed to track presence for %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

// Create adds a private document and makes it active. A persist failure is
// returned as a *catalog.PersistError alongside the created document.
func (w *Workspace) Create(ctx context.Context, title string) (catalog.Document, error) {
	doc, createErr := w.catalog.CreatePrivate(ctx, title)
	if _, err := w.Select(ctx, doc.ID); err != nil {
		return doc, errors.Join(createErr, err)
	}
	return doc, createErr
}

// Rename retitles a private document and refreshes the active selection.
func (w *Workspace) Rename(ctx context.Context, id, title string) error {
	renameErr := w.catalog.Rename(ctx, id, title)
	w.refresh()
	return renameErr
}

// Delete removes a private document. Deleting the active document selects
// the first public document and persists that choice.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	deleteErr := w.catalog.Delete(ctx, id)

	if w.Active().ID == id {
		if _, err := w.Select(ctx, ""); err != nil {
			return errors.Join(deleteErr, err)
		}
		return deleteErr
	}
	w.refresh()
	return deleteErr
}

// refresh re-resolves the active document against the current catalog.
func (w *Workspace) refresh() {
	snap := w.catalog.Snapshot()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = catalog.Resolve(w.active.ID, snap)
}

// Presence delivers facepile updates for the active document. Nil when the
// workspace was opened without a transport.
func (w *Workspace) Presence() <-chan presence.Update {
	if w.tracker == nil {
		return nil
	}
	return w.tracker.Updates()
}

// Facepile returns the latest facepile of the active document.
func (w *Workspace) Facepile() presence.Update {
	if w.tracker == nil {
		return presence.Update{DocumentID: w.Active().ID, Facepile: presence.Aggregate(nil, 0)}
	}
	return w.tracker.Current()
}

// Close leaves the active room. The store is owned by the caller.
func (w *Workspace) Close() error {
	if w.tracker == nil {
		return nil
	}
	return w.tracker.Close()
}
