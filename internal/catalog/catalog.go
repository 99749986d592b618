package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/dyluth/docroom/internal/idgen"
	"github.com/dyluth/docroom/internal/kv"
)

// Persistence keys.
const (
	PrivateDocsKey = "docroom.privateDocs.v1"
	ActiveDocKey   = "docroom.activeDoc.v1"
)

// IDSource allocates document ids. *idgen.Source satisfies it.
type IDSource interface {
	ID(prefix string) string
}

// Catalog is the single writer of the private document list and the active
// document id. Writes are serialised so the store always holds the latest
// in-memory state.
type Catalog struct {
	store kv.Store
	ids   IDSource

	mu       sync.Mutex
	private  []Document
	activeID string
}

// New creates an empty catalog. Call Load before use. A nil ids uses a
// crypto-seeded idgen.Source.
func New(store kv.Store, ids IDSource) *Catalog {
	if ids == nil {
		ids = idgen.New()
	}
	return &Catalog{store: store, ids: ids}
}

// Load reads the private documents and the active id. A missing private list
// means first run: one document is seeded and persisted. Unreadable or
// malformed content falls back to the same defaults.
func (c *Catalog) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.store.Get(ctx, PrivateDocsKey)
	switch {
	case err == nil:
		docs, decodeErr := decodePrivate(raw)
		if decodeErr == nil {
			c.private = docs
			break
		}
		log.Printf("[Catalog] Ignoring malformed private documents: %v", decodeErr)
		c.seed(ctx)
	case kv.IsNotFound(err):
		c.seed(ctx)
	default:
		log.Printf("[Catalog] Failed to read private documents, using defaults: %v", err)
		c.seed(ctx)
	}

	active, err := c.store.Get(ctx, ActiveDocKey)
	if err != nil && !kv.IsNotFound(err) {
		log.Printf("[Catalog] Failed to read active document: %v", err)
	}
	c.activeID = active
}

func (c *Catalog) seed(ctx context.Context) {
	c.private = []Document{{ID: c.newID(), Title: FirstRunTitle, Visibility: Private}}
	if err := c.persistPrivate(ctx); err != nil {
		log.Printf("[Catalog] %v", err)
	}
}

// decodePrivate parses the stored list, dropping entries that would break
// catalog invariants (blank or duplicate ids, ids shadowing public documents).
func decodePrivate(raw string) ([]Document, error) {
	var stored []Document
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(stored))
	for _, d := range publicDocuments {
		seen[d.ID] = true
	}
	docs := make([]Document, 0, len(stored))
	for _, d := range stored {
		if d.ID == "" || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		d.Visibility = Private
		docs = append(docs, d)
	}
	return docs, nil
}

func (c *Catalog) ListPublic() []Document {
	return PublicDocuments()
}

// ListPrivate returns the private documents, newest first.
func (c *Catalog) ListPrivate() []Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneDocs(c.private)
}

func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Public: PublicDocuments(), Private: cloneDocs(c.private)}
}

// Search filters both partitions by title.
func (c *Catalog) Search(query string) Snapshot {
	return c.Snapshot().Filter(query)
}

// Get looks a document up in either partition.
func (c *Catalog) Get(id string) (Document, bool) {
	for _, d := range c.Snapshot().All() {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// CreatePrivate prepends a new private document. A blank title becomes
// DefaultTitle. The document is returned even when persisting fails, in which
// case the error is a *PersistError.
func (c *Catalog) CreatePrivate(ctx context.Context, title string) (Document, error) {
	if title == "" {
		title = DefaultTitle
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	doc := Document{ID: c.newID(), Title: title, Visibility: Private}
	c.private = append([]Document{doc}, c.private...)

	if err := c.persistPrivate(ctx); err != nil {
		return doc, &PersistError{Op: "create", Err: err}
	}
	return doc, nil
}

// Rename overwrites the title of a private document. Unknown ids and public
// documents are ignored.
func (c *Catalog) Rename(ctx context.Context, id, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil
	}
	c.private[i].Title = title

	if err := c.persistPrivate(ctx); err != nil {
		return &PersistError{Op: "rename", Err: err}
	}
	return nil
}

// Delete removes a private document. Unknown ids and public documents are
// ignored. The active id is left alone; repairing it is the owner's job.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil
	}
	c.private = append(c.private[:i:i], c.private[i+1:]...)

	if err := c.persistPrivate(ctx); err != nil {
		return &PersistError{Op: "delete", Err: err}
	}
	return nil
}

// ActiveID returns the persisted active document id as stored. It may not
// resolve; pass it through Resolve before use.
func (c *Catalog) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// SetActiveID records and persists the active document id.
func (c *Catalog) SetActiveID(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeID = id
	if err := c.store.Set(ctx, ActiveDocKey, id); err != nil {
		return &PersistError{Op: "active document", Err: err}
	}
	return nil
}

func (c *Catalog) indexOf(id string) int {
	for i, d := range c.private {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// newID allocates an id unused by any public or private document.
func (c *Catalog) newID() string {
	for {
		id := c.ids.ID("doc")
		if c.indexOf(id) >= 0 {
			continue
		}
		taken := false
		for _, d := range publicDocuments {
			if d.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func (c *Catalog) persistPrivate(ctx context.Context) error {
	data, err := json.Marshal(c.private)
	if err != nil {
		return fmt.Errorf("failed to encode private documents: %w", err)
	}
	if err := c.store.Set(ctx, PrivateDocsKey, string(data)); err != nil {
		return fmt.Errorf("failed to write private documents: %w", err)
	}
	return nil
}
