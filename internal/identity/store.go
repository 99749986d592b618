package identity

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/dyluth/docroom/internal/kv"
)

// Key is the persistence key of the session identity record.
const Key = "docroom.user.v1"

// Store bootstraps and caches the session identity.
type Store struct {
	kv  kv.Store
	gen Generator

	mu     sync.Mutex
	cached *Identity
}

func NewStore(store kv.Store, gen Generator) *Store {
	if gen == nil {
		gen = NewRandomGenerator(nil)
	}
	return &Store{kv: store, gen: gen}
}

// GetOrCreate returns the persisted identity, creating and persisting one on
// first use. It never fails: an unreadable record is treated as absent and a
// failed write is logged, leaving the identity usable for this run.
func (s *Store) GetOrCreate(ctx context.Context) Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached
	}

	if id, ok := s.load(ctx); ok {
		s.cached = &id
		return id
	}

	id := s.gen.NewIdentity()
	s.cached = &id

	data, err := json.Marshal(id)
	if err != nil {
		log.Printf("[Identity] Failed to encode identity %s: %v", id.ID, err)
		return id
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		log.Printf("[Identity] Failed to persist identity %s (using in-memory copy): %v", id.ID, err)
	}
	return id
}

func (s *Store) load(ctx context.Context) (Identity, bool) {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !kv.IsNotFound(err) {
			log.Printf("[Identity] Failed to read identity, generating a new one: %v", err)
		}
		return Identity{}, false
	}

	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || !id.Valid() {
		log.Printf("[Identity] Ignoring malformed identity record")
		return Identity{}, false
	}
	return id, true
}
