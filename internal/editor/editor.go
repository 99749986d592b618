// Package editor binds the collaborative editing engine to a document room.
// Content merge belongs to the engine; this package only gives the engine its
// own room handle and annotates the engine's awareness with the local
// identity. A binding is independent of presence tracking: both may hold a
// handle to the same room at once.
package editor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/pkg/room"
)

// Binding is the engine's connection to one document's room.
type Binding struct {
	documentID string
	handle     room.Handle

	mu    sync.Mutex
	state room.State

	done chan struct{}
	once sync.Once
}

// Attach connects the engine to documentID's room and announces self.
// Unlike presence, a failure to connect is returned: an editor without its
// room cannot sync.
func Attach(ctx context.Context, transport room.Transport, documentID string, self identity.Identity) (*Binding, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID cannot be empty")
	}

	h, err := transport.Connect(ctx, room.Key(documentID))
	if err != nil {
		return nil, fmt.Errorf("failed to attach editor to %s: %w", documentID, err)
	}

	payload := room.Payload{User: self.RoomUser(), Clock: 1, UpdatedAtMs: time.Now().UnixMilli()}
	if err := h.Publish(ctx, payload); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to announce editor awareness: %w", err)
	}

	b := &Binding{documentID: documentID, handle: h, done: make(chan struct{})}
	go b.run()
	return b, nil
}

func (b *Binding) DocumentID() string {
	return b.documentID
}

// Tag returns the engine's own connection tag.
func (b *Binding) Tag() string {
	return b.handle.Tag()
}

// Awareness returns the last room state the engine observed.
func (b *Binding) Awareness() room.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone()
}

// Close withdraws the engine's awareness entry and releases its handle.
func (b *Binding) Close() error {
	var err error
	b.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if werr := b.handle.Withdraw(ctx); werr != nil {
			log.Printf("[Editor] Failed to withdraw awareness for %s: %v", b.documentID, werr)
		}
		err = b.handle.Close()
		<-b.done
	})
	return err
}

func (b *Binding) run() {
	defer close(b.done)
	for state := range b.handle.States() {
		b.mu.Lock()
		b.state = state
		b.mu.Unlock()
	}
}
