package presence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/pkg/room"
)

// ErrTrackerClosed is returned by Switch after Close.
var ErrTrackerClosed = errors.New("presence tracker closed")

// Update is the facepile of the document currently being tracked.
type Update struct {
	DocumentID string   `json:"document_id"`
	Facepile   Facepile `json:"facepile"`
}

// Tracker holds interest in exactly one document at a time. Switching
// documents releases the previous room before joining the next, and any
// notification still in flight from the previous room is discarded.
type Tracker struct {
	transport room.Transport
	self      identity.Identity
	opts      Options

	updates chan Update
	active  atomic.Pointer[string]

	mu      sync.Mutex
	channel *Channel
	forward chan struct{}
	closed  bool

	lastMu sync.Mutex
	last   Update
}

func NewTracker(transport room.Transport, self identity.Identity, opts Options) *Tracker {
	t := &Tracker{
		transport: transport,
		self:      self,
		opts:      opts.withDefaults(),
		updates:   make(chan Update, 16),
	}
	empty := ""
	t.active.Store(&empty)
	return t
}

// Updates delivers the facepile after every change in the tracked room.
// Closed after Close.
func (t *Tracker) Updates() <-chan Update {
	return t.updates
}

// DocumentID returns the document currently tracked, or "".
func (t *Tracker) DocumentID() string {
	return *t.active.Load()
}

// Current returns the latest facepile of the tracked document.
func (t *Tracker) Current() Update {
	active := t.DocumentID()

	t.lastMu.Lock()
	defer t.lastMu.Unlock()
	if t.last.DocumentID != active {
		return Update{DocumentID: active, Facepile: Aggregate(nil, t.opts.FacepileSize)}
	}
	return t.last
}

// Switch moves interest to documentID. Switching to the document already
// tracked is a no-op.
func (t *Tracker) Switch(ctx context.Context, documentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTrackerClosed
	}
	if t.channel != nil && t.channel.DocumentID() == documentID {
		return nil
	}

	// Retag first so anything the old room still delivers is dropped.
	t.active.Store(&documentID)
	t.release()
	t.drain()

	ch, err := Open(ctx, t.transport, documentID, t.self, t.opts)
	if err != nil {
		return err
	}
	t.channel = ch
	t.forward = make(chan struct{})
	go t.forwardFrom(ch, t.forward)
	return nil
}

// Close releases the tracked room and closes Updates.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	empty := ""
	t.active.Store(&empty)
	t.release()
	close(t.updates)
	return nil
}

// release closes the current channel and waits for its forwarder. Caller
// holds t.mu.
func (t *Tracker) release() {
	if t.channel == nil {
		return
	}
	_ = t.channel.Close()
	<-t.forward
	t.channel = nil
	t.forward = nil
}

// drain discards queued updates from the released room. Caller holds t.mu,
// so no forwarder is running.
func (t *Tracker) drain() {
	for {
		select {
		case <-t.updates:
		default:
			return
		}
	}
}

func (t *Tracker) forwardFrom(ch *Channel, done chan struct{}) {
	defer close(done)
	for snap := range ch.Updates() {
		if snap.DocumentID != t.DocumentID() {
			continue
		}
		u := Update{
			DocumentID: snap.DocumentID,
			Facepile:   Aggregate(snap.State, t.opts.FacepileSize),
		}

		t.lastMu.Lock()
		t.last = u
		t.lastMu.Unlock()

		t.emit(u)
	}
}

// emit drops the oldest queued update if the consumer is behind.
func (t *Tracker) emit(u Update) {
	for {
		select {
		case t.updates <- u:
			return
		default:
		}
		select {
		case <-t.updates:
		default:
		}
	}
}
