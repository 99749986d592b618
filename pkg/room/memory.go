package room

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MemoryTransport is an in-process transport. All handles connected through the
// same MemoryTransport share rooms. Used for tests and for sessions without a
// Redis server.
type MemoryTransport struct {
	mu    sync.Mutex
	rooms map[string]*memoryRoom

	// Set by FailConnects to simulate an unreachable transport.
	connectErr atomic.Pointer[error]
}

// NewMemoryTransport creates an empty in-process transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{rooms: make(map[string]*memoryRoom)}
}

// FailConnects makes subsequent Connect calls return err. Pass nil to recover.
func (t *MemoryTransport) FailConnects(err error) {
	if err == nil {
		t.connectErr.Store(nil)
		return
	}
	t.connectErr.Store(&err)
}

// Connect joins the room, creating it on first use.
func (t *MemoryTransport) Connect(ctx context.Context, roomKey string) (Handle, error) {
	if roomKey == "" {
		return nil, fmt.Errorf("room key cannot be empty")
	}
	if errp := t.connectErr.Load(); errp != nil {
		return nil, fmt.Errorf("failed to connect to room %s: %w", roomKey, *errp)
	}

	t.mu.Lock()
	r, ok := t.rooms[roomKey]
	if !ok {
		r = &memoryRoom{
			entries:     make(map[string]Payload),
			subscribers: make(map[*memoryHandle]struct{}),
		}
		t.rooms[roomKey] = r
	}
	t.mu.Unlock()

	h := &memoryHandle{
		room:   r,
		tag:    uuid.New().String(),
		states: make(chan State, 16),
		notify: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	r.subscribe(h)
	go h.run()
	h.signal()

	return h, nil
}

// Snapshot returns the current state of a room without connecting to it.
func (t *MemoryTransport) Snapshot(roomKey string) State {
	t.mu.Lock()
	r, ok := t.rooms[roomKey]
	t.mu.Unlock()
	if !ok {
		return State{}
	}
	return r.snapshot()
}

type memoryRoom struct {
	mu          sync.Mutex
	entries     map[string]Payload
	subscribers map[*memoryHandle]struct{}
}

func (r *memoryRoom) subscribe(h *memoryHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[h] = struct{}{}
}

func (r *memoryRoom) unsubscribe(h *memoryHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, h)
}

func (r *memoryRoom) snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return NewState(r.entries)
}

// set stores or deletes an entry, then wakes every subscriber.
func (r *memoryRoom) set(tag string, payload *Payload) {
	r.mu.Lock()
	if payload == nil {
		delete(r.entries, tag)
	} else {
		r.entries[tag] = *payload
	}
	subs := make([]*memoryHandle, 0, len(r.subscribers))
	for h := range r.subscribers {
		subs = append(subs, h)
	}
	r.mu.Unlock()

	for _, h := range subs {
		h.signal()
	}
}

type memoryHandle struct {
	room   *memoryRoom
	tag    string
	states chan State
	notify chan struct{}
	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

func (h *memoryHandle) Tag() string {
	return h.tag
}

func (h *memoryHandle) States() <-chan State {
	return h.states
}

func (h *memoryHandle) Publish(ctx context.Context, payload Payload) error {
	if h.closed.Load() {
		return ErrClosed
	}
	h.room.set(h.tag, &payload)
	return nil
}

func (h *memoryHandle) Withdraw(ctx context.Context) error {
	h.room.set(h.tag, nil)
	return nil
}

func (h *memoryHandle) Close() error {
	h.once.Do(func() {
		h.closed.Store(true)
		h.room.unsubscribe(h)
		close(h.quit)
	})
	<-h.done
	return nil
}

// signal coalesces change notifications; the reader always sends the latest state.
func (h *memoryHandle) signal() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *memoryHandle) run() {
	defer close(h.done)
	defer close(h.states)

	for {
		select {
		case <-h.quit:
			return
		case <-h.notify:
			select {
			case h.states <- h.room.snapshot():
			case <-h.quit:
				return
			}
		}
	}
}
