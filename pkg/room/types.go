package room

import (
	"context"
	"sort"
	"time"
)

// KeyPrefix is the fixed namespace prefix for room keys.
const KeyPrefix = "room-"

// Key returns the room key for a document. The mapping is deterministic and
// case-sensitive: the same document ID always yields the same room, and distinct
// IDs never collide.
func Key(documentID string) string {
	return KeyPrefix + documentID
}

// User is the identity announcement a participant publishes into a room.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Payload is the ephemeral state one connection publishes into a room.
// A payload without a User belongs to a connection that has not announced
// itself yet.
type Payload struct {
	User        *User  `json:"user,omitempty"`
	Clock       uint64 `json:"clock"`         // Incremented by the publisher on every publish
	UpdatedAtMs int64  `json:"updated_at_ms"` // Unix milliseconds of the publish
}

// Entry is a single connection's published payload.
type Entry struct {
	Tag     string  `json:"tag"`
	Payload Payload `json:"payload"`
}

// State is the full room state in delivery order: oldest publish first, so the
// last entry for any participant is the most recently observed one.
type State []Entry

// NewState builds a State from a tag -> payload mapping. Entries are ordered by
// publish time, then clock, then tag, which makes the result deterministic for a
// given mapping.
func NewState(entries map[string]Payload) State {
	state := make(State, 0, len(entries))
	for tag, payload := range entries {
		state = append(state, Entry{Tag: tag, Payload: payload})
	}
	sort.Slice(state, func(i, j int) bool {
		a, b := state[i].Payload, state[j].Payload
		if a.UpdatedAtMs != b.UpdatedAtMs {
			return a.UpdatedAtMs < b.UpdatedAtMs
		}
		if a.Clock != b.Clock {
			return a.Clock < b.Clock
		}
		return state[i].Tag < state[j].Tag
	})
	return state
}

// Fresh returns the entries published within maxAge of now, preserving order.
// A non-positive maxAge disables expiry.
func (s State) Fresh(now time.Time, maxAge time.Duration) State {
	if maxAge <= 0 {
		return s.Clone()
	}
	cutoff := now.Add(-maxAge).UnixMilli()
	fresh := make(State, 0, len(s))
	for _, e := range s {
		if e.Payload.UpdatedAtMs >= cutoff {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

// Clone returns a copy of the state that shares no slice memory with s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Tags returns the connection tags in state order.
func (s State) Tags() []string {
	tags := make([]string, len(s))
	for i, e := range s {
		tags[i] = e.Tag
	}
	return tags
}

// Transport opens room handles.
type Transport interface {
	// Connect joins the room and returns a handle. The handle delivers the
	// current room state as its first States() value.
	Connect(ctx context.Context, roomKey string) (Handle, error)
}

// Handle is one connection to a room. Each handle owns its own connection tag,
// so several handles for the same room (e.g. the presence view and the editor)
// coexist without interfering.
type Handle interface {
	// Tag returns the ephemeral connection tag this handle publishes under.
	Tag() string

	// Publish replaces this handle's entry in the room state.
	Publish(ctx context.Context, payload Payload) error

	// Withdraw removes this handle's entry from the room state.
	Withdraw(ctx context.Context) error

	// States delivers the full room state after every change, in the order
	// the transport observed the changes. Closed when the handle is closed.
	States() <-chan State

	// Close releases the handle. Safe to call multiple times.
	Close() error
}
