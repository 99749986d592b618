package presence

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/pkg/room"
)

const waitTimeout = 3 * time.Second

var (
	ava  = identity.Identity{ID: "user_ava", Name: "Ava Gray", Color: "#ef4444"}
	noah = identity.Identity{ID: "user_noah", Name: "Noah Wren", Color: "#3b82f6"}
)

// fastOptions heartbeats quickly so reconnect and expiry tests finish fast.
func fastOptions() Options {
	return Options{HeartbeatInterval: 20 * time.Millisecond}
}

// waitForSnapshot reads ch until match returns true.
func waitForSnapshot(t *testing.T, ch <-chan Snapshot, match func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("updates closed before a matching snapshot arrived")
			}
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

// waitForUpdate reads ch until match returns true.
func waitForUpdate(t *testing.T, ch <-chan Update, match func(Update) bool) Update {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				t.Fatal("updates closed before a matching update arrived")
			}
			if match(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for update")
		}
	}
}

func userIDs(state room.State) []string {
	ids := []string{}
	for _, e := range state {
		if e.Payload.User != nil {
			ids = append(ids, e.Payload.User.ID)
		}
	}
	return ids
}

func shownIDs(f Facepile) []string {
	ids := make([]string, len(f.Shown))
	for i, id := range f.Shown {
		ids[i] = id.ID
	}
	return ids
}

// fakeClock is safe to read from channel goroutines.
type fakeClock struct {
	ms atomic.Int64
}

func newFakeClock(start time.Time) *fakeClock {
	c := &fakeClock{}
	c.ms.Store(start.UnixMilli())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.UnixMilli(c.ms.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.ms.Add(d.Milliseconds())
}
