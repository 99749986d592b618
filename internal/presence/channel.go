package presence

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/pkg/room"
)

// Snapshot is the room state as of one notification, tagged with the document
// the channel was opened for.
type Snapshot struct {
	DocumentID string
	State      room.State
}

// Channel is one participant's presence in one document's room. It publishes
// the local identity, keeps it fresh with heartbeats and reports every state
// change on Updates. Transport failures are logged and never surface as
// errors: a channel that cannot reach its room reports an empty state and
// keeps retrying on each heartbeat.
type Channel struct {
	transport  room.Transport
	documentID string
	roomKey    string
	user       *room.User
	opts       Options

	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	handle room.Handle
	raw    room.State
	state  room.State
	clock  uint64
}

// Open joins the room of documentID and announces self. It only fails for a
// blank document ID; an unreachable transport yields a degraded channel.
func Open(ctx context.Context, transport room.Transport, documentID string, self identity.Identity, opts Options) (*Channel, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID cannot be empty")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		transport:  transport,
		documentID: documentID,
		roomKey:    room.Key(documentID),
		user:       self.RoomUser(),
		opts:       opts.withDefaults(),
		updates:    make(chan Snapshot, 16),
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      room.State{},
	}

	if !c.connect(ctx) {
		c.emit(Snapshot{DocumentID: documentID, State: room.State{}})
	}
	go c.run(runCtx)

	return c, nil
}

// DocumentID returns the document this channel was opened for.
func (c *Channel) DocumentID() string {
	return c.documentID
}

// Updates delivers a Snapshot after every observed change, oldest first. A
// consumer that falls behind loses intermediate snapshots, never the latest.
// Closed after Close.
func (c *Channel) Updates() <-chan Snapshot {
	return c.updates
}

// State returns the last known fresh state. It may be empty or stale while
// the transport is unreachable.
func (c *Channel) State() room.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Tag returns the connection tag the local identity is published under, or ""
// while disconnected.
func (c *Channel) Tag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ""
	}
	return c.handle.Tag()
}

// Close withdraws the local publication and releases the room. The withdrawal
// has been issued by the time Close returns. Safe to call more than once.
func (c *Channel) Close() error {
	c.once.Do(func() {
		c.cancel()
		<-c.done

		c.mu.Lock()
		h := c.handle
		c.handle = nil
		c.mu.Unlock()
		if h == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), withdrawTimeout)
		defer cancel()
		if err := h.Withdraw(ctx); err != nil {
			log.Printf("[Presence] Failed to withdraw from %s: %v", c.roomKey, err)
		}
		if err := h.Close(); err != nil {
			log.Printf("[Presence] Failed to release %s: %v", c.roomKey, err)
		}
	})
	return nil
}

// connect acquires a handle and publishes self. Returns false if the room is
// unreachable.
func (c *Channel) connect(ctx context.Context) bool {
	h, err := c.transport.Connect(ctx, c.roomKey)
	if err != nil {
		log.Printf("[Presence] Room %s unreachable, will retry: %v", c.roomKey, err)
		return false
	}

	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()

	c.publish(ctx)
	return true
}

func (c *Channel) publish(ctx context.Context) {
	c.mu.Lock()
	h := c.handle
	c.clock++
	payload := room.Payload{
		User:        c.user,
		Clock:       c.clock,
		UpdatedAtMs: c.opts.Now().UnixMilli(),
	}
	c.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Publish(ctx, payload); err != nil {
		log.Printf("[Presence] Failed to publish to %s: %v", c.roomKey, err)
	}
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.updates)

	var tick <-chan time.Time
	if c.opts.HeartbeatInterval > 0 {
		ticker := time.NewTicker(c.opts.HeartbeatInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var states <-chan room.State
		c.mu.Lock()
		if c.handle != nil {
			states = c.handle.States()
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return

		case state, ok := <-states:
			if !ok {
				c.dropHandle()
				continue
			}
			c.apply(state)

		case <-tick:
			c.heartbeat(ctx)
		}
	}
}

// heartbeat refreshes the local entry (reconnecting first if needed) and
// expires entries that stopped heartbeating.
func (c *Channel) heartbeat(ctx context.Context) {
	c.mu.Lock()
	connected := c.handle != nil
	c.mu.Unlock()

	if connected {
		c.publish(ctx)
	} else if c.connect(ctx) {
		log.Printf("[Presence] Reconnected to %s", c.roomKey)
	}

	c.mu.Lock()
	fresh := c.raw.Fresh(c.opts.Now(), c.opts.StaleAfter)
	changed := !slices.Equal(fresh.Tags(), c.state.Tags())
	if changed {
		c.state = fresh
	}
	c.mu.Unlock()

	if changed {
		c.emit(Snapshot{DocumentID: c.documentID, State: fresh.Clone()})
	}
}

func (c *Channel) apply(state room.State) {
	c.mu.Lock()
	c.raw = state
	fresh := state.Fresh(c.opts.Now(), c.opts.StaleAfter)
	c.state = fresh
	c.mu.Unlock()

	c.emit(Snapshot{DocumentID: c.documentID, State: fresh.Clone()})
}

// dropHandle forgets a handle whose stream ended. The last known state is
// kept; the next heartbeat reconnects.
func (c *Channel) dropHandle() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	if h != nil {
		log.Printf("[Presence] Lost room %s, will reconnect", c.roomKey)
		_ = h.Close()
	}
}

// emit sends s, discarding the oldest queued snapshot if the consumer is
// behind. Only the run goroutine (and Open, before it starts) calls emit.
func (c *Channel) emit(s Snapshot) {
	for {
		select {
		case c.updates <- s:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}
