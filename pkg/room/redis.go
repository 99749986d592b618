package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrClosed is returned when publishing through a handle that has been closed.
var ErrClosed = errors.New("room handle closed")

// DefaultStateTTL bounds how long an abandoned room hash survives in Redis.
// Every publish refreshes it.
const DefaultStateTTL = 24 * time.Hour

// RedisTransport provides namespaced room handles backed by Redis.
// Room state lives in a hash; changes are announced over Pub/Sub.
// The transport is safe for concurrent use.
type RedisTransport struct {
	rdb       *redis.Client
	namespace string
	stateTTL  time.Duration
}

// NewRedisTransport creates a transport for the given namespace.
// Returns an error if namespace is empty.
func NewRedisTransport(redisOpts *redis.Options, namespace string) (*RedisTransport, error) {
	return NewRedisTransportWithClient(redis.NewClient(redisOpts), namespace)
}

// NewRedisTransportWithClient creates a transport from an existing Redis client.
func NewRedisTransportWithClient(client *redis.Client, namespace string) (*RedisTransport, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisTransport{
		rdb:       client,
		namespace: namespace,
		stateTTL:  DefaultStateTTL,
	}, nil
}

// Close closes the Redis connection. Handles must be closed first.
func (t *RedisTransport) Close() error {
	return t.rdb.Close()
}

// Ping verifies Redis connectivity.
func (t *RedisTransport) Ping(ctx context.Context) error {
	return t.rdb.Ping(ctx).Err()
}

// Connect subscribes to the room's event channel and returns a handle.
// The subscription is confirmed before Connect returns, so no change made after
// that point is missed. The handle's first States() value is the current state.
func (t *RedisTransport) Connect(ctx context.Context, roomKey string) (Handle, error) {
	if roomKey == "" {
		return nil, fmt.Errorf("room key cannot be empty")
	}

	pubsub := t.rdb.Subscribe(ctx, AwarenessEventsChannel(t.namespace, roomKey))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	// The handle outlives the connect context; Close() cancels it.
	subCtx, cancel := context.WithCancel(context.Background())
	h := &redisHandle{
		transport: t,
		roomKey:   roomKey,
		tag:       uuid.New().String(),
		states:    make(chan State, 16),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go h.run(subCtx, pubsub)

	return h, nil
}

// readState loads and decodes the room hash. Undecodable fields are skipped.
func (t *RedisTransport) readState(ctx context.Context, roomKey string) (State, error) {
	raw, err := t.rdb.HGetAll(ctx, AwarenessKey(t.namespace, roomKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room state from Redis: %w", err)
	}

	entries := make(map[string]Payload, len(raw))
	for tag, data := range raw {
		var payload Payload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			log.Printf("[Room] Skipping malformed entry %s in %s: %v", tag, roomKey, err)
			continue
		}
		entries[tag] = payload
	}
	return NewState(entries), nil
}

type redisHandle struct {
	transport *RedisTransport
	roomKey   string
	tag       string
	states    chan State
	cancel    context.CancelFunc
	done      chan struct{}
	closed    atomic.Bool
	once      sync.Once
}

func (h *redisHandle) Tag() string {
	return h.tag
}

func (h *redisHandle) States() <-chan State {
	return h.states
}

// Publish writes this handle's payload to the room hash and announces the change.
func (h *redisHandle) Publish(ctx context.Context, payload Payload) error {
	if h.closed.Load() {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	t := h.transport
	key := AwarenessKey(t.namespace, h.roomKey)
	if err := t.rdb.HSet(ctx, key, h.tag, data).Err(); err != nil {
		return fmt.Errorf("failed to write payload to Redis: %w", err)
	}
	if err := t.rdb.PExpire(ctx, key, t.stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh room state TTL: %w", err)
	}

	return h.announce(ctx)
}

// Withdraw deletes this handle's entry and announces the change.
// Withdrawing after Close is allowed so callers can release in either order.
func (h *redisHandle) Withdraw(ctx context.Context) error {
	t := h.transport
	if err := t.rdb.HDel(ctx, AwarenessKey(t.namespace, h.roomKey), h.tag).Err(); err != nil {
		return fmt.Errorf("failed to withdraw payload from Redis: %w", err)
	}
	return h.announce(ctx)
}

func (h *redisHandle) announce(ctx context.Context) error {
	t := h.transport
	if err := t.rdb.Publish(ctx, AwarenessEventsChannel(t.namespace, h.roomKey), h.tag).Err(); err != nil {
		return fmt.Errorf("failed to publish room event: %w", err)
	}
	return nil
}

// Close stops the subscription and waits for the delivery goroutine to exit.
func (h *redisHandle) Close() error {
	h.once.Do(func() {
		h.closed.Store(true)
		h.cancel()
	})
	<-h.done
	return nil
}

// run delivers the initial state, then re-reads the room on every event.
// go-redis reconnects the subscription on its own after network failures.
func (h *redisHandle) run(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
	defer close(h.states)
	defer pubsub.Close()

	if !h.deliver(ctx) {
		return
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if !h.deliver(ctx) {
				return
			}
		}
	}
}

// deliver reads the current state and sends it. Returns false once the handle
// is shutting down.
func (h *redisHandle) deliver(ctx context.Context) bool {
	state, err := h.transport.readState(ctx, h.roomKey)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// Non-fatal: the next event or heartbeat triggers another read.
		log.Printf("[Room] %v", err)
		return true
	}

	select {
	case h.states <- state:
		return true
	case <-ctx.Done():
		return false
	}
}
