// Package room provides the room-scoped broadcast channel that docroom uses to
// share ephemeral presence ("awareness") state between participants viewing the
// same document.
//
// # Overview
//
// Every document maps to exactly one room. The room key is derived from the
// document ID by prefixing it with "room-":
//
//	key := room.Key("public-welcome")
//	// key = "room-public-welcome"
//
// A participant connects to a room and receives a Handle. Each handle owns an
// ephemeral connection tag (a UUID) under which it publishes a single Payload.
// Every change to the room state (a publish, a withdrawal) is announced to all
// connected handles, which then deliver the full current State on their
// States() channel. Delivery order per room is preserved.
//
// # Transports
//
// RedisTransport stores room state in a Redis hash and announces changes over
// Pub/Sub. MemoryTransport keeps state in-process and is used for tests and for
// offline sessions where no Redis server is configured.
//
// # Redis Schema
//
// All Redis keys and channels are namespaced so several docroom deployments can
// share one Redis server:
//
//	Room state:   docroom:{namespace}:{room_key}:awareness
//	Room events:  docroom:{namespace}:{room_key}:awareness_events
//
// The state hash maps connection tag -> Payload JSON. Events carry the tag of
// the handle that changed its entry; subscribers re-read the hash on every event.
package room
