package room

import "fmt"

// Redis key pattern helpers
//
// Key pattern: docroom:{namespace}:{room_key}:awareness
// Channel pattern: docroom:{namespace}:{room_key}:awareness_events

// AwarenessKey returns the Redis key of a room's state hash.
// Pattern: docroom:{namespace}:{room_key}:awareness
func AwarenessKey(namespace, roomKey string) string {
	return fmt.Sprintf("docroom:%s:%s:awareness", namespace, roomKey)
}

// AwarenessEventsChannel returns the Pub/Sub channel announcing room state changes.
// Pattern: docroom:{namespace}:{room_key}:awareness_events
func AwarenessEventsChannel(namespace, roomKey string) string {
	return fmt.Sprintf("docroom:%s:%s:awareness_events", namespace, roomKey)
}
