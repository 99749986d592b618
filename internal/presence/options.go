// Package presence turns a document's room into a live, deduplicated and
// capped view of who else is looking at it.
package presence

import "time"

const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultStaleAfter        = 30 * time.Second

	// withdrawTimeout bounds the withdrawal issued by Close.
	withdrawTimeout = 2 * time.Second
)

// Options tunes a presence channel. Zero values take the defaults; a negative
// HeartbeatInterval or StaleAfter disables heartbeats or expiry respectively.
type Options struct {
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	FacepileSize      int
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.StaleAfter == 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.FacepileSize <= 0 {
		o.FacepileSize = DefaultFacepileSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
