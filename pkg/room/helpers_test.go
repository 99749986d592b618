package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// waitForState reads states from h until match returns true or the timeout fires.
func waitForState(t *testing.T, h Handle, match func(State) bool) State {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case st, ok := <-h.States():
			require.True(t, ok, "states channel closed before a matching state arrived")
			if match(st) {
				return st
			}
		case <-timeout:
			t.Fatalf("timed out waiting for room state")
			return nil
		}
	}
}

func hasTag(tag string) func(State) bool {
	return func(s State) bool {
		for _, e := range s {
			if e.Tag == tag {
				return true
			}
		}
		return false
	}
}

func lacksTag(tag string) func(State) bool {
	return func(s State) bool { return !hasTag(tag)(s) }
}
