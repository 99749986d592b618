package presence

import (
	"fmt"

	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/pkg/room"
)

// DefaultFacepileSize is the number of identities shown before overflowing.
const DefaultFacepileSize = 5

// Facepile is the display-ready view of a room's participants.
type Facepile struct {
	Shown         []identity.Identity `json:"shown"`
	OverflowCount int                 `json:"overflow_count"`
	TotalCount    int                 `json:"total_count"`
}

// Aggregate reduces raw room state to at most limit identities.
//
// Entries without a user are skipped. Entries sharing a user ID collapse into
// one: the last one in state order supplies the identity, the first one fixes
// its position. TotalCount counts distinct users, including the local one.
// A non-positive limit means DefaultFacepileSize.
func Aggregate(state room.State, limit int) Facepile {
	if limit <= 0 {
		limit = DefaultFacepileSize
	}

	position := make(map[string]int, len(state))
	users := make([]identity.Identity, 0, len(state))
	for _, e := range state {
		u := e.Payload.User
		if u == nil || u.ID == "" {
			continue
		}
		if i, ok := position[u.ID]; ok {
			users[i] = identity.FromRoomUser(*u)
			continue
		}
		position[u.ID] = len(users)
		users = append(users, identity.FromRoomUser(*u))
	}

	total := len(users)
	n := min(total, limit)
	shown := make([]identity.Identity, n)
	copy(shown, users[:n])

	return Facepile{
		Shown:         shown,
		OverflowCount: total - n,
		TotalCount:    total,
	}
}

// Label is the participant count caption, e.g. "3 active".
func (f Facepile) Label() string {
	return fmt.Sprintf("%d active", f.TotalCount)
}

// OverflowLabel is "+N more", or empty when nothing overflows.
func (f Facepile) OverflowLabel() string {
	if f.OverflowCount <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", f.OverflowCount)
}
