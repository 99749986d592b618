// Package identity owns the process-local session identity: created once on
// first run, persisted, and returned unchanged on every later call and restart.
package identity

import (
	"strings"

	"github.com/dyluth/docroom/internal/idgen"
	"github.com/dyluth/docroom/pkg/room"
)

// Identity is the local participant as seen by other peers.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Valid reports whether the identity carries an ID. Persisted identities that
// fail this check are treated as absent.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.ID) != ""
}

// RoomUser converts the identity to the payload published into rooms.
func (i Identity) RoomUser() *room.User {
	return &room.User{ID: i.ID, Name: i.Name, Color: i.Color}
}

// FromRoomUser converts a room announcement back to an Identity.
func FromRoomUser(u room.User) Identity {
	return Identity{ID: u.ID, Name: u.Name, Color: u.Color}
}

// Initials returns up to two upper-case initials of the display name,
// e.g. "Ava Gray" -> "AG".
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(part))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// FirstNames, LastNames and Palette are the fixed pools random identities are
// drawn from.
var (
	FirstNames = []string{"Ava", "Noah", "Liam", "Emma", "Mia", "Leo", "Zoe", "Ivy", "Max", "Eli", "Ada", "Kai", "Nia", "Sam", "Liv"}
	LastNames  = []string{"Gray", "Wren", "Vale", "Reed", "Quinn", "Knox", "Jett", "Skye", "Lane", "Bryn"}
	Palette    = []string{"#ef4444", "#f97316", "#f59e0b", "#10b981", "#06b6d4", "#3b82f6", "#8b5cf6", "#ec4899", "#14b8a6", "#84cc16"}
)

// Generator synthesizes new identities. Tests inject deterministic ones.
type Generator interface {
	NewIdentity() Identity
}

// RandomGenerator draws the name and color from the fixed pools and generates
// a random, time-salted ID.
type RandomGenerator struct {
	src *idgen.Source
}

// NewRandomGenerator returns a generator over src. A nil src uses a
// crypto-seeded source.
func NewRandomGenerator(src *idgen.Source) *RandomGenerator {
	if src == nil {
		src = idgen.New()
	}
	return &RandomGenerator{src: src}
}

func (g *RandomGenerator) NewIdentity() Identity {
	return Identity{
		ID:    g.src.ID("user"),
		Name:  g.src.Pick(FirstNames) + " " + g.src.Pick(LastNames),
		Color: g.src.Pick(Palette),
	}
}
