// Package idgen generates random, time-salted identifiers and random picks.
// A Source can be seeded so tests get deterministic values.
package idgen

import (
	crand "crypto/rand"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source is safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns a Source seeded from crypto/rand.
func New() *Source {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return &Source{
		rng: rand.New(rand.NewChaCha8(seed)),
		now: time.Now,
	}
}

// NewSeeded returns a deterministic Source. now may be nil for time.Now.
func NewSeeded(seed uint64, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
}

// ID returns prefix + "_" + 10 random base36 chars + the last 4 base36 chars of
// the current Unix millisecond time, e.g. "doc_k3j9x0q2mb1lz8".
func (s *Source) ID(prefix string) string {
	s.mu.Lock()
	random := s.rng.Uint64()
	now := s.now()
	s.mu.Unlock()

	r := strconv.FormatUint(random, 36)
	if len(r) < 10 {
		r = strings.Repeat("0", 10-len(r)) + r
	}
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > 4 {
		ts = ts[len(ts)-4:]
	}

	id := r[:10] + ts
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// IntN returns a random int in [0, n).
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Pick returns a random element of options. options must not be empty.
func (s *Source) Pick(options []string) string {
	return options[s.IntN(len(options))]
}
