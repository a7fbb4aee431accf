// Package ids generates identifiers for records, entries and contexts.
package ids

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces globally unique identifiers.
type Generator interface {
	NewID() string
}

// ULID generates lexically sortable ULIDs. Safe for concurrent use.
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULID returns a ULID generator seeded from the current time.
func NewULID() *ULID {
	return &ULID{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
}

func (g *ULID) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// UUID generates random (version 4) UUIDs.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// New returns the generator for a configured format: "ulid" (default) or "uuid".
func New(format string) (Generator, error) {
	switch format {
	case "", "ulid":
		return NewULID(), nil
	case "uuid":
		return UUID{}, nil
	}
	return nil, fmt.Errorf("unknown id format %q (use ulid or uuid)", format)
}

// Sequence yields prefix-1, prefix-2, ... and is meant for deterministic tests.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequence returns a Sequence generator with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}
