// Package store provides the indexed in-memory entry store.
//
// The store owns the canonical entry table. Every secondary index (by user,
// type, tag, keyword and record id) holds entry ids only and can be rebuilt
// from the table at any time.
package store

import (
	"errors"
	"log/slog"
	"time"

	"github.com/rcliao/memindex/internal/clock"
	"github.com/rcliao/memindex/internal/model"
)

var (
	// ErrNotFound means the entry is absent or not owned by the caller.
	ErrNotFound = errors.New("entry not found")
	// ErrCapacityExceeded means the user's active-entry quota is used up.
	ErrCapacityExceeded = errors.New("per-user capacity exceeded")
	// ErrIntegrityViolation means an entry failed checksum or consistency checks.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrInvalidTransition means the requested status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidRecord means a record breaks the record invariants.
	ErrInvalidRecord = errors.New("invalid record")
)

// DefaultMaxEntriesPerUser is the per-user active-entry quota.
const DefaultMaxEntriesPerUser = 10000

// DefaultSweepBatch bounds how many removals a sweep performs per lock hold.
const DefaultSweepBatch = 256

// Filter holds the hard filters applied when selecting search candidates.
type Filter struct {
	Types           []model.MemoryType
	Tags            []string // all must be present, case-insensitive
	From            *time.Time
	To              *time.Time
	IncludeArchived bool
}

// Options configures an IndexedStore.
type Options struct {
	MaxEntriesPerUser int
	SweepBatch        int
	TTL               TTLPolicy
	Clock             clock.Clock
	Logger            *slog.Logger
}

// Store defines the entry storage interface.
type Store interface {
	// Put inserts or replaces an entry by entry id.
	Put(e *model.Entry) error

	// Get returns a copy of the entry if userID owns it and it is readable.
	// It records a read access as a side effect.
	Get(userID, entryID string, includeArchived bool) (*model.Entry, bool)

	// Remove deletes an entry from the table and all indices.
	Remove(entryID string) error

	// ForUser returns the ids of every entry owned by userID.
	ForUser(userID string) []string

	// Candidates returns copies of the user's readable entries matching f.
	Candidates(userID string, f Filter) []*model.Entry

	// Validate returns every invariant the entry violates.
	Validate(e *model.Entry) []string

	// Sweep removes expired and deleted entries and returns how many went.
	Sweep() int
}
