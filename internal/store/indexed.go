package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/memindex/internal/clock"
	"github.com/rcliao/memindex/internal/model"
)

// IndexedStore implements Store in memory. A single RWMutex guards the
// canonical table and every index; readers that only traverse take the read
// lock, anything that mutates (including the access bump in Get) takes the
// write lock.
type IndexedStore struct {
	mu      sync.RWMutex
	entries map[string]*model.Entry
	idx     *indices

	maxPerUser int
	sweepBatch int
	ttl        TTLPolicy
	clock      clock.Clock
	log        *slog.Logger
}

var _ Store = (*IndexedStore)(nil)

// New creates an empty store.
func New(opts Options) *IndexedStore {
	if opts.MaxEntriesPerUser <= 0 {
		opts.MaxEntriesPerUser = DefaultMaxEntriesPerUser
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = DefaultSweepBatch
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IndexedStore{
		entries:    make(map[string]*model.Entry),
		idx:        newIndices(),
		maxPerUser: opts.MaxEntriesPerUser,
		sweepBatch: opts.SweepBatch,
		ttl:        opts.TTL.withDefaults(),
		clock:      opts.Clock,
		log:        opts.Logger.With("component", "store"),
	}
}

// TTL returns the store's expiry policy.
func (s *IndexedStore) TTL() TTLPolicy { return s.ttl }

// MaxEntriesPerUser returns the per-user active-entry quota.
func (s *IndexedStore) MaxEntriesPerUser() int { return s.maxPerUser }

// NewEntry wraps a record in a fresh active entry at version 1 with a
// checksum and a TTL-derived expiry. The entry is not stored.
func (s *IndexedStore) NewEntry(entryID string, m model.Memory) *model.Entry {
	now := s.clock.Now()
	expiry := s.ttl.Expiry(&m, now)
	return &model.Entry{
		EntryID:     entryID,
		Memory:      m,
		Status:      model.StatusActive,
		Version:     1,
		Checksum:    Checksum(&m),
		IsValid:     true,
		CacheKey:    "record:" + m.ID,
		CacheExpiry: &expiry,
		Access: model.AccessInfo{
			LastAccessedAt: now,
			Pattern:        model.AccessWrite,
		},
	}
}

// Put inserts or replaces an entry by entry id. A new entry is refused with
// ErrCapacityExceeded when its owner already has MaxEntriesPerUser active
// entries; a refused put changes nothing.
func (s *IndexedStore) Put(e *model.Entry) error {
	if e == nil || e.EntryID == "" {
		return fmt.Errorf("put: entry id is required")
	}
	if e.Memory.UserID == "" {
		return fmt.Errorf("put %s: user id is required", e.EntryID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, replacing := s.entries[e.EntryID]
	if !replacing || old.Memory.UserID != e.Memory.UserID {
		if n := s.activeCountLocked(e.Memory.UserID); n >= s.maxPerUser {
			return fmt.Errorf("put %s for user %s (%d/%d): %w",
				e.EntryID, e.Memory.UserID, n, s.maxPerUser, ErrCapacityExceeded)
		}
	}
	if owner, ok := s.idx.byRecord[e.Memory.ID]; ok && owner != e.EntryID {
		return fmt.Errorf("put %s: record %s already stored as entry %s", e.EntryID, e.Memory.ID, owner)
	}

	stored := e.Clone()
	if replacing {
		s.idx.remove(old)
	}
	s.entries[stored.EntryID] = stored
	s.idx.add(stored)
	return nil
}

func (s *IndexedStore) activeCountLocked(userID string) int {
	n := 0
	for id := range s.idx.byUser[userID] {
		if s.entries[id].Status == model.StatusActive {
			n++
		}
	}
	return n
}

// ActiveCount returns how many active entries userID owns.
func (s *IndexedStore) ActiveCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked(userID)
}

// Get returns a copy of the entry when userID owns it and it is readable.
// Absent, foreign, deleted, expired and (unless includeArchived) archived
// entries all report not found. A hit records a read access.
func (s *IndexedStore) Get(userID, entryID string, includeArchived bool) (*model.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok || e.Memory.UserID != userID {
		return nil, false
	}
	now := s.clock.Now()
	if e.Status == model.StatusActive && e.ExpiredAt(now) {
		e.Status = model.StatusExpired
		s.log.Debug("entry expired on read", "entry", entryID, "user", userID)
		return nil, false
	}
	if !e.Visible(now, includeArchived) {
		return nil, false
	}

	e.Access.Count++
	e.Access.Pattern = model.AccessRead
	e.Access.LastAccessedAt = now
	e.Memory.AccessCount++
	return e.Clone(), true
}

// Lookup returns a copy of the entry regardless of owner or status, without
// recording an access. It is meant for diagnostics.
func (s *IndexedStore) Lookup(entryID string) (*model.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// EntryIDForRecord resolves a record id to the id of the entry wrapping it.
func (s *IndexedStore) EntryIDForRecord(recordID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idx.byRecord[recordID]
	return id, ok
}

// Remove deletes an entry from the table and every index.
func (s *IndexedStore) Remove(entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok {
		return fmt.Errorf("remove %s: %w", entryID, ErrNotFound)
	}
	s.removeLocked(e)
	return nil
}

func (s *IndexedStore) removeLocked(e *model.Entry) {
	s.idx.remove(e)
	delete(s.entries, e.EntryID)
}

// ForUser returns the ids of every entry userID owns, sorted.
func (s *IndexedStore) ForUser(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.byUser[userID].sorted()
}

// Candidates returns copies of the user's readable entries that pass the
// hard filters. Selection starts from the user index and intersects the
// type and tag indices; the whole table is never scanned.
func (s *IndexedStore) Candidates(userID string, f Filter) []*model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.idx.byUser[userID]
	if !ok {
		return nil
	}
	sets := []idSet{user}
	if len(f.Types) > 0 {
		types := make(idSet)
		for _, t := range f.Types {
			for id := range s.idx.byType[t] {
				types.add(id)
			}
		}
		sets = append(sets, types)
	}
	for _, tag := range f.Tags {
		sets = append(sets, s.idx.byTag[normalizeTerm(tag)])
	}

	// Drive the intersection from the smallest set.
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })

	now := s.clock.Now()
	var out []*model.Entry
	for id := range sets[0] {
		if !inAll(id, sets[1:]) {
			continue
		}
		e := s.entries[id]
		if !e.Visible(now, f.IncludeArchived) || !inRange(e.Memory.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out
}

func inAll(id string, sets []idSet) bool {
	for _, set := range sets {
		if !set.has(id) {
			return false
		}
	}
	return true
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// Update applies fn to a copy of the user's record and, if fn succeeds and
// the result is well formed, stores it as a new version: UpdatedAt, checksum
// and TTL expiry are refreshed and the entry is re-indexed. Entries already
// marked invalid are refused rather than silently re-checksummed.
func (s *IndexedStore) Update(userID, entryID string, fn func(m *model.Memory) error) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	now := s.clock.Now()
	if !ok || e.Memory.UserID != userID || !e.Visible(now, true) {
		return nil, fmt.Errorf("update %s: %w", entryID, ErrNotFound)
	}
	if !e.IsValid {
		return nil, fmt.Errorf("update %s: entry marked invalid: %w", entryID, ErrIntegrityViolation)
	}

	next := e.Memory.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID = e.Memory.ID
	next.UserID = e.Memory.UserID
	next.CreatedAt = e.Memory.CreatedAt
	next.UpdatedAt = now
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}
	if violations := next.Check(); len(violations) > 0 {
		return nil, fmt.Errorf("update %s: %s: %w", entryID, strings.Join(violations, "; "), ErrInvalidRecord)
	}

	s.idx.remove(e)
	e.Memory = next
	e.Version++
	e.Checksum = Checksum(&e.Memory)
	expiry := s.ttl.Expiry(&e.Memory, now)
	e.CacheExpiry = &expiry
	e.Access.Pattern = model.AccessUpdate
	e.Access.LastAccessedAt = now
	s.idx.add(e)
	return e.Clone(), nil
}

// Transition moves the user's entry to status to, following the status
// state machine. Reactivating an archived entry that is past its expiry is
// refused.
func (s *IndexedStore) Transition(userID, entryID string, to model.Status) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(userID, entryID, to)
}

// Delete moves the user's entry to deleted and removes it physically under
// one lock hold, so no sweep can remove it in between.
func (s *IndexedStore) Delete(userID, entryID string) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.transitionLocked(userID, entryID, model.StatusDeleted)
	if err != nil {
		return nil, err
	}
	if cur, ok := s.entries[entryID]; ok {
		s.removeLocked(cur)
	}
	return e, nil
}

func (s *IndexedStore) transitionLocked(userID, entryID string, to model.Status) (*model.Entry, error) {
	e, ok := s.entries[entryID]
	if !ok || e.Memory.UserID != userID || e.Status == model.StatusDeleted {
		return nil, fmt.Errorf("transition %s: %w", entryID, ErrNotFound)
	}
	now := s.clock.Now()
	if !e.Status.CanTransition(to) || (to == model.StatusActive && e.ExpiredAt(now)) {
		return nil, fmt.Errorf("transition %s from %s to %s: %w", entryID, e.Status, to, ErrInvalidTransition)
	}

	e.Status = to
	e.Version++
	e.Access.LastAccessedAt = now
	e.Access.Pattern = model.AccessUpdate
	if to == model.StatusDeleted {
		e.Access.Pattern = model.AccessDelete
	}
	return e.Clone(), nil
}
