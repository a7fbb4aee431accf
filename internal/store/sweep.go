package store

import (
	"sort"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

func sweepable(e *model.Entry, now time.Time) bool {
	switch e.Status {
	case model.StatusDeleted, model.StatusExpired:
		return true
	}
	return e.ExpiredAt(now)
}

// Sweep removes entries that are deleted, expired, or past their explicit or
// TTL-derived expiry, and returns how many it removed.
//
// The table is scanned under the read lock; removals then happen in batches
// of SweepBatch under the write lock, re-checking each entry, so readers are
// never blocked for a full scan and never see a half-removed entry. Entries
// failing integrity checks during the scan are logged and marked invalid;
// they never stop the sweep. Calling Sweep again removes nothing new.
func (s *IndexedStore) Sweep() int {
	now := s.clock.Now()

	var doomed []string
	var suspect []string
	s.mu.RLock()
	for id, e := range s.entries {
		if sweepable(e, now) {
			doomed = append(doomed, id)
			continue
		}
		if !e.IsValid {
			continue
		}
		if len(validateEntry(e, now)) > 0 {
			suspect = append(suspect, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(doomed)

	removed := 0
	for start := 0; start < len(doomed); start += s.sweepBatch {
		end := min(start+s.sweepBatch, len(doomed))
		s.mu.Lock()
		for _, id := range doomed[start:end] {
			e, ok := s.entries[id]
			if !ok || !sweepable(e, now) {
				continue
			}
			s.removeLocked(e)
			removed++
		}
		s.mu.Unlock()
	}

	invalid := s.flagInvalid(suspect, now)

	if removed > 0 || invalid > 0 {
		s.log.Info("sweep finished", "removed", removed, "invalid", invalid)
	}
	return removed
}

// flagInvalid re-validates the suspect entries under the write lock and
// marks those still failing. An entry repaired by an update after the scan
// is left valid.
func (s *IndexedStore) flagInvalid(ids []string, now time.Time) int {
	if len(ids) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok || !e.IsValid {
			continue
		}
		if v := validateEntry(e, now); len(v) > 0 {
			s.markInvalidLocked(e, v)
			n++
		}
	}
	return n
}
