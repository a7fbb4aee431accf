package store

import (
	"fmt"
	"sort"

	"github.com/rcliao/memindex/internal/model"
)

// Export returns copies of every entry not yet deleted, optionally filtered
// by user. Entries are ordered by user, creation time and entry id.
func (s *IndexedStore) Export(userID string) []model.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if userID != "" {
		ids = s.idx.byUser[userID].sorted()
	} else {
		for id := range s.entries {
			ids = append(ids, id)
		}
	}

	out := make([]model.Entry, 0, len(ids))
	for _, id := range ids {
		e := s.entries[id]
		if e.Status == model.StatusDeleted {
			continue
		}
		out = append(out, *e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Memory.UserID != b.Memory.UserID {
			return a.Memory.UserID < b.Memory.UserID
		}
		if !a.Memory.CreatedAt.Equal(b.Memory.CreatedAt) {
			return a.Memory.CreatedAt.Before(b.Memory.CreatedAt)
		}
		return a.EntryID < b.EntryID
	})
	return out
}

// Import stores exported entries; capacity applies as for Put. An entry
// whose checksum no longer matches is still stored, marked invalid with the
// mismatch recorded, and logged. Import stops at the first Put failure and
// reports how many entries were stored before it.
func (s *IndexedStore) Import(entries []model.Entry) (int, error) {
	imported := 0
	for i := range entries {
		e := entries[i].Clone()
		if got := Checksum(&e.Memory); got != e.Checksum {
			v := fmt.Sprintf("checksum mismatch on import: stored %.12s, computed %.12s", e.Checksum, got)
			e.IsValid = false
			e.ValidationErrors = append(e.ValidationErrors, v)
			s.log.Warn("imported entry failed validation",
				"entry", e.EntryID, "user", e.Memory.UserID, "violation", v)
		}
		if err := s.Put(e); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
