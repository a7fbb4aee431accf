package manager

import (
	"github.com/rcliao/memindex/internal/cache"
	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/store"
)

// Stats combines store and cache statistics.
type Stats struct {
	Store    *store.Stats `json:"store"`
	Cache    cache.Stats  `json:"cache"`
	Contexts int          `json:"contexts"`
}

// Sweep removes expired and deleted entries now and drops stale cache
// items. It returns how many entries were removed.
func (m *Manager) Sweep() Result[int] {
	if err := m.ready(); err != nil {
		return fail[int](err)
	}
	return succeed(m.sweep())
}

func (m *Manager) sweep() int {
	removed := m.store.Sweep()
	if removed > 0 {
		m.cache.ClearByTags(searchTag, recordTag)
	}
	m.cache.Cleanup()
	return removed
}

// VerifyMemory re-checks the integrity of the user's memory. On violations
// the memory is marked invalid and the violations are returned alongside an
// IntegrityViolation failure.
func (m *Manager) VerifyMemory(userID, memoryID string) Result[[]string] {
	if err := m.ready(); err != nil {
		return fail[[]string](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return fail[[]string](notFound(memoryID))
	}
	if e, ok := m.store.Lookup(entryID); !ok || e.UserID() != userID {
		return fail[[]string](notFound(memoryID))
	}
	violations, err := m.store.Verify(entryID)
	if err != nil {
		r := fail[[]string](err)
		r.Value = violations
		return r
	}
	return succeed([]string{})
}

// Stats returns current statistics.
func (m *Manager) Stats() Result[*Stats] {
	if err := m.ready(); err != nil {
		return fail[*Stats](err)
	}
	return succeed(&Stats{
		Store:    m.store.Stats(),
		Cache:    m.cache.Stats(),
		Contexts: m.contexts.Len(),
	})
}

// Export returns a snapshot of the stored entries, for one user or all
// when userID is empty.
func (m *Manager) Export(userID string) Result[[]model.Entry] {
	if err := m.ready(); err != nil {
		return fail[[]model.Entry](err)
	}
	return succeed(m.store.Export(userID))
}

// Import stores previously exported entries. Entries failing their
// checksum are kept but marked invalid. It stops at the first entry that
// fails its capacity check; Value reports how many were imported before it.
func (m *Manager) Import(entries []model.Entry) Result[int] {
	if err := m.ready(); err != nil {
		return fail[int](err)
	}
	n, err := m.store.Import(entries)
	if n > 0 {
		m.cache.ClearByTags(searchTag)
	}
	if err != nil {
		r := fail[int](err)
		r.Value = n
		return r
	}
	if n > 0 {
		m.log.Info("entries imported", "count", n)
	}
	return succeed(n)
}
