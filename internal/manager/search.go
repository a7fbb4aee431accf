package manager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rcliao/memindex/internal/cache"
	"github.com/rcliao/memindex/internal/search"
)

const (
	searchTag = "search"

	// assembleCandidates bounds how many ranked results context assembly
	// considers.
	assembleCandidates = 50
)

// SearchMemories ranks the user's memories against q. Pages are cached per
// query until the user's memories change.
func (m *Manager) SearchMemories(q search.Query) Result[*search.Page] {
	if err := m.ready(); err != nil {
		return fail[*search.Page](err)
	}
	if q.UserID == "" {
		return fail[*search.Page](fmt.Errorf("search: user id is required: %w", errInvalidInput))
	}

	key, err := searchKey(q)
	if err != nil {
		return fail[*search.Page](err)
	}
	compute := func() (*search.Page, error) { return m.engine.Search(q), nil }

	page, err := cache.RememberAs(m.cache, key, m.searchTTL, searchTags(q.UserID), compute)
	if err != nil {
		return fail[*search.Page](err)
	}
	if m.stale(page) {
		m.cache.Delete(key)
		if page, err = cache.RememberAs(m.cache, key, m.searchTTL, searchTags(q.UserID), compute); err != nil {
			return fail[*search.Page](err)
		}
	}
	return succeed(page)
}

// stale reports whether a cached page holds an entry that has since expired.
func (m *Manager) stale(p *search.Page) bool {
	now := m.clock.Now()
	for _, r := range p.Results {
		if r.Entry.ExpiredAt(now) {
			return true
		}
	}
	return false
}

// RelatedMemories returns memories sharing keywords or tags with memoryID.
func (m *Manager) RelatedMemories(userID, memoryID string, limit int) Result[[]search.Related] {
	if err := m.ready(); err != nil {
		return fail[[]search.Related](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return fail[[]search.Related](notFound(memoryID))
	}
	target, ok := m.store.Lookup(entryID)
	if !ok || target.UserID() != userID || !target.Visible(m.clock.Now(), true) {
		return fail[[]search.Related](notFound(memoryID))
	}
	return succeed(m.engine.Related(target, limit))
}

// AssembleContext ranks the user's memories against q and packs the best of
// them into a token budget.
func (m *Manager) AssembleContext(q search.Query, budget int) Result[*search.Packing] {
	if err := m.ready(); err != nil {
		return fail[*search.Packing](err)
	}
	ranked := m.engine.Rank(q)
	if len(ranked) > assembleCandidates {
		ranked = ranked[:assembleCandidates]
	}
	return succeed(search.Pack(ranked, budget))
}

func (m *Manager) invalidateSearches(userID string) {
	if n := m.cache.ClearByTags(userSearchTag(userID)); n > 0 {
		m.log.Debug("search cache invalidated", "user", userID, "pages", n)
	}
}

func userSearchTag(userID string) string { return searchTag + ":" + userID }

func searchTags(userID string) []string {
	return []string{searchTag, userSearchTag(userID)}
}

func searchKey(q search.Query) (string, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("search key: %w", err)
	}
	sum := sha256.Sum256(b)
	return "search:" + q.UserID + ":" + hex.EncodeToString(sum[:12]), nil
}
