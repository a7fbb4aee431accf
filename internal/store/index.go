package store

import (
	"sort"
	"strings"

	"github.com/rcliao/memindex/internal/model"
)

type idSet map[string]struct{}

func (s idSet) add(id string) { s[id] = struct{}{} }

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// indices are derived lookup structures keyed by entry id. They never hold
// entry values, so they cannot diverge from the canonical table except by a
// missed add/remove, and rebuild() recovers from that.
type indices struct {
	byUser    map[string]idSet
	byType    map[model.MemoryType]idSet
	byTag     map[string]idSet
	byKeyword map[string]idSet
	byRecord  map[string]string
}

func newIndices() *indices {
	return &indices{
		byUser:    make(map[string]idSet),
		byType:    make(map[model.MemoryType]idSet),
		byTag:     make(map[string]idSet),
		byKeyword: make(map[string]idSet),
		byRecord:  make(map[string]string),
	}
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func addTo[K comparable](m map[K]idSet, key K, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set.add(id)
}

func removeFrom[K comparable](m map[K]idSet, key K, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func (ix *indices) add(e *model.Entry) {
	id := e.EntryID
	addTo(ix.byUser, e.Memory.UserID, id)
	addTo(ix.byType, e.Memory.Type, id)
	for _, t := range e.Memory.Tags {
		if t = normalizeTerm(t); t != "" {
			addTo(ix.byTag, t, id)
		}
	}
	for _, k := range e.Memory.Keywords {
		if k = normalizeTerm(k); k != "" {
			addTo(ix.byKeyword, k, id)
		}
	}
	if e.Memory.ID != "" {
		ix.byRecord[e.Memory.ID] = id
	}
}

func (ix *indices) remove(e *model.Entry) {
	id := e.EntryID
	removeFrom(ix.byUser, e.Memory.UserID, id)
	removeFrom(ix.byType, e.Memory.Type, id)
	for _, t := range e.Memory.Tags {
		removeFrom(ix.byTag, normalizeTerm(t), id)
	}
	for _, k := range e.Memory.Keywords {
		removeFrom(ix.byKeyword, normalizeTerm(k), id)
	}
	if ix.byRecord[e.Memory.ID] == id {
		delete(ix.byRecord, e.Memory.ID)
	}
}

// Rebuild re-derives every secondary index from the canonical table.
func (s *IndexedStore) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix := newIndices()
	for _, e := range s.entries {
		ix.add(e)
	}
	s.idx = ix
}

// WithKeyword returns the ids of the user's entries carrying keyword k.
func (s *IndexedStore) WithKeyword(userID, k string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.idx.byUser[userID]
	var out []string
	for id := range s.idx.byKeyword[normalizeTerm(k)] {
		if user.has(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
