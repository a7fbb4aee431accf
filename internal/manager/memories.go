package manager

import (
	"fmt"
	"sort"

	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/schema"
	"github.com/rcliao/memindex/internal/store"
)

const (
	recordTag        = "record"
	defaultListLimit = 50
)

// CreateMemory validates raw as a memory of type t and stores it for
// userID. Context memories that name a known context are attached to it.
func (m *Manager) CreateMemory(userID string, t model.MemoryType, raw map[string]any) Result[*model.Memory] {
	if err := m.ready(); err != nil {
		return fail[*model.Memory](err)
	}
	if userID == "" {
		return fail[*model.Memory](&schema.ValidationError{Type: t, Fields: []schema.FieldError{
			{Field: "user_id", Rule: schema.RuleRequired, Message: "is required"},
		}})
	}

	rec, err := m.validator.Validate(t, raw)
	if err != nil {
		m.log.Debug("create rejected", "user", userID, "type", t, "error", err)
		return fail[*model.Memory](err)
	}
	now := m.clock.Now()
	rec.ID = m.ids.NewID()
	rec.UserID = userID
	rec.CreatedAt = now
	rec.UpdatedAt = now

	e := m.store.NewEntry(m.ids.NewID(), *rec)
	if err := m.store.Put(e); err != nil {
		m.log.Warn("create failed", "user", userID, "error", err)
		return fail[*model.Memory](err)
	}
	m.cache.Set(recordKey(rec.ID), e.EntryID, 0, recordTag)
	m.invalidateSearches(userID)

	if rec.Type == model.TypeContext && rec.Context.ContextID != "" {
		if err := m.contexts.Attach(userID, rec.Context.ContextID, rec.ID); err != nil {
			m.log.Debug("context memory not attached", "context", rec.Context.ContextID, "error", err)
		}
	}

	m.log.Info("memory created", "user", userID, "id", rec.ID, "type", rec.Type)
	out := e.Memory.Clone()
	return succeed(&out)
}

// GetMemory returns the user's memory, or OK with a nil value when it does
// not exist, belongs to someone else, or is no longer readable. Archived
// memories are returned. A hit counts as an access.
func (m *Manager) GetMemory(userID, memoryID string) Result[*model.Memory] {
	if err := m.ready(); err != nil {
		return fail[*model.Memory](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return succeed[*model.Memory](nil)
	}
	e, ok := m.store.Get(userID, entryID, true)
	if !ok {
		return succeed[*model.Memory](nil)
	}
	return succeed(&e.Memory)
}

// UpdateMemory applies raw as a patch over the user's memory. The merged
// record is validated as a whole; the type cannot change.
func (m *Manager) UpdateMemory(userID, memoryID string, raw map[string]any) Result[*model.Memory] {
	if err := m.ready(); err != nil {
		return fail[*model.Memory](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return fail[*model.Memory](notFound(memoryID))
	}
	e, err := m.store.Update(userID, entryID, func(cur *model.Memory) error {
		if t, ok := raw["type"]; ok && fmt.Sprint(t) != string(cur.Type) {
			return &schema.ValidationError{Type: cur.Type, Fields: []schema.FieldError{
				{Field: "type", Rule: schema.RuleEnum, Message: "cannot be changed"},
			}}
		}
		merged := schema.Fields(cur)
		for k, v := range raw {
			if k != "type" {
				merged[k] = v
			}
		}
		next, err := m.validator.Validate(cur.Type, merged)
		if err != nil {
			return err
		}
		cur.Content = next.Content
		cur.Keywords = next.Keywords
		cur.Tags = next.Tags
		cur.Relations = next.Relations
		cur.Priority = next.Priority
		cur.Confidence = next.Confidence
		cur.ExpiresAt = next.ExpiresAt
		cur.Preference, cur.Fact, cur.Context, cur.Behavior = next.Preference, next.Fact, next.Context, next.Behavior
		return nil
	})
	if err != nil {
		return fail[*model.Memory](err)
	}
	m.invalidateSearches(userID)
	m.log.Info("memory updated", "user", userID, "id", memoryID, "version", e.Version)
	return succeed(&e.Memory)
}

// DeleteMemory marks the user's memory deleted and removes it immediately.
func (m *Manager) DeleteMemory(userID, memoryID string) Result[bool] {
	if err := m.ready(); err != nil {
		return fail[bool](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return fail[bool](notFound(memoryID))
	}
	if _, err := m.store.Delete(userID, entryID); err != nil {
		return fail[bool](err)
	}
	m.cache.Delete(recordKey(memoryID))
	m.invalidateSearches(userID)
	m.log.Info("memory deleted", "user", userID, "id", memoryID)
	return succeed(true)
}

// ArchiveMemory hides the user's memory from default searches.
func (m *Manager) ArchiveMemory(userID, memoryID string) Result[*model.Entry] {
	return m.transition(userID, memoryID, model.StatusArchived)
}

// ReactivateMemory returns an archived memory to active.
func (m *Manager) ReactivateMemory(userID, memoryID string) Result[*model.Entry] {
	return m.transition(userID, memoryID, model.StatusActive)
}

func (m *Manager) transition(userID, memoryID string, to model.Status) Result[*model.Entry] {
	if err := m.ready(); err != nil {
		return fail[*model.Entry](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return fail[*model.Entry](notFound(memoryID))
	}
	e, err := m.store.Transition(userID, entryID, to)
	if err != nil {
		return fail[*model.Entry](err)
	}
	m.invalidateSearches(userID)
	m.log.Info("memory status changed", "user", userID, "id", memoryID, "status", to)
	return succeed(e)
}

// ListParams filters ListMemories.
type ListParams struct {
	Types           []model.MemoryType
	Tags            []string
	IncludeArchived bool
	Limit           int
}

// ListMemories returns the user's readable memories, newest first.
func (m *Manager) ListMemories(userID string, p ListParams) Result[[]*model.Memory] {
	if err := m.ready(); err != nil {
		return fail[[]*model.Memory](err)
	}
	entries := m.store.Candidates(userID, store.Filter{
		Types:           p.Types,
		Tags:            p.Tags,
		IncludeArchived: p.IncludeArchived,
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Memory.CreatedAt.After(entries[j].Memory.CreatedAt)
	})
	limit := p.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]*model.Memory, len(entries))
	for i, e := range entries {
		out[i] = &e.Memory
	}
	return succeed(out)
}

// resolve maps a record id to its entry id through the cache.
func (m *Manager) resolve(memoryID string) (string, bool) {
	if memoryID == "" {
		return "", false
	}
	key := recordKey(memoryID)
	if v, ok := m.cache.Get(key); ok {
		if id, ok := v.(string); ok {
			return id, true
		}
	}
	entryID, ok := m.store.EntryIDForRecord(memoryID)
	if !ok {
		return "", false
	}
	m.cache.Set(key, entryID, 0, recordTag)
	return entryID, true
}

func recordKey(memoryID string) string { return "record:" + memoryID }

func notFound(memoryID string) error {
	return fmt.Errorf("memory %s: %w", memoryID, store.ErrNotFound)
}
