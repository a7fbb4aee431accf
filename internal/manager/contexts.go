package manager

import (
	"fmt"

	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/store"
)

// ContextParams holds parameters for CreateContext.
type ContextParams struct {
	UserID      string
	Kind        model.ContextKind
	Name        string
	Description string
	ParentID    string
	Metadata    map[string]string
}

// CreateContext registers a new context for the user. A parent that does
// not exist is kept as a dangling reference.
func (m *Manager) CreateContext(p ContextParams) Result[*model.Context] {
	if err := m.ready(); err != nil {
		return fail[*model.Context](err)
	}
	if p.UserID == "" || p.Name == "" {
		return fail[*model.Context](fmt.Errorf("create context: user id and name are required: %w", errInvalidInput))
	}
	if !p.Kind.Valid() {
		return fail[*model.Context](fmt.Errorf("create context: invalid kind %q: %w", p.Kind, errInvalidInput))
	}

	ctx := &model.Context{
		ID:              m.ids.NewID(),
		UserID:          p.UserID,
		Kind:            p.Kind,
		Name:            p.Name,
		Description:     p.Description,
		StartTime:       m.clock.Now(),
		ParentContextID: p.ParentID,
		Metadata:        p.Metadata,
	}
	if err := m.contexts.Put(ctx); err != nil {
		return fail[*model.Context](err)
	}
	m.log.Info("context created", "user", p.UserID, "id", ctx.ID, "kind", p.Kind)
	return succeed(ctx.Clone())
}

// GetContext returns the user's context, or OK with a nil value.
func (m *Manager) GetContext(userID, contextID string) Result[*model.Context] {
	if err := m.ready(); err != nil {
		return fail[*model.Context](err)
	}
	ctx, ok := m.contexts.Get(userID, contextID)
	if !ok {
		return succeed[*model.Context](nil)
	}
	return succeed(ctx)
}

// ContextPath returns the chain of contexts from the root down to
// contextID.
func (m *Manager) ContextPath(userID, contextID string) Result[[]*model.Context] {
	if err := m.ready(); err != nil {
		return fail[[]*model.Context](err)
	}
	path, err := m.contexts.Path(userID, contextID)
	if err != nil {
		return fail[[]*model.Context](err)
	}
	return succeed(path)
}

// AttachMemory links one of the user's memories to one of their contexts.
func (m *Manager) AttachMemory(userID, contextID, memoryID string) Result[bool] {
	if err := m.ready(); err != nil {
		return fail[bool](err)
	}
	entryID, ok := m.resolve(memoryID)
	if !ok {
		return fail[bool](notFound(memoryID))
	}
	if e, ok := m.store.Lookup(entryID); !ok || e.UserID() != userID {
		return fail[bool](notFound(memoryID))
	}
	if err := m.contexts.Attach(userID, contextID, memoryID); err != nil {
		return fail[bool](err)
	}
	return succeed(true)
}

// ContextMemories resolves the memories linked to a context. Links to
// memories that are gone or unreadable are skipped.
func (m *Manager) ContextMemories(userID, contextID string) Result[[]*model.Memory] {
	if err := m.ready(); err != nil {
		return fail[[]*model.Memory](err)
	}
	ctx, ok := m.contexts.Get(userID, contextID)
	if !ok {
		return fail[[]*model.Memory](fmt.Errorf("context %s: %w", contextID, store.ErrNotFound))
	}

	now := m.clock.Now()
	out := []*model.Memory{}
	for _, id := range ctx.RelatedMemoryIDs {
		entryID, ok := m.resolve(id)
		if !ok {
			continue
		}
		e, ok := m.store.Lookup(entryID)
		if !ok || e.UserID() != userID || !e.Visible(now, false) {
			continue
		}
		out = append(out, &e.Memory)
	}
	return succeed(out)
}

// ExportContexts returns the user's contexts, or every context when userID
// is empty.
func (m *Manager) ExportContexts(userID string) Result[[]*model.Context] {
	if err := m.ready(); err != nil {
		return fail[[]*model.Context](err)
	}
	if userID == "" {
		return succeed(m.contexts.All())
	}
	return succeed(m.contexts.ForUser(userID))
}

// ImportContexts registers previously exported contexts. Value reports how
// many were stored before the first failure.
func (m *Manager) ImportContexts(ctxs []*model.Context) Result[int] {
	if err := m.ready(); err != nil {
		return fail[int](err)
	}
	n := 0
	for _, ctx := range ctxs {
		if err := m.contexts.Put(ctx); err != nil {
			r := fail[int](fmt.Errorf("import context: %w: %w", err, errInvalidInput))
			r.Value = n
			return r
		}
		n++
	}
	return succeed(n)
}
