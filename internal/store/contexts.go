package store

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/rcliao/memindex/internal/model"
)

// DefaultMaxContextDepth bounds hierarchy walks.
const DefaultMaxContextDepth = 32

// Contexts is a registry of user contexts. Parent, child and memory links
// are plain ids resolved on demand; dangling ids resolve to not found and
// cycles are tolerated.
type Contexts struct {
	mu       sync.RWMutex
	byID     map[string]*model.Context
	byUser   map[string]idSet
	maxDepth int
}

// NewContexts creates an empty registry. maxDepth <= 0 selects the default.
func NewContexts(maxDepth int) *Contexts {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxContextDepth
	}
	return &Contexts{
		byID:     make(map[string]*model.Context),
		byUser:   make(map[string]idSet),
		maxDepth: maxDepth,
	}
}

// Put inserts or replaces a context and links it under its parent when the
// parent exists and belongs to the same user.
func (c *Contexts) Put(ctx *model.Context) error {
	if ctx.ID == "" || ctx.UserID == "" {
		return fmt.Errorf("put context: id and user id are required")
	}
	if !ctx.Kind.Valid() {
		return fmt.Errorf("put context %s: invalid kind %q", ctx.ID, ctx.Kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byID[ctx.ID]; ok && old.UserID != ctx.UserID {
		return fmt.Errorf("put context %s: owned by another user", ctx.ID)
	}
	stored := ctx.Clone()
	c.byID[stored.ID] = stored
	addTo(c.byUser, stored.UserID, stored.ID)

	if parent, ok := c.byID[stored.ParentContextID]; ok && parent.UserID == stored.UserID {
		if !slices.Contains(parent.ChildContextIDs, stored.ID) {
			parent.ChildContextIDs = append(parent.ChildContextIDs, stored.ID)
		}
	}
	return nil
}

// Get returns a copy of the context when userID owns it.
func (c *Contexts) Get(userID, id string) (*model.Context, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, ok := c.byID[id]
	if !ok || ctx.UserID != userID {
		return nil, false
	}
	return ctx.Clone(), true
}

// ForUser returns copies of the user's contexts ordered by start time.
func (c *Contexts) ForUser(userID string) []*model.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*model.Context
	for _, id := range c.byUser[userID].sorted() {
		out = append(out, c.byID[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Children resolves the context's child ids, skipping dangling ones.
func (c *Contexts) Children(userID, id string) []*model.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, ok := c.byID[id]
	if !ok || ctx.UserID != userID {
		return nil
	}
	var out []*model.Context
	for _, childID := range ctx.ChildContextIDs {
		if child, ok := c.byID[childID]; ok && child.UserID == userID {
			out = append(out, child.Clone())
		}
	}
	return out
}

// Path returns the chain of contexts from the root down to id. The walk
// stops at a missing parent, a revisited id, or after maxDepth steps.
func (c *Contexts) Path(userID, id string) ([]*model.Context, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, ok := c.byID[id]
	if !ok || ctx.UserID != userID {
		return nil, fmt.Errorf("context %s: %w", id, ErrNotFound)
	}

	seen := map[string]bool{}
	var chain []*model.Context
	for depth := 0; ok && depth < c.maxDepth && !seen[ctx.ID]; depth++ {
		seen[ctx.ID] = true
		chain = append(chain, ctx.Clone())
		ctx, ok = c.byID[ctx.ParentContextID]
		ok = ok && ctx.UserID == userID
	}
	slices.Reverse(chain)
	return chain, nil
}

// Attach records memoryID as related to the context.
func (c *Contexts) Attach(userID, contextID, memoryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, ok := c.byID[contextID]
	if !ok || ctx.UserID != userID {
		return fmt.Errorf("attach to context %s: %w", contextID, ErrNotFound)
	}
	if !slices.Contains(ctx.RelatedMemoryIDs, memoryID) {
		ctx.RelatedMemoryIDs = append(ctx.RelatedMemoryIDs, memoryID)
	}
	return nil
}

// Len returns the number of registered contexts.
func (c *Contexts) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// All returns copies of every context, ordered by user then start time.
func (c *Contexts) All() []*model.Context {
	c.mu.RLock()
	users := make([]string, 0, len(c.byUser))
	for u := range c.byUser {
		users = append(users, u)
	}
	c.mu.RUnlock()

	sort.Strings(users)
	var out []*model.Context
	for _, u := range users {
		out = append(out, c.ForUser(u)...)
	}
	return out
}
