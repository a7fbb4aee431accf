package model

import "time"

// ContextKind classifies a Context.
type ContextKind string

const (
	ContextConversation ContextKind = "conversation"
	ContextTask         ContextKind = "task"
	ContextSession      ContextKind = "session"
	ContextProject      ContextKind = "project"
	ContextTopic        ContextKind = "topic"
)

// Valid reports whether k is a known context kind.
func (k ContextKind) Valid() bool {
	switch k {
	case ContextConversation, ContextTask, ContextSession, ContextProject, ContextTopic:
		return true
	}
	return false
}

// Context groups related memories by conversation, task, session and so on.
// Parent and child links form a tree by convention only; cycles are possible.
type Context struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Kind             ContextKind       `json:"kind"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	RelatedMemoryIDs []string          `json:"related_memory_ids,omitempty"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          *time.Time        `json:"end_time,omitempty"`
	ParentContextID  string            `json:"parent_context_id,omitempty"`
	ChildContextIDs  []string          `json:"child_context_ids,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Duration is the span of the context; open contexts are measured up to now.
func (c *Context) Duration(now time.Time) time.Duration {
	end := now
	if c.EndTime != nil {
		end = *c.EndTime
	}
	if end.Before(c.StartTime) {
		return 0
	}
	return end.Sub(c.StartTime)
}

// Clone returns a deep copy of c.
func (c *Context) Clone() *Context {
	x := *c
	x.RelatedMemoryIDs = cloneStrings(c.RelatedMemoryIDs)
	x.ChildContextIDs = cloneStrings(c.ChildContextIDs)
	x.EndTime = cloneTime(c.EndTime)
	if c.Metadata != nil {
		x.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			x.Metadata[k] = v
		}
	}
	return &x
}
