// Package model defines the core memory data types.
package model

import (
	"fmt"
	"time"
)

// MemoryType discriminates the kind-specific payload of a Memory.
type MemoryType string

const (
	TypePreferences MemoryType = "preferences"
	TypeFacts       MemoryType = "facts"
	TypeContext     MemoryType = "context"
	TypeBehavior    MemoryType = "behavior"
)

// MemoryTypes lists every memory type in a stable order.
var MemoryTypes = []MemoryType{TypePreferences, TypeFacts, TypeContext, TypeBehavior}

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case TypePreferences, TypeFacts, TypeContext, TypeBehavior:
		return true
	}
	return false
}

// Priority ranks how important a memory is. It also drives the default TTL.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// PreferenceDetails is the payload of a preferences memory.
type PreferenceDetails struct {
	Category string  `json:"category"`
	Key      string  `json:"key"`
	Value    string  `json:"value"`
	Strength float64 `json:"strength"`
}

// FactDetails is the payload of a facts memory.
type FactDetails struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Source    string `json:"source,omitempty"`
	Verified  bool   `json:"verified"`
}

// ContextDetails is the payload of a context memory.
type ContextDetails struct {
	ContextID string `json:"context_id,omitempty"`
	Scope     string `json:"scope"`
	SessionID string `json:"session_id,omitempty"`
}

// BehaviorDetails is the payload of a behavior memory.
type BehaviorDetails struct {
	Pattern      string     `json:"pattern"`
	Trigger      string     `json:"trigger,omitempty"`
	Frequency    int        `json:"frequency"`
	LastObserved *time.Time `json:"last_observed,omitempty"`
}

// Memory is a typed user memory record.
//
// Type is the discriminant: exactly one of Preference, Fact, Context or
// Behavior is set and it must be the one matching Type.
type Memory struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Type        MemoryType `json:"type"`
	Content     string     `json:"content"`
	Keywords    []string   `json:"keywords,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Priority    Priority   `json:"priority"`
	Confidence  float64    `json:"confidence"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AccessCount int        `json:"access_count"`
	Relations   []string   `json:"relations,omitempty"`

	Preference *PreferenceDetails `json:"preference,omitempty"`
	Fact       *FactDetails       `json:"fact,omitempty"`
	Context    *ContextDetails    `json:"context,omitempty"`
	Behavior   *BehaviorDetails   `json:"behavior,omitempty"`
}

// Check returns every violated record invariant. An empty result means the
// record is well formed.
func (m *Memory) Check() []string {
	var errs []string
	if !m.Type.Valid() {
		errs = append(errs, fmt.Sprintf("invalid type %q", m.Type))
	}
	if !m.Priority.Valid() {
		errs = append(errs, fmt.Sprintf("invalid priority %q", m.Priority))
	}
	if !(m.Confidence >= 0 && m.Confidence <= 1) {
		errs = append(errs, fmt.Sprintf("confidence %v out of range [0,1]", m.Confidence))
	}
	if m.AccessCount < 0 {
		errs = append(errs, "access count is negative")
	}
	if m.UpdatedAt.Before(m.CreatedAt) {
		errs = append(errs, "updated_at precedes created_at")
	}
	if err := m.checkPayload(); err != "" {
		errs = append(errs, err)
	}
	return errs
}

func (m *Memory) checkPayload() string {
	set := 0
	for _, p := range []bool{m.Preference != nil, m.Fact != nil, m.Context != nil, m.Behavior != nil} {
		if p {
			set++
		}
	}
	if set > 1 {
		return "more than one type payload set"
	}

	switch m.Type {
	case TypePreferences:
		if m.Preference == nil {
			return "preferences memory without preference payload"
		}
		if s := m.Preference.Strength; !(s >= 0 && s <= 1) {
			return "preference strength out of range [0,1]"
		}
	case TypeFacts:
		if m.Fact == nil {
			return "facts memory without fact payload"
		}
	case TypeContext:
		if m.Context == nil {
			return "context memory without context payload"
		}
	case TypeBehavior:
		if m.Behavior == nil {
			return "behavior memory without behavior payload"
		}
		if m.Behavior.Frequency < 0 {
			return "behavior frequency is negative"
		}
	}
	return ""
}

// Clone returns a deep copy of m.
func (m Memory) Clone() Memory {
	c := m
	c.Keywords = cloneStrings(m.Keywords)
	c.Tags = cloneStrings(m.Tags)
	c.Relations = cloneStrings(m.Relations)
	c.ExpiresAt = cloneTime(m.ExpiresAt)
	if m.Preference != nil {
		p := *m.Preference
		c.Preference = &p
	}
	if m.Fact != nil {
		f := *m.Fact
		c.Fact = &f
	}
	if m.Context != nil {
		x := *m.Context
		c.Context = &x
	}
	if m.Behavior != nil {
		b := *m.Behavior
		b.LastObserved = cloneTime(m.Behavior.LastObserved)
		c.Behavior = &b
	}
	return c
}

// Summary renders the kind-specific payload as a short line of text.
func (m *Memory) Summary() string {
	switch m.Type {
	case TypePreferences:
		if p := m.Preference; p != nil {
			return fmt.Sprintf("%s/%s = %s", p.Category, p.Key, p.Value)
		}
	case TypeFacts:
		if f := m.Fact; f != nil {
			return fmt.Sprintf("%s %s %s", f.Subject, f.Predicate, f.Object)
		}
	case TypeContext:
		if c := m.Context; c != nil {
			return "scope " + c.Scope
		}
	case TypeBehavior:
		if b := m.Behavior; b != nil {
			return fmt.Sprintf("%s (seen %d times)", b.Pattern, b.Frequency)
		}
	}
	return ""
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
