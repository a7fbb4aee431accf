package schema

import (
	"time"

	"github.com/rcliao/memindex/internal/model"
)

// Fields renders the user-editable fields of m as raw input, the inverse of
// Validate. Patching the result and validating it again yields an updated
// record.
func Fields(m *model.Memory) map[string]any {
	raw := map[string]any{
		"content":    m.Content,
		"keywords":   append([]string(nil), m.Keywords...),
		"tags":       append([]string(nil), m.Tags...),
		"relations":  append([]string(nil), m.Relations...),
		"priority":   string(m.Priority),
		"confidence": m.Confidence,
	}
	if m.ExpiresAt != nil {
		raw["expires_at"] = m.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	switch m.Type {
	case model.TypePreferences:
		if p := m.Preference; p != nil {
			raw["category"] = p.Category
			raw["key"] = p.Key
			raw["value"] = p.Value
			raw["strength"] = p.Strength
		}
	case model.TypeFacts:
		if f := m.Fact; f != nil {
			raw["subject"] = f.Subject
			raw["predicate"] = f.Predicate
			raw["object"] = f.Object
			raw["source"] = f.Source
			raw["verified"] = f.Verified
		}
	case model.TypeContext:
		if c := m.Context; c != nil {
			raw["context_id"] = c.ContextID
			raw["scope"] = c.Scope
			raw["session_id"] = c.SessionID
		}
	case model.TypeBehavior:
		if b := m.Behavior; b != nil {
			raw["pattern"] = b.Pattern
			raw["trigger"] = b.Trigger
			raw["frequency"] = b.Frequency
			if b.LastObserved != nil {
				raw["last_observed"] = b.LastObserved.UTC().Format(time.RFC3339Nano)
			}
		}
	}
	return raw
}
