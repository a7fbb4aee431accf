// Package schema turns raw, untyped input into typed memory records.
//
// A Validator checks every field and reports all violations at once; on
// any violation no record is returned.
package schema

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

// Rules reported in FieldError.Rule.
const (
	RuleRequired = "required"
	RuleType     = "type"
	RuleEnum     = "enum"
	RuleRange    = "range"
	RuleLength   = "length"
	RuleFormat   = "format"
)

const (
	DefaultMaxContentLength = 10000
	DefaultConfidence       = 1.0
	DefaultStrength         = 0.5
)

// FieldError describes one violated field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every violated field constraint.
type ValidationError struct {
	Type   model.MemoryType `json:"type"`
	Fields []FieldError     `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("invalid %s memory: %s", e.Type, strings.Join(parts, "; "))
}

// Validator validates raw input for a declared memory type.
type Validator struct {
	MaxContentLength int
}

// New returns a validator with default limits.
func New() *Validator {
	return &Validator{MaxContentLength: DefaultMaxContentLength}
}

// Validate builds a record of type t from raw. The returned record has no
// id, owner or timestamps; the caller assigns those. Any violation yields a
// *ValidationError and a nil record.
func (v *Validator) Validate(t model.MemoryType, raw map[string]any) (*model.Memory, error) {
	r := &reader{raw: raw}
	if !t.Valid() {
		r.fail("type", RuleEnum, fmt.Sprintf("must be one of %s", join(model.MemoryTypes)))
		return nil, &ValidationError{Type: t, Fields: r.errs}
	}

	m := &model.Memory{Type: t}
	m.Content = r.str("content", true)
	if limit := v.maxContent(); len(m.Content) > limit {
		r.fail("content", RuleLength, fmt.Sprintf("must be at most %d bytes", limit))
	}
	m.Keywords = r.strs("keywords")
	m.Tags = r.strs("tags")
	m.Relations = r.strs("relations")
	m.Priority = model.Priority(r.enum("priority", string(model.PriorityMedium), priorities))
	m.Confidence = r.unit("confidence", DefaultConfidence)
	m.ExpiresAt = r.time("expires_at")

	switch t {
	case model.TypePreferences:
		m.Preference = &model.PreferenceDetails{
			Category: r.str("category", true),
			Key:      r.str("key", true),
			Value:    r.str("value", true),
			Strength: r.unit("strength", DefaultStrength),
		}
	case model.TypeFacts:
		m.Fact = &model.FactDetails{
			Subject:   r.str("subject", true),
			Predicate: r.str("predicate", true),
			Object:    r.str("object", true),
			Source:    r.str("source", false),
			Verified:  r.boolean("verified"),
		}
	case model.TypeContext:
		m.Context = &model.ContextDetails{
			ContextID: r.str("context_id", true),
			Scope:     r.enum("scope", "session", scopes),
			SessionID: r.str("session_id", false),
		}
	case model.TypeBehavior:
		m.Behavior = &model.BehaviorDetails{
			Pattern:      r.str("pattern", true),
			Trigger:      r.str("trigger", false),
			Frequency:    r.count("frequency"),
			LastObserved: r.time("last_observed"),
		}
	}

	if len(r.errs) > 0 {
		return nil, &ValidationError{Type: t, Fields: r.errs}
	}
	return m, nil
}

func (v *Validator) maxContent() int {
	if v.MaxContentLength <= 0 {
		return DefaultMaxContentLength
	}
	return v.MaxContentLength
}

var (
	priorities = []string{
		string(model.PriorityLow), string(model.PriorityMedium),
		string(model.PriorityHigh), string(model.PriorityCritical),
	}
	scopes = []string{"global", "session", "task", "conversation"}
)

func join[S ~string](vals []S) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// reader extracts typed fields from raw input, collecting every error.
type reader struct {
	raw  map[string]any
	errs []FieldError
}

func (r *reader) fail(field, rule, msg string) {
	r.errs = append(r.errs, FieldError{Field: field, Rule: rule, Message: msg})
}

func (r *reader) str(field string, required bool) string {
	v, ok := r.raw[field]
	if !ok || v == nil {
		if required {
			r.fail(field, RuleRequired, "is required")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, RuleType, fmt.Sprintf("must be a string, got %T", v))
		return ""
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		r.fail(field, RuleRequired, "must not be empty")
	}
	return s
}

func (r *reader) strs(field string) []string {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				r.fail(fmt.Sprintf("%s[%d]", field, i), RuleType, fmt.Sprintf("must be a string, got %T", item))
				continue
			}
			out = append(out, s)
		}
	case string:
		// Comma-separated, as accepted on the command line.
		out = strings.Split(list, ",")
	default:
		r.fail(field, RuleType, fmt.Sprintf("must be a list of strings, got %T", v))
		return nil
	}

	cleaned := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

func (r *reader) enum(field, def string, allowed []string) string {
	s := r.str(field, false)
	if s == "" {
		return def
	}
	s = strings.ToLower(s)
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	r.fail(field, RuleEnum, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
	return def
}

func (r *reader) number(field string) (float64, bool) {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return 0, false
	}
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	default:
		r.fail(field, RuleType, fmt.Sprintf("must be a number, got %T", v))
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		r.fail(field, RuleType, "must be a finite number")
		return 0, false
	}
	return n, true
}

func (r *reader) unit(field string, def float64) float64 {
	n, ok := r.number(field)
	if !ok {
		return def
	}
	if !(n >= 0 && n <= 1) {
		r.fail(field, RuleRange, "must be between 0 and 1")
		return def
	}
	return n
}

func (r *reader) count(field string) int {
	n, ok := r.number(field)
	if !ok {
		return 0
	}
	if n < 0 || n != float64(int(n)) {
		r.fail(field, RuleRange, "must be a non-negative integer")
		return 0
	}
	return int(n)
}

func (r *reader) boolean(field string) bool {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, RuleType, fmt.Sprintf("must be a boolean, got %T", v))
	}
	return b
}

func (r *reader) time(field string) *time.Time {
	v, ok := r.raw[field]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		t = t.UTC()
		return &t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			r.fail(field, RuleFormat, "must be an RFC 3339 timestamp")
			return nil
		}
		parsed = parsed.UTC()
		return &parsed
	default:
		r.fail(field, RuleType, fmt.Sprintf("must be a timestamp, got %T", v))
		return nil
	}
}
