package store

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

// TTLPolicy maps priorities to default lifetimes. An explicit ExpiresAt on
// the record always takes precedence.
type TTLPolicy struct {
	Critical time.Duration
	High     time.Duration
	Medium   time.Duration
	Low      time.Duration
}

// DefaultTTLPolicy returns critical 30d, high 7d, medium 1d, low 1h.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Critical: 30 * 24 * time.Hour,
		High:     7 * 24 * time.Hour,
		Medium:   24 * time.Hour,
		Low:      time.Hour,
	}
}

// For returns the lifetime for a priority. Unknown priorities get Medium.
func (p TTLPolicy) For(pr model.Priority) time.Duration {
	switch pr {
	case model.PriorityCritical:
		return p.Critical
	case model.PriorityHigh:
		return p.High
	case model.PriorityLow:
		return p.Low
	default:
		return p.Medium
	}
}

// Expiry returns when a record written at now stops being readable.
func (p TTLPolicy) Expiry(m *model.Memory, now time.Time) time.Time {
	if m.ExpiresAt != nil {
		return *m.ExpiresAt
	}
	return now.Add(p.For(m.Priority))
}

func (p TTLPolicy) withDefaults() TTLPolicy {
	d := DefaultTTLPolicy()
	if p.Critical <= 0 {
		p.Critical = d.Critical
	}
	if p.High <= 0 {
		p.High = d.High
	}
	if p.Medium <= 0 {
		p.Medium = d.Medium
	}
	if p.Low <= 0 {
		p.Low = d.Low
	}
	return p
}

var ttlRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseTTL parses a TTL string like "7d", "24h", "30m" or "60s". Anything
// time.ParseDuration accepts ("1h30m") works too.
func ParseTTL(s string) (time.Duration, error) {
	m := ttlRegex.FindStringSubmatch(s)
	if m == nil {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("invalid format %q (use e.g. 7d, 24h, 30m, 60s)", s)
		}
		return d, nil
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}
