package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTypes(s string) ([]model.MemoryType, error) {
	var out []model.MemoryType
	for _, part := range splitList(s) {
		t := model.MemoryType(part)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown memory type %q", part)
		}
		out = append(out, t)
	}
	return out, nil
}

// parseTime accepts RFC3339 or a plain date.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q (use RFC3339 or YYYY-MM-DD)", s)
}
