package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/memindex/internal/chunker"
)

type contribution struct {
	name  string
	value float64
}

// explain names the match type and the factors that contributed most to the
// score, with their weighted contributions.
func explain(r *Result, w Weights) string {
	parts := []contribution{
		{"content", r.Factors.Content * w.Content},
		{"keyword", r.Factors.Keyword * w.Keyword},
		{"recency", r.Factors.Recency * w.Recency},
		{"confidence", r.Factors.Conf * w.Conf},
		{"priority", r.Factors.Priority * w.Priority},
		{"access", r.Factors.Access * w.Access},
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].value > parts[j].value })

	var top []string
	for _, p := range parts[:3] {
		if p.value > 0 {
			top = append(top, fmt.Sprintf("%s %.2f", p.name, p.value))
		}
	}
	if len(top) == 0 {
		return fmt.Sprintf("%s match, score %.2f", r.Match, r.Score)
	}
	return fmt.Sprintf("%s match, score %.2f (%s)", r.Match, r.Score, strings.Join(top, ", "))
}

func (e *Engine) decorate(r *Result, tokens []string) {
	r.Explanation = explain(r, e.cfg.Weights)
	if p, hits, ok := chunker.Best(r.Entry.Memory.Content, tokens, e.cfg.Chunker); ok && hits > 0 {
		r.Highlight = p.Text
	}
}
