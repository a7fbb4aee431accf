package search

import (
	"math"
	"unicode/utf8"

	"github.com/rcliao/memindex/internal/model"
)

// DefaultBudget is the token budget used when none is given.
const DefaultBudget = 4000

// minExcerpt is the smallest remaining char budget worth an excerpt.
const minExcerpt = 100

// Packed is a memory selected for a context window.
type Packed struct {
	ID      string           `json:"id"`
	EntryID string           `json:"entry_id"`
	Type    model.MemoryType `json:"type"`
	Content string           `json:"content"`
	Score   float64          `json:"score"`
	Excerpt bool             `json:"excerpt,omitempty"`
}

// Packing is the assembled context. Budget and Used are in tokens.
type Packing struct {
	Budget   int      `json:"budget"`
	Used     int      `json:"used"`
	Memories []Packed `json:"memories"`
}

// Pack greedily fills a token budget (1 token ≈ 4 chars) with results in
// the order given. The first result that does not fit is included as a
// truncated excerpt when enough budget remains, and packing stops there.
func Pack(results []Result, budget int) *Packing {
	if budget <= 0 {
		budget = DefaultBudget
	}
	charBudget := budget * 4

	out := &Packing{Budget: budget, Memories: []Packed{}}
	used := 0
	for _, r := range results {
		m := r.Entry.Memory
		p := Packed{
			ID:      m.ID,
			EntryID: r.Entry.EntryID,
			Type:    m.Type,
			Content: m.Content,
			Score:   math.Round(r.Score*100) / 100,
		}
		if used+len(m.Content) <= charBudget {
			out.Memories = append(out.Memories, p)
			used += len(m.Content)
			continue
		}
		if remaining := charBudget - used; remaining >= minExcerpt {
			p.Content = truncate(m.Content, remaining) + "..."
			p.Excerpt = true
			out.Memories = append(out.Memories, p)
			used += len(p.Content)
		}
		break
	}
	out.Used = used / 4
	return out
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
