package search

import (
	"sort"

	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/store"
)

const (
	// RelatedThreshold is the similarity a memory must exceed to be related.
	RelatedThreshold    = 0.3
	DefaultRelatedLimit = 5
)

// Related is a memory similar to a target memory.
type Related struct {
	Entry  *model.Entry `json:"entry"`
	Score  float64      `json:"score"`
	Shared []string     `json:"shared"`
}

// Related returns the user's other active memories whose keyword and tag
// overlap with target exceeds RelatedThreshold, best first.
func (e *Engine) Related(target *model.Entry, limit int) []Related {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	limit = min(limit, e.cfg.MaxLimit)

	var out []Related
	for _, c := range e.src.Candidates(target.Memory.UserID, store.Filter{}) {
		if c.EntryID == target.EntryID {
			continue
		}
		score, shared := Similarity(&target.Memory, &c.Memory)
		if score > RelatedThreshold {
			out = append(out, Related{Entry: c, Score: score, Shared: shared})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Entry.Memory.CreatedAt.Equal(b.Entry.Memory.CreatedAt) {
			return a.Entry.Memory.CreatedAt.After(b.Entry.Memory.CreatedAt)
		}
		return a.Entry.EntryID < b.Entry.EntryID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Similarity is |sharedKeywords ∪ sharedTags| / |allKeywords ∪ allTags|,
// case-insensitive. It also returns the shared terms, sorted.
func Similarity(a, b *model.Memory) (float64, []string) {
	ka, kb := lowerSet(a.Keywords), lowerSet(b.Keywords)
	ta, tb := lowerSet(a.Tags), lowerSet(b.Tags)

	all := lowerSet(a.Keywords, b.Keywords, a.Tags, b.Tags)
	if len(all) == 0 {
		return 0, nil
	}
	shared := make(map[string]bool)
	for k := range ka {
		if kb[k] {
			shared[k] = true
		}
	}
	for t := range ta {
		if tb[t] {
			shared[t] = true
		}
	}

	terms := make([]string, 0, len(shared))
	for s := range shared {
		terms = append(terms, s)
	}
	sort.Strings(terms)
	return float64(len(shared)) / float64(len(all)), terms
}
