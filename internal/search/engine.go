// Package search ranks a user's memories against a free-text query.
//
// Scoring is a weighted sum of six factors in [0,1]: content relevance,
// keyword match, recency, confidence, priority and access frequency. Results
// below the relevance threshold are dropped; the rest are ordered by score,
// then newest first, then entry id, and paginated.
package search

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/memindex/internal/chunker"
	"github.com/rcliao/memindex/internal/clock"
	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/store"
)

const (
	DefaultThreshold = 0.1
	DefaultLimit     = 20
	MaxLimit         = 100
)

// Source supplies the candidate set for a user: readable entries that pass
// the hard filters.
type Source interface {
	Candidates(userID string, f store.Filter) []*model.Entry
}

// Weights are the factor weights. They must be non-negative and sum to 1.
type Weights struct {
	Content  float64 `yaml:"content" json:"content"`
	Keyword  float64 `yaml:"keyword" json:"keyword"`
	Recency  float64 `yaml:"recency" json:"recency"`
	Conf     float64 `yaml:"confidence" json:"confidence"`
	Priority float64 `yaml:"priority" json:"priority"`
	Access   float64 `yaml:"access" json:"access"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{Content: 0.30, Keyword: 0.25, Recency: 0.15, Conf: 0.10, Priority: 0.10, Access: 0.10}
}

// Validate reports whether the weights are usable.
func (w Weights) Validate() error {
	parts := []float64{w.Content, w.Keyword, w.Recency, w.Conf, w.Priority, w.Access}
	sum := 0.0
	for _, p := range parts {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("search weights: negative or NaN weight %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("search weights: sum to %v, want 1", sum)
	}
	return nil
}

// Factors are the per-candidate scoring inputs.
type Factors struct {
	Content  float64 `json:"content_relevance"`
	Keyword  float64 `json:"keyword_match"`
	Recency  float64 `json:"recency"`
	Conf     float64 `json:"confidence"`
	Priority float64 `json:"priority"`
	Access   float64 `json:"access_frequency"`
}

func (f Factors) score(w Weights) float64 {
	return f.Content*w.Content + f.Keyword*w.Keyword + f.Recency*w.Recency +
		f.Conf*w.Conf + f.Priority*w.Priority + f.Access*w.Access
}

// MatchType classifies how a result matched.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchSemantic MatchType = "semantic"
	MatchKeyword  MatchType = "keyword"
	MatchFuzzy    MatchType = "fuzzy"
)

func classify(f Factors) MatchType {
	switch {
	case f.Keyword >= 0.8:
		return MatchExact
	case f.Content >= 0.7:
		return MatchSemantic
	case f.Keyword > 0:
		return MatchKeyword
	default:
		return MatchFuzzy
	}
}

// Query is a search request.
type Query struct {
	UserID          string             `json:"user_id"`
	Text            string             `json:"text"`
	Types           []model.MemoryType `json:"types,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	From            *time.Time         `json:"from,omitempty"`
	To              *time.Time         `json:"to,omitempty"`
	IncludeArchived bool               `json:"include_archived,omitempty"`
	MinRelevance    float64            `json:"min_relevance,omitempty"`
	Offset          int                `json:"offset,omitempty"`
	Limit           int                `json:"limit,omitempty"`
}

// Result is a ranked entry.
type Result struct {
	Entry       *model.Entry `json:"entry"`
	Score       float64      `json:"score"`
	Factors     Factors      `json:"factors"`
	Match       MatchType    `json:"match_type"`
	Explanation string       `json:"explanation"`
	Highlight   string       `json:"highlight,omitempty"`
}

// Page is one page of results. Total counts every result above the
// threshold, before pagination.
type Page struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
}

// Config configures an Engine.
type Config struct {
	Weights      Weights
	Threshold    float64
	DefaultLimit int
	MaxLimit     int
	Chunker      chunker.Options
	Clock        clock.Clock
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Weights:      DefaultWeights(),
		Threshold:    DefaultThreshold,
		DefaultLimit: DefaultLimit,
		MaxLimit:     MaxLimit,
		Chunker:      chunker.DefaultOptions(),
	}
}

// Engine scores candidates from a Source.
type Engine struct {
	src Source
	cfg Config
}

// NewEngine validates cfg and returns an engine over src.
func NewEngine(src Source, cfg Config) (*Engine, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("search threshold %v outside [0,1]", cfg.Threshold)
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	cfg.DefaultLimit = min(cfg.DefaultLimit, cfg.MaxLimit)
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	return &Engine{src: src, cfg: cfg}, nil
}

// Weights returns the engine's factor weights.
func (e *Engine) Weights() Weights { return e.cfg.Weights }

// Search ranks the user's candidates against q and returns the requested
// page.
func (e *Engine) Search(q Query) *Page {
	limit := q.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	limit = min(limit, e.cfg.MaxLimit)
	offset := max(q.Offset, 0)

	ranked := e.Rank(q)
	page := &Page{Results: []Result{}, Total: len(ranked), Offset: offset, Limit: limit}
	if offset >= len(ranked) {
		return page
	}
	end := min(offset+limit, len(ranked))
	page.Results = ranked[offset:end]
	tokens := Tokenize(q.Text)
	for i := range page.Results {
		e.decorate(&page.Results[i], tokens)
	}
	return page
}

// Rank returns every result above the threshold in ranked order, without
// explanations or highlights.
func (e *Engine) Rank(q Query) []Result {
	threshold := math.Max(q.MinRelevance, e.cfg.Threshold)
	tokens := Tokenize(q.Text)
	now := e.cfg.Clock.Now()

	candidates := e.src.Candidates(q.UserID, store.Filter{
		Types:           q.Types,
		Tags:            q.Tags,
		From:            q.From,
		To:              q.To,
		IncludeArchived: q.IncludeArchived,
	})

	var out []Result
	for _, c := range candidates {
		f := Score(&c.Memory, tokens, now)
		s := f.score(e.cfg.Weights)
		if s < threshold {
			continue
		}
		out = append(out, Result{Entry: c, Score: s, Factors: f, Match: classify(f)})
	}
	sortResults(out)
	return out
}

// Score computes the factors of m for the tokenized query at now.
func Score(m *model.Memory, tokens []string, now time.Time) Factors {
	f := Factors{
		Recency:  recency(m.CreatedAt, now),
		Conf:     clamp01(m.Confidence),
		Priority: priorityScore(m.Priority),
		Access:   math.Min(float64(m.AccessCount)/100, 1),
	}
	if len(tokens) == 0 {
		return f
	}

	content := strings.ToLower(m.Content)
	keywords := lowerSet(m.Keywords)
	var inContent, inKeywords int
	for _, t := range tokens {
		if strings.Contains(content, t) {
			inContent++
		}
		if keywords[t] {
			inKeywords++
		}
	}
	n := float64(len(tokens))
	f.Content = float64(inContent) / n
	f.Keyword = float64(inKeywords) / n
	return f
}

func recency(created, now time.Time) float64 {
	days := now.Sub(created).Hours() / 24
	return clamp01(1 - days/365)
}

func priorityScore(p model.Priority) float64 {
	switch p {
	case model.PriorityCritical:
		return 1.0
	case model.PriorityHigh:
		return 0.75
	case model.PriorityMedium:
		return 0.5
	case model.PriorityLow:
		return 0.25
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// sortResults orders by score desc, createdAt desc, entry id asc.
func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ta, tb := a.Entry.Memory.CreatedAt, b.Entry.Memory.CreatedAt
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.Entry.EntryID < b.Entry.EntryID
	})
}
