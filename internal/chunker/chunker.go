// Package chunker splits memory content into sentence-aligned passages and
// picks the passage that best matches a set of query terms.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 160
	DefaultMaxSize    = 240
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, MaxSize: DefaultMaxSize}
}

func (o Options) withDefaults() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.MaxSize < o.TargetSize {
		o.MaxSize = o.TargetSize
	}
	return o
}

// Passage is a slice of the original text. Start and End are byte offsets,
// so text[Start:End] == Text.
type Passage struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type span struct{ start, end int }

// Split breaks text into passages. Sentences and lines are merged while the
// passage stays within TargetSize; a single sentence longer than MaxSize is
// cut on word boundaries.
func Split(text string, opts Options) []Passage {
	opts = opts.withDefaults()
	segs := sentences(text)
	if len(segs) == 0 {
		return nil
	}

	var out []Passage
	cur := segs[0]
	for _, s := range segs[1:] {
		if s.end-cur.start <= opts.TargetSize {
			cur.end = s.end
			continue
		}
		out = append(out, hardSplit(text, cur, opts.MaxSize)...)
		cur = s
	}
	return append(out, hardSplit(text, cur, opts.MaxSize)...)
}

// Best returns the passage containing the most distinct terms and the number
// of terms it contains. Terms are matched case-insensitively as substrings;
// ties go to the earliest passage. ok is false when text is blank.
func Best(text string, terms []string, opts Options) (p Passage, hits int, ok bool) {
	passages := Split(text, opts)
	if len(passages) == 0 {
		return Passage{}, 0, false
	}
	best := 0
	for i, ps := range passages {
		if n := countTerms(strings.ToLower(ps.Text), terms); n > hits {
			best, hits = i, n
		}
	}
	return passages[best], hits, true
}

func countTerms(lower string, terms []string) int {
	n := 0
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}

// sentences returns trimmed spans ending at a line break or at sentence
// punctuation followed by whitespace.
func sentences(text string) []span {
	var out []span
	start := -1
	for i, r := range text {
		if start < 0 {
			if unicode.IsSpace(r) {
				continue
			}
			start = i
		}
		end := i + utf8.RuneLen(r)
		if r == '\n' || (isTerminal(r) && followedBySpace(text[end:])) {
			out = append(out, trim(text, span{start, end}))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, trim(text, span{start, len(text)}))
	}
	return out
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

func followedBySpace(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}

func trim(text string, s span) span {
	s.end = s.start + len(strings.TrimRightFunc(text[s.start:s.end], unicode.IsSpace))
	return s
}

// hardSplit cuts s into pieces of at most max bytes, preferring the last
// space before the limit and never splitting a rune.
func hardSplit(text string, s span, max int) []Passage {
	var out []Passage
	for s.end-s.start > max {
		cut := s.start + max
		if i := strings.LastIndexFunc(text[s.start:cut], unicode.IsSpace); i > 0 {
			cut = s.start + i
		}
		for cut > s.start && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == s.start {
			_, size := utf8.DecodeRuneInString(text[s.start:])
			cut += size
		}
		piece := trim(text, span{s.start, cut})
		out = append(out, Passage{Text: text[piece.start:piece.end], Start: piece.start, End: piece.end})

		s.start = cut
		for s.start < s.end {
			r, size := utf8.DecodeRuneInString(text[s.start:])
			if !unicode.IsSpace(r) {
				break
			}
			s.start += size
		}
	}
	if s.end > s.start {
		out = append(out, Passage{Text: text[s.start:s.end], Start: s.start, End: s.end})
	}
	return out
}
