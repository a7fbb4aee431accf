package search

import (
	"reflect"
	"strings"
	"testing"

	"github.com/rcliao/memindex/internal/model"
)

func TestSimilarity(t *testing.T) {
	a := &model.Memory{Keywords: []string{"Go", "testing"}, Tags: []string{"work"}}
	b := &model.Memory{Keywords: []string{"go", "fuzzing"}, Tags: []string{"WORK", "oss"}}

	score, shared := Similarity(a, b)
	// shared {go, work}; all {go, testing, fuzzing, work, oss}
	if score != 2.0/5 {
		t.Errorf("expected 0.4, got %v", score)
	}
	if !reflect.DeepEqual(shared, []string{"go", "work"}) {
		t.Errorf("unexpected shared terms %v", shared)
	}

	if score, _ := Similarity(&model.Memory{}, &model.Memory{}); score != 0 {
		t.Errorf("expected 0 for empty sets, got %v", score)
	}
}

func TestRelated(t *testing.T) {
	f := newFixture(t)
	f.add(t, "target", "x", []string{"go", "testing"}, []string{"work"})
	f.add(t, "close", "x", []string{"go", "testing"}, []string{"work"})
	f.add(t, "partial", "x", []string{"go", "fuzzing"}, []string{"work", "oss"})
	f.add(t, "far", "x", []string{"cooking"}, []string{"home"})
	f.add(t, "weak", "x", []string{"go", "a", "b", "c"}, nil)

	target, _ := f.store.Lookup("entry-target")
	got := f.engine.Related(target, 0)

	var ids []string
	for _, r := range got {
		ids = append(ids, r.Entry.Memory.ID)
		if r.Score <= RelatedThreshold {
			t.Errorf("%s: score %v not above threshold", r.Entry.Memory.ID, r.Score)
		}
	}
	if !reflect.DeepEqual(ids, []string{"close", "partial"}) {
		t.Errorf("expected [close partial], got %v", ids)
	}

	if got := f.engine.Related(target, 1); len(got) != 1 {
		t.Errorf("expected limit 1, got %d", len(got))
	}
}

func TestPack(t *testing.T) {
	mk := func(id, content string, score float64) Result {
		return Result{
			Entry: &model.Entry{EntryID: "e-" + id, Memory: model.Memory{ID: id, Type: model.TypeFacts, Content: content}},
			Score: score,
		}
	}
	results := []Result{
		mk("a", strings.Repeat("a", 200), 0.912),
		mk("b", strings.Repeat("b", 300), 0.8),
		mk("c", strings.Repeat("c", 50), 0.7),
	}

	p := Pack(results, 100) // 400 chars
	if len(p.Memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(p.Memories))
	}
	if p.Memories[0].Excerpt || p.Memories[0].Score != 0.91 {
		t.Errorf("unexpected first memory %+v", p.Memories[0])
	}
	second := p.Memories[1]
	if !second.Excerpt || second.Content != strings.Repeat("b", 200)+"..." {
		t.Errorf("expected 200 char excerpt, got %d chars", len(second.Content))
	}
	if p.Used != (200+203)/4 {
		t.Errorf("expected used %d, got %d", (200+203)/4, p.Used)
	}

	// Too little budget left for an excerpt.
	p = Pack(results, 70) // 280 chars, 80 left after a
	if len(p.Memories) != 1 {
		t.Errorf("expected only the first memory, got %d", len(p.Memories))
	}

	if p := Pack(nil, 0); p.Budget != DefaultBudget || len(p.Memories) != 0 {
		t.Errorf("unexpected empty packing %+v", p)
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	s := "héllo"
	if got := truncate(s, 2); got != "h" {
		t.Errorf("expected %q, got %q", "h", got)
	}
	if got := truncate(s, 3); got != "hé" {
		t.Errorf("expected %q, got %q", "hé", got)
	}
}
