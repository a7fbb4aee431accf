package chunker

import (
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	if result := Split("", DefaultOptions()); result != nil {
		t.Errorf("expected nil, got %v", result)
	}
	if result := Split("  \n\t ", DefaultOptions()); result != nil {
		t.Errorf("expected nil for blank input, got %v", result)
	}
}

func TestSplit_ShortContent(t *testing.T) {
	text := "User prefers dark mode. Uses vim."
	result := Split(text, DefaultOptions())
	if len(result) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(result))
	}
	if result[0].Text != text {
		t.Errorf("expected %q, got %q", text, result[0].Text)
	}
}

func TestSplit_SentenceBoundaries(t *testing.T) {
	text := "Works at Acme. Lives in Lisbon! Owns a cat?"
	result := Split(text, Options{TargetSize: 20, MaxSize: 40})
	want := []string{"Works at Acme.", "Lives in Lisbon!", "Owns a cat?"}
	if len(result) != len(want) {
		t.Fatalf("expected %d passages, got %d: %v", len(want), len(result), result)
	}
	for i, w := range want {
		if result[i].Text != w {
			t.Errorf("passage %d: expected %q, got %q", i, w, result[i].Text)
		}
	}
}

func TestSplit_DecimalIsNotABoundary(t *testing.T) {
	result := Split("Version 1.5 shipped today. Next one soon.", Options{TargetSize: 10, MaxSize: 40})
	if len(result) != 2 || result[0].Text != "Version 1.5 shipped today." {
		t.Errorf("unexpected split: %v", result)
	}
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	opts := Options{TargetSize: 50, MaxSize: 60}
	text := strings.Repeat("word ", 60)
	result := Split(text, opts)
	if len(result) < 2 {
		t.Fatalf("expected at least 2 passages, got %d", len(result))
	}
	for _, p := range result {
		if len(p.Text) > opts.MaxSize {
			t.Errorf("passage exceeds max size: %d", len(p.Text))
		}
		if strings.HasPrefix(p.Text, " ") || strings.HasSuffix(p.Text, " ") {
			t.Errorf("passage not trimmed: %q", p.Text)
		}
	}
}

func TestSplit_OffsetsMatchText(t *testing.T) {
	text := "  First line\nSecond line.  Third sentence here.\n\nCafé au lait ☕ every morning. "
	for _, p := range Split(text, Options{TargetSize: 12, MaxSize: 16}) {
		if text[p.Start:p.End] != p.Text {
			t.Errorf("offsets [%d,%d) do not match %q", p.Start, p.End, p.Text)
		}
	}
}

func TestSplit_NoSpaces(t *testing.T) {
	text := strings.Repeat("é", 50)
	result := Split(text, Options{TargetSize: 7, MaxSize: 7})
	var joined strings.Builder
	for _, p := range result {
		joined.WriteString(p.Text)
	}
	if joined.String() != text {
		t.Error("hard split lost or broke runes")
	}
}

func TestBest(t *testing.T) {
	text := "Has two kids. Prefers dark mode in every editor. Drinks tea."
	p, hits, ok := Best(text, []string{"dark", "mode"}, Options{TargetSize: 20, MaxSize: 60})
	if !ok {
		t.Fatal("expected a passage")
	}
	if hits != 2 {
		t.Errorf("expected 2 hits, got %d", hits)
	}
	if p.Text != "Prefers dark mode in every editor." {
		t.Errorf("unexpected passage %q", p.Text)
	}

	p, hits, _ = Best(text, []string{"coffee"}, Options{TargetSize: 20, MaxSize: 60})
	if hits != 0 || p.Text != "Has two kids." {
		t.Errorf("expected first passage with no hits, got %q (%d)", p.Text, hits)
	}

	if _, _, ok := Best("", []string{"x"}, DefaultOptions()); ok {
		t.Error("expected no passage for empty text")
	}
}
