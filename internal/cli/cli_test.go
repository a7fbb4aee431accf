package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

func TestParseFields(t *testing.T) {
	raw := map[string]any{}
	err := parseFields(raw, []string{"key=theme", "value=a=b", "strength=0.8", "verified=true", "frequency=3"})
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if raw["key"] != "theme" {
		t.Errorf("expected theme, got %v", raw["key"])
	}
	if raw["value"] != "a=b" {
		t.Errorf("expected value split on first '=', got %v", raw["value"])
	}
	if raw["strength"] != 0.8 {
		t.Errorf("expected float 0.8, got %#v", raw["strength"])
	}
	if raw["verified"] != true {
		t.Errorf("expected bool true, got %#v", raw["verified"])
	}
	if raw["frequency"] != 3 {
		t.Errorf("expected int 3, got %#v", raw["frequency"])
	}

	if err := parseFields(raw, []string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestParseTypes(t *testing.T) {
	types, err := parseTypes("facts, behavior")
	if err != nil {
		t.Fatalf("parseTypes: %v", err)
	}
	if len(types) != 2 || types[0] != model.TypeFacts || types[1] != model.TypeBehavior {
		t.Errorf("unexpected types %v", types)
	}
	if _, err := parseTypes("facts,opinions"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2024-03-01")
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", got)
	}
	if got, _ := parseTime(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memories.json")

	snap, err := readSnapshot(path)
	if err != nil {
		t.Fatalf("missing snapshot should read as empty: %v", err)
	}
	if len(snap.Entries) != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", len(snap.Entries))
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap.Entries = append(snap.Entries, model.Entry{
		EntryID: "e1",
		Status:  model.StatusActive,
		Version: 1,
		Memory:  model.Memory{ID: "m1", UserID: "u1", Type: model.TypeFacts, Content: "x", CreatedAt: now},
	})
	snap.Contexts = append(snap.Contexts, &model.Context{ID: "c1", UserID: "u1", Kind: model.ContextTask, Name: "t", StartTime: now})

	if err := writeSnapshot(path, snap); err != nil {
		t.Fatalf("writeSnapshot: %v", err)
	}
	got, err := readSnapshot(path)
	if err != nil {
		t.Fatalf("readSnapshot: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Memory.ID != "m1" {
		t.Errorf("unexpected entries %+v", got.Entries)
	}
	if len(got.Contexts) != 1 || got.Contexts[0].Name != "t" {
		t.Errorf("unexpected contexts %+v", got.Contexts)
	}
}
