package store

import (
	"testing"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

func TestSweepRemovesExpired(t *testing.T) {
	s, clk := newTestStore(t, 0)
	low := fact("m1", "alice", "short lived", []string{"k"}, nil)
	low.Priority = model.PriorityLow
	mustPut(t, s, "e1", low)
	mustPut(t, s, "e2", fact("m2", "alice", "day long", nil, nil))
	mustPut(t, s, "e3", fact("m3", "alice", "doomed", nil, nil))
	if _, err := s.Transition("alice", "e3", model.StatusDeleted); err != nil {
		t.Fatal(err)
	}

	clk.Advance(2 * time.Hour)
	if n := s.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if n := s.Sweep(); n != 0 {
		t.Errorf("expected second sweep to remove nothing, got %d", n)
	}
	if ids := s.ForUser("alice"); len(ids) != 1 || ids[0] != "e2" {
		t.Errorf("expected only e2 left, got %v", ids)
	}
	if len(s.WithKeyword("alice", "k")) != 0 {
		t.Error("swept entry left in keyword index")
	}
}

func TestSweepBatches(t *testing.T) {
	s, clk := newTestStore(t, 0)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		m := fact("m-"+id, "alice", "x", nil, nil)
		m.Priority = model.PriorityLow
		mustPut(t, s, id, m)
	}
	clk.Advance(time.Hour)
	if n := s.Sweep(); n != 5 {
		t.Errorf("expected all 5 removed across batches, got %d", n)
	}
}

func TestSweepFlagsCorruptEntries(t *testing.T) {
	s, _ := newTestStore(t, 0)
	e := s.NewEntry("e1", fact("m1", "alice", "x", nil, nil))
	e.Checksum = "bogus"
	if err := s.Put(e); err != nil {
		t.Fatal(err)
	}
	mustPut(t, s, "e2", fact("m2", "alice", "y", nil, nil))

	if n := s.Sweep(); n != 0 {
		t.Errorf("expected nothing removed, got %d", n)
	}
	got, _ := s.Lookup("e1")
	if got.IsValid {
		t.Error("expected corrupt entry marked invalid")
	}
	if healthy, _ := s.Lookup("e2"); !healthy.IsValid {
		t.Error("healthy entry marked invalid")
	}

	s.Sweep()
	again, _ := s.Lookup("e1")
	if len(again.ValidationErrors) != len(got.ValidationErrors) {
		t.Error("repeated sweep should not re-flag an invalid entry")
	}
}

func TestSweepRevalidatesBeforeFlagging(t *testing.T) {
	s, clk := newTestStore(t, 0)
	e := s.NewEntry("e1", fact("m1", "alice", "x", nil, nil))
	e.Checksum = "bogus"
	if err := s.Put(e); err != nil {
		t.Fatal(err)
	}

	// An update between the scan and the flagging pass repairs the checksum.
	if _, err := s.Update("alice", "e1", func(m *model.Memory) error {
		m.Content = "rewritten"
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if n := s.flagInvalid([]string{"e1", "missing"}, clk.Now()); n != 0 {
		t.Errorf("expected nothing flagged, got %d", n)
	}
	if got, _ := s.Lookup("e1"); !got.IsValid || len(got.ValidationErrors) != 0 {
		t.Errorf("repaired entry was flagged: %+v", got.ValidationErrors)
	}
}
