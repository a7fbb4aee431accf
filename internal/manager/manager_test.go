package manager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rcliao/memindex/internal/clock"
	"github.com/rcliao/memindex/internal/ids"
	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/search"
	"github.com/rcliao/memindex/internal/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, maxPerUser int) (*Manager, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch)
	m, err := New(Options{
		Store: store.Options{MaxEntriesPerUser: maxPerUser},
		Clock: clk,
		IDs:   ids.NewSequence("id"),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m, clk
}

func pref(content string, keywords ...string) map[string]any {
	kw := make([]any, len(keywords))
	for i, k := range keywords {
		kw[i] = k
	}
	return map[string]any{
		"content": content, "category": "ui", "key": "theme", "value": content, "keywords": kw,
	}
}

func mustCreate(t *testing.T, m *Manager, user string, raw map[string]any) *model.Memory {
	t.Helper()
	r := m.CreateMemory(user, model.TypePreferences, raw)
	if !r.OK {
		t.Fatalf("create: %v", r.Err)
	}
	return r.Value
}

func TestCreateGetRoundTrip(t *testing.T) {
	m, _ := newTestManager(t, 0)
	created := mustCreate(t, m, "alice", pref("Prefers dark mode", "dark", "mode"))

	got := m.GetMemory("alice", created.ID)
	if !got.OK || got.Value == nil {
		t.Fatalf("expected memory, got %+v", got)
	}
	if got.Value.Content != "Prefers dark mode" {
		t.Errorf("expected content round trip, got %q", got.Value.Content)
	}
	if got.Value.UserID != "alice" || !got.Value.CreatedAt.Equal(epoch) {
		t.Errorf("unexpected owner or timestamps: %+v", got.Value)
	}
}

func TestGetIsolation(t *testing.T) {
	m, _ := newTestManager(t, 0)
	created := mustCreate(t, m, "alice", pref("secret"))

	got := m.GetMemory("bob", created.ID)
	if !got.OK || got.Value != nil {
		t.Errorf("expected OK with no value for other user, got %+v", got)
	}
	if got := m.GetMemory("alice", "missing"); !got.OK || got.Value != nil {
		t.Errorf("expected OK with no value for missing id, got %+v", got)
	}
}

func TestCreateValidationFailed(t *testing.T) {
	m, _ := newTestManager(t, 0)
	r := m.CreateMemory("alice", model.TypePreferences, map[string]any{"confidence": 3.0})
	if r.OK || r.Err.Code != CodeValidationFailed {
		t.Fatalf("expected ValidationFailed, got %+v", r)
	}
	if len(r.Err.Fields) < 4 {
		t.Errorf("expected every field reported, got %v", r.Err.Fields)
	}
	if st := m.Stats().Value; st.Store.TotalEntries != 0 {
		t.Error("failed create wrote an entry")
	}

	if r := m.CreateMemory("", model.TypePreferences, pref("x")); r.Err == nil || r.Err.Code != CodeValidationFailed {
		t.Errorf("expected missing user to fail validation, got %+v", r)
	}
}

func TestCapacityExceeded(t *testing.T) {
	m, _ := newTestManager(t, 2)
	mustCreate(t, m, "alice", pref("one", "a"))
	mustCreate(t, m, "alice", pref("two", "b"))
	before := m.Stats().Value.Store.Indexes

	r := m.CreateMemory("alice", model.TypePreferences, pref("three", "c"))
	if r.OK || r.Err.Code != CodeCapacityExceeded {
		t.Fatalf("expected CapacityExceeded, got %+v", r)
	}
	if !errors.Is(r.Err, store.ErrCapacityExceeded) {
		t.Error("failure should wrap the store error")
	}
	if after := m.Stats().Value.Store.Indexes; after != before {
		t.Errorf("indexes changed: %+v -> %+v", before, after)
	}
	mustCreate(t, m, "bob", pref("bob's"))
}

func TestUpdateMemory(t *testing.T) {
	m, clk := newTestManager(t, 0)
	created := mustCreate(t, m, "alice", pref("light mode", "light"))
	clk.Advance(time.Minute)

	r := m.UpdateMemory("alice", created.ID, map[string]any{"content": "dark mode", "keywords": []any{"dark"}})
	if !r.OK {
		t.Fatalf("update: %v", r.Err)
	}
	if r.Value.Content != "dark mode" || r.Value.Preference.Category != "ui" {
		t.Errorf("unexpected updated record %+v", r.Value)
	}
	if !r.Value.UpdatedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("expected updated_at refreshed, got %v", r.Value.UpdatedAt)
	}

	page := m.SearchMemories(search.Query{UserID: "alice", Text: "dark"}).Value
	if page.Total != 1 || page.Results[0].Entry.Version != 2 {
		t.Errorf("expected updated entry at version 2 in search, got %+v", page)
	}

	if r := m.UpdateMemory("alice", created.ID, map[string]any{"priority": "urgent"}); r.Err == nil || r.Err.Code != CodeValidationFailed {
		t.Errorf("expected ValidationFailed, got %+v", r)
	}
	if r := m.UpdateMemory("alice", created.ID, map[string]any{"type": "facts"}); r.Err == nil || r.Err.Code != CodeValidationFailed {
		t.Errorf("expected type change to be refused, got %+v", r)
	}
	if r := m.UpdateMemory("bob", created.ID, map[string]any{"content": "x"}); r.Err == nil || r.Err.Code != CodeNotFound {
		t.Errorf("expected NotFound for other user, got %+v", r)
	}
	if r := m.UpdateMemory("alice", "missing", nil); r.Err == nil || r.Err.Code != CodeNotFound {
		t.Errorf("expected NotFound, got %+v", r)
	}
}

func TestDeleteMemory(t *testing.T) {
	m, _ := newTestManager(t, 0)
	created := mustCreate(t, m, "alice", pref("temp"))

	if r := m.DeleteMemory("bob", created.ID); r.Err == nil || r.Err.Code != CodeNotFound {
		t.Errorf("expected NotFound for other user, got %+v", r)
	}
	if r := m.DeleteMemory("alice", created.ID); !r.OK {
		t.Fatalf("delete: %v", r.Err)
	}
	if r := m.GetMemory("alice", created.ID); r.Value != nil {
		t.Error("deleted memory still readable")
	}
	if r := m.DeleteMemory("alice", created.ID); r.Err == nil || r.Err.Code != CodeNotFound {
		t.Errorf("expected NotFound on second delete, got %+v", r)
	}
}

func TestSearchCacheInvalidation(t *testing.T) {
	m, _ := newTestManager(t, 0)
	mustCreate(t, m, "alice", pref("green tea", "tea"))
	q := search.Query{UserID: "alice", Text: "tea"}

	if p := m.SearchMemories(q).Value; p.Total != 1 {
		t.Fatalf("expected 1 result, got %d", p.Total)
	}
	mustCreate(t, m, "alice", pref("black tea", "tea"))
	if p := m.SearchMemories(q).Value; p.Total != 2 {
		t.Errorf("expected cached page invalidated by create, got %d", p.Total)
	}
}

func TestArchiveExcludedFromSearch(t *testing.T) {
	m, _ := newTestManager(t, 0)
	created := mustCreate(t, m, "alice", pref("old hobby", "hobby"))
	q := search.Query{UserID: "alice", Text: "hobby"}

	if r := m.ArchiveMemory("alice", created.ID); !r.OK {
		t.Fatalf("archive: %v", r.Err)
	}
	if p := m.SearchMemories(q).Value; p.Total != 0 {
		t.Errorf("archived memory in default search")
	}
	q.IncludeArchived = true
	if p := m.SearchMemories(q).Value; p.Total != 1 {
		t.Errorf("archived memory missing with opt-in")
	}
	if r := m.ReactivateMemory("alice", created.ID); !r.OK || r.Value.Status != model.StatusActive {
		t.Fatalf("reactivate: %+v", r)
	}
	if r := m.ReactivateMemory("alice", created.ID); r.Err == nil || r.Err.Code != CodeInvalidTransition {
		t.Errorf("expected InvalidTransition, got %+v", r)
	}
}

func TestExpiredExcludedAndSwept(t *testing.T) {
	m, clk := newTestManager(t, 0)
	raw := pref("short lived", "brief")
	raw["priority"] = "low"
	created := mustCreate(t, m, "alice", raw)
	q := search.Query{UserID: "alice", Text: "brief"}

	if p := m.SearchMemories(q).Value; p.Total != 1 {
		t.Fatalf("expected 1 result before expiry, got %d", p.Total)
	}
	clk.Advance(2 * time.Hour)
	if p := m.SearchMemories(q).Value; p.Total != 0 {
		t.Errorf("expired memory returned from cached search")
	}
	if r := m.GetMemory("alice", created.ID); r.Value != nil {
		t.Error("expired memory readable")
	}

	if r := m.Sweep(); !r.OK || r.Value != 1 {
		t.Errorf("expected sweep to remove 1, got %+v", r)
	}
	if r := m.Sweep(); r.Value != 0 {
		t.Errorf("expected second sweep to remove 0, got %d", r.Value)
	}
}

func TestNotInitialized(t *testing.T) {
	m, err := New(Options{Clock: clock.NewFake(epoch)})
	if err != nil {
		t.Fatal(err)
	}
	r := m.CreateMemory("alice", model.TypePreferences, pref("x"))
	if r.OK || r.Err.Code != CodeNotInitialized || !errors.Is(r.Err, ErrNotInitialized) {
		t.Errorf("expected NotInitialized before Initialize, got %+v", r)
	}

	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := m.Initialize(); err == nil {
		t.Error("expected second Initialize to fail")
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r := m.SearchMemories(search.Query{UserID: "alice"}); r.Err == nil || r.Err.Code != CodeNotInitialized {
		t.Errorf("expected NotInitialized after Shutdown, got %+v", r)
	}
	if err := m.Shutdown(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected second Shutdown to fail, got %v", err)
	}
}

func TestRelatedMemories(t *testing.T) {
	m, _ := newTestManager(t, 0)
	a := mustCreate(t, m, "alice", pref("go testing", "go", "testing"))
	mustCreate(t, m, "alice", pref("go testing tips", "go", "testing"))
	mustCreate(t, m, "alice", pref("cooking", "pasta"))
	mustCreate(t, m, "bob", pref("go testing", "go", "testing"))

	r := m.RelatedMemories("alice", a.ID, 0)
	if !r.OK || len(r.Value) != 1 {
		t.Fatalf("expected 1 related memory, got %+v", r)
	}
	if r := m.RelatedMemories("bob", a.ID, 0); r.Err == nil || r.Err.Code != CodeNotFound {
		t.Errorf("expected NotFound for other user, got %+v", r)
	}
}

func TestAssembleContext(t *testing.T) {
	m, _ := newTestManager(t, 0)
	for i := 0; i < 5; i++ {
		mustCreate(t, m, "alice", pref(fmt.Sprintf("note %d about coffee", i), "coffee"))
	}
	r := m.AssembleContext(search.Query{UserID: "alice", Text: "coffee"}, 10)
	if !r.OK {
		t.Fatal(r.Err)
	}
	if len(r.Value.Memories) == 0 || r.Value.Used > r.Value.Budget+1 {
		t.Errorf("unexpected packing %+v", r.Value)
	}
}

func TestContexts(t *testing.T) {
	m, _ := newTestManager(t, 0)
	root := m.CreateContext(ContextParams{UserID: "alice", Kind: model.ContextProject, Name: "memindex"})
	if !root.OK {
		t.Fatal(root.Err)
	}
	child := m.CreateContext(ContextParams{UserID: "alice", Kind: model.ContextTask, Name: "search", ParentID: root.Value.ID})
	if !child.OK {
		t.Fatal(child.Err)
	}

	path := m.ContextPath("alice", child.Value.ID)
	if !path.OK || len(path.Value) != 2 || path.Value[0].ID != root.Value.ID {
		t.Fatalf("unexpected path %+v", path)
	}

	mem := m.CreateMemory("alice", model.TypeContext, map[string]any{
		"content": "working on ranking", "context_id": child.Value.ID,
	})
	if !mem.OK {
		t.Fatal(mem.Err)
	}
	other := mustCreate(t, m, "alice", pref("unrelated"))
	if r := m.AttachMemory("alice", child.Value.ID, other.ID); !r.OK {
		t.Fatal(r.Err)
	}

	mems := m.ContextMemories("alice", child.Value.ID)
	if !mems.OK || len(mems.Value) != 2 {
		t.Fatalf("expected 2 context memories, got %+v", mems)
	}

	m.DeleteMemory("alice", other.ID)
	if mems := m.ContextMemories("alice", child.Value.ID); len(mems.Value) != 1 {
		t.Errorf("expected dangling link skipped, got %d", len(mems.Value))
	}

	if r := m.GetContext("bob", root.Value.ID); !r.OK || r.Value != nil {
		t.Error("other user read the context")
	}
	if r := m.CreateContext(ContextParams{UserID: "alice", Kind: "bogus", Name: "x"}); r.Err == nil || r.Err.Code != CodeValidationFailed {
		t.Errorf("expected ValidationFailed for bad kind, got %+v", r)
	}
}

func TestVerifyMemory(t *testing.T) {
	m, _ := newTestManager(t, 0)
	created := mustCreate(t, m, "alice", pref("intact"))

	if r := m.VerifyMemory("alice", created.ID); !r.OK || len(r.Value) != 0 {
		t.Errorf("expected intact memory, got %+v", r)
	}
	if r := m.VerifyMemory("bob", created.ID); r.Err == nil || r.Err.Code != CodeNotFound {
		t.Errorf("expected NotFound, got %+v", r)
	}
}

func TestExportImport(t *testing.T) {
	src, _ := newTestManager(t, 0)
	mustCreate(t, src, "alice", pref("a"))
	mustCreate(t, src, "bob", pref("b"))
	exported := src.Export("").Value

	dst, _ := newTestManager(t, 0)
	r := dst.Import(exported)
	if !r.OK || r.Value != 2 {
		t.Fatalf("expected 2 imported, got %+v", r)
	}
	if got := dst.GetMemory("alice", exported[0].Memory.ID); got.Value == nil {
		t.Error("imported memory not readable")
	}

	exported[1].Memory.Content = "tampered"
	again, _ := newTestManager(t, 0)
	r = again.Import(exported)
	if !r.OK || r.Value != 2 {
		t.Fatalf("expected tampered entry imported, got %+v", r)
	}
	v := again.VerifyMemory(exported[1].Memory.UserID, exported[1].Memory.ID)
	if v.OK || v.Err.Code != CodeIntegrityViolation {
		t.Errorf("expected tampered entry to fail verification, got %+v", v)
	}
	if st := again.Stats(); st.Value.Store.InvalidEntries != 1 {
		t.Errorf("expected 1 invalid entry, got %d", st.Value.Store.InvalidEntries)
	}
}

func TestScheduledSweepStopsOnShutdown(t *testing.T) {
	m, err := New(Options{SweepInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestExportImportContexts(t *testing.T) {
	src, _ := newTestManager(t, 0)
	root := src.CreateContext(ContextParams{UserID: "alice", Kind: model.ContextProject, Name: "root"})
	child := src.CreateContext(ContextParams{UserID: "alice", Kind: model.ContextTask, Name: "child", ParentID: root.Value.ID})
	src.CreateContext(ContextParams{UserID: "bob", Kind: model.ContextTopic, Name: "bob's"})

	if got := src.ExportContexts("alice"); !got.OK || len(got.Value) != 2 {
		t.Fatalf("expected 2 alice contexts, got %+v", got)
	}
	all := src.ExportContexts("")
	if !all.OK || len(all.Value) != 3 {
		t.Fatalf("expected 3 contexts, got %+v", all)
	}

	dst, _ := newTestManager(t, 0)
	if r := dst.ImportContexts(all.Value); !r.OK || r.Value != 3 {
		t.Fatalf("expected 3 imported, got %+v", r)
	}
	path := dst.ContextPath("alice", child.Value.ID)
	if !path.OK || len(path.Value) != 2 || path.Value[0].Name != "root" {
		t.Errorf("unexpected path after import %+v", path)
	}

	bad := []*model.Context{{ID: "x", UserID: "alice", Kind: "bogus", Name: "x"}}
	if r := dst.ImportContexts(bad); r.OK || r.Err.Code != CodeValidationFailed {
		t.Errorf("expected ValidationFailed, got %+v", r)
	}
}

func TestListMemories(t *testing.T) {
	m, clk := newTestManager(t, 0)
	first := pref("first")
	first["tags"] = "ui,dark"
	a := mustCreate(t, m, "alice", first)
	clk.Advance(time.Minute)
	b := mustCreate(t, m, "alice", pref("second"))
	clk.Advance(time.Minute)
	c := mustCreate(t, m, "alice", pref("third"))
	mustCreate(t, m, "bob", pref("bob's"))

	got := m.ListMemories("alice", ListParams{})
	if !got.OK || len(got.Value) != 3 {
		t.Fatalf("expected 3 memories, got %+v", got)
	}
	if got.Value[0].ID != c.ID || got.Value[2].ID != a.ID {
		t.Errorf("expected newest first, got %s..%s", got.Value[0].ID, got.Value[2].ID)
	}

	if got := m.ListMemories("alice", ListParams{Tags: []string{"dark", "ui"}}); len(got.Value) != 1 || got.Value[0].ID != a.ID {
		t.Errorf("expected only the tagged memory, got %+v", got.Value)
	}
	if got := m.ListMemories("alice", ListParams{Limit: 2}); len(got.Value) != 2 {
		t.Errorf("expected limit 2, got %d", len(got.Value))
	}

	m.ArchiveMemory("alice", b.ID)
	if got := m.ListMemories("alice", ListParams{}); len(got.Value) != 2 {
		t.Errorf("expected archived excluded, got %d", len(got.Value))
	}
	if got := m.ListMemories("alice", ListParams{IncludeArchived: true}); len(got.Value) != 3 {
		t.Errorf("expected archived included, got %d", len(got.Value))
	}
}

func TestDeleteConcurrentWithSweep(t *testing.T) {
	m, _ := newTestManager(t, 0)
	const n = 50
	created := make([]*model.Memory, n)
	for i := range created {
		created[i] = mustCreate(t, m, "alice", pref(fmt.Sprintf("memory %d", i)))
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				m.Sweep()
			}
		}
	}()

	for _, mem := range created {
		if r := m.DeleteMemory("alice", mem.ID); !r.OK {
			t.Errorf("delete %s: %v", mem.ID, r.Err)
		}
	}
	close(stop)
	<-done

	if st := m.Stats(); st.Value.Store.TotalEntries != 0 {
		t.Errorf("expected empty store, got %d entries", st.Value.Store.TotalEntries)
	}
}

func TestUnclassifiedRecordErrorIsValidationFailed(t *testing.T) {
	f := toFailure(fmt.Errorf("update e1: confidence out of range: %w", store.ErrInvalidRecord))
	if f.Code != CodeValidationFailed {
		t.Errorf("expected %s, got %s", CodeValidationFailed, f.Code)
	}
}
