package store

import (
	"errors"
	"testing"
	"time"

	"github.com/rcliao/memindex/internal/model"
)

func newCtx(id, user, parent string) *model.Context {
	return &model.Context{
		ID: id, UserID: user, Kind: model.ContextProject, Name: id,
		ParentContextID: parent, StartTime: epoch,
	}
}

func TestContextsPath(t *testing.T) {
	c := NewContexts(0)
	for _, ctx := range []*model.Context{
		newCtx("root", "alice", ""),
		newCtx("mid", "alice", "root"),
		newCtx("leaf", "alice", "mid"),
	} {
		if err := c.Put(ctx); err != nil {
			t.Fatal(err)
		}
	}

	path, err := c.Path("alice", "leaf")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"root", "mid", "leaf"}
	if len(path) != len(want) {
		t.Fatalf("expected %d contexts, got %d", len(want), len(path))
	}
	for i, id := range want {
		if path[i].ID != id {
			t.Errorf("path[%d]: expected %s, got %s", i, id, path[i].ID)
		}
	}

	if kids := c.Children("alice", "root"); len(kids) != 1 || kids[0].ID != "mid" {
		t.Errorf("expected mid as root's child, got %v", kids)
	}
	if _, err := c.Path("bob", "leaf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign path, got %v", err)
	}
}

func TestContextsCycle(t *testing.T) {
	c := NewContexts(0)
	c.Put(newCtx("a", "alice", "b"))
	c.Put(newCtx("b", "alice", "a"))

	path, err := c.Path("alice", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 2 {
		t.Errorf("expected cycle walk to stop after 2, got %d", len(path))
	}
}

func TestContextsDepthBound(t *testing.T) {
	c := NewContexts(3)
	parent := ""
	for _, id := range []string{"c0", "c1", "c2", "c3", "c4"} {
		c.Put(newCtx(id, "alice", parent))
		parent = id
	}
	path, _ := c.Path("alice", "c4")
	if len(path) != 3 || path[len(path)-1].ID != "c4" {
		t.Errorf("expected 3 contexts ending at c4, got %d", len(path))
	}
}

func TestContextsDanglingParent(t *testing.T) {
	c := NewContexts(0)
	c.Put(newCtx("orphan", "alice", "missing"))
	path, err := c.Path("alice", "orphan")
	if err != nil || len(path) != 1 {
		t.Errorf("expected single-element path, got %d %v", len(path), err)
	}
}

func TestContextsAttachAndForUser(t *testing.T) {
	c := NewContexts(0)
	later := newCtx("later", "alice", "")
	later.StartTime = epoch.Add(time.Hour)
	c.Put(later)
	c.Put(newCtx("first", "alice", ""))

	if err := c.Attach("alice", "first", "m1"); err != nil {
		t.Fatal(err)
	}
	c.Attach("alice", "first", "m1")
	got, _ := c.Get("alice", "first")
	if len(got.RelatedMemoryIDs) != 1 {
		t.Errorf("expected attach to be idempotent, got %v", got.RelatedMemoryIDs)
	}
	if err := c.Attach("bob", "first", "m2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	all := c.ForUser("alice")
	if len(all) != 2 || all[0].ID != "first" {
		t.Errorf("expected contexts ordered by start time, got %d", len(all))
	}
	if err := c.Put(&model.Context{ID: "x", UserID: "alice", Kind: "bogus"}); err == nil {
		t.Error("expected invalid kind to be refused")
	}
}
