package memory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/engramdev/engram/internal/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), ScopeLocal, nil)
}

func mustSave(t *testing.T, s *Store, req SaveRequest) *Memory {
	t.Helper()
	m, err := s.Save(req)
	if err != nil {
		t.Fatalf("Save(%q): %v", req.Title, err)
	}
	return m
}

func TestStoreSave(t *testing.T) {
	t.Run("writes file and index entry", func(t *testing.T) {
		s := newTestStore(t)
		m := mustSave(t, s, SaveRequest{Type: "decision", Title: "Use Postgres", Content: "It has the features we need.", Tags: []string{"DB", "db", " infra "}})

		if m.ID != "decision-use-postgres" {
			t.Fatalf("id = %q", m.ID)
		}
		if m.Tier != TierPermanent {
			t.Fatalf("tier = %q", m.Tier)
		}
		if _, err := os.Stat(m.File); err != nil {
			t.Fatalf("memory file missing: %v", err)
		}
		if got := m.Tags; len(got) != 2 || got[0] != "db" || got[1] != "infra" {
			t.Fatalf("tags not normalised: %v", got)
		}

		entry := LoadIndex(s.Root(), nil).Get(m.ID)
		if entry == nil {
			t.Fatal("index entry missing")
		}
		if entry.Title != "Use Postgres" || entry.Type != "decision" {
			t.Fatalf("index entry = %+v", entry)
		}
	})

	t.Run("id collisions get numeric suffixes", func(t *testing.T) {
		s := newTestStore(t)
		req := SaveRequest{Type: "learning", Title: "Same title", Content: "one"}
		first := mustSave(t, s, req)
		second := mustSave(t, s, req)
		third := mustSave(t, s, req)

		if first.ID != "learning-same-title" {
			t.Fatalf("first id = %q", first.ID)
		}
		if second.ID != "learning-same-title-2" || third.ID != "learning-same-title-3" {
			t.Fatalf("suffixed ids = %q, %q", second.ID, third.ID)
		}
	})

	t.Run("breadcrumbs default to temporary tier", func(t *testing.T) {
		s := newTestStore(t)
		m := mustSave(t, s, SaveRequest{Type: "breadcrumb", Title: "Resume at parser"})
		if m.Tier != TierTemporary {
			t.Fatalf("tier = %q", m.Tier)
		}
	})

	t.Run("temporary flag overrides tier", func(t *testing.T) {
		s := newTestStore(t)
		m := mustSave(t, s, SaveRequest{Type: "learning", Title: "Scratch note", Content: "x", Temporary: true})
		if m.Tier != TierTemporary {
			t.Fatalf("tier = %q", m.Tier)
		}
	})

	t.Run("invalid request rejected", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.Save(SaveRequest{Type: "learning", Title: "x"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("declared links land in the graph", func(t *testing.T) {
		s := newTestStore(t)
		target := mustSave(t, s, SaveRequest{Type: "decision", Title: "Single writer", Content: "x"})
		m := mustSave(t, s, SaveRequest{Type: "gotcha", Title: "WAL writers serialise", Content: "x", Links: []string{target.ID, "learning-does-not-exist"}})

		g := graph.Load(s.Root(), nil)
		if !g.HasEdge(m.ID, target.ID, graph.DefaultEdgeLabel) {
			t.Fatal("declared link missing from graph")
		}
		if g.HasNode("learning-does-not-exist") {
			t.Fatal("missing link target should be skipped, not registered")
		}
	})
}

func TestStoreGet(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s := newTestStore(t)
		saved := mustSave(t, s, SaveRequest{Type: "learning", Title: "Indexes", Content: "Covering indexes avoid heap hits."})
		got, err := s.Get(saved.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Title != saved.Title || got.Content != saved.Content || got.Tier != TierPermanent {
			t.Fatalf("got = %+v", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.Get("learning-ghost"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("corrupt file surfaces parse error", func(t *testing.T) {
		s := newTestStore(t)
		dir := filepath.Join(s.Root(), TierPermanent)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "learning-bad.md"), []byte("no frontmatter"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get("learning-bad"); !errors.Is(err, ErrParse) {
			t.Fatalf("expected ErrParse, got %v", err)
		}
	})
}

func TestStoreUpdate(t *testing.T) {
	s := newTestStore(t)
	m := mustSave(t, s, SaveRequest{Type: "learning", Title: "Old title", Content: "old", Tags: []string{"a"}})

	t.Run("patched fields persist", func(t *testing.T) {
		title := "New title"
		content := "new content"
		updated, err := s.Update(m.ID, UpdatePatch{Title: &title, Content: &content, Tags: []string{"b", "c"}})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Title != title || updated.Content != content {
			t.Fatalf("updated = %+v", updated)
		}
		reloaded, err := s.Get(m.ID)
		if err != nil {
			t.Fatalf("Get after update: %v", err)
		}
		if reloaded.Title != title || len(reloaded.Tags) != 2 {
			t.Fatalf("reloaded = %+v", reloaded)
		}
		if entry := LoadIndex(s.Root(), nil).Get(m.ID); entry.Title != title {
			t.Fatalf("index entry title = %q", entry.Title)
		}
	})

	t.Run("blank title rejected", func(t *testing.T) {
		blank := "  "
		if _, err := s.Update(m.ID, UpdatePatch{Title: &blank}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("severity on non-gotcha rejected", func(t *testing.T) {
		sev := "high"
		if _, err := s.Update(m.ID, UpdatePatch{Severity: &sev}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("severity enum is enforced", func(t *testing.T) {
		g := mustSave(t, s, SaveRequest{Type: "gotcha", Title: "Race on shutdown", Content: "x", Severity: "low"})

		bad := "catastrophic"
		if _, err := s.Update(g.ID, UpdatePatch{Severity: &bad}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		reloaded, err := s.Get(g.ID)
		if err != nil {
			t.Fatal(err)
		}
		if reloaded.Severity != SeverityLow {
			t.Fatalf("rejected update persisted severity %q", reloaded.Severity)
		}

		good := "critical"
		if _, err := s.Update(g.ID, UpdatePatch{Severity: &good}); err != nil {
			t.Fatalf("valid severity rejected: %v", err)
		}
		empty := ""
		updated, err := s.Update(g.ID, UpdatePatch{Severity: &empty})
		if err != nil {
			t.Fatalf("clearing severity rejected: %v", err)
		}
		if updated.Severity != "" {
			t.Fatalf("severity not cleared: %q", updated.Severity)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := s.Update("learning-ghost", UpdatePatch{}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	a := mustSave(t, s, SaveRequest{Type: "decision", Title: "Keep", Content: "x"})
	b := mustSave(t, s, SaveRequest{Type: "decision", Title: "Drop", Content: "x"})
	if err := s.Link(a.ID, b.ID, ""); err != nil {
		t.Fatalf("Link: %v", err)
	}

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted memory still readable: %v", err)
	}
	if LoadIndex(s.Root(), nil).Get(b.ID) != nil {
		t.Fatal("index entry survived delete")
	}
	g := graph.Load(s.Root(), nil)
	if g.HasNode(b.ID) {
		t.Fatal("graph node survived delete")
	}
	if g.Degree(a.ID) != 0 {
		t.Fatal("edge to deleted node survived")
	}
	if !g.HasNode(a.ID) {
		t.Fatal("unrelated node was removed")
	}
}

func TestStorePromote(t *testing.T) {
	s := newTestStore(t)
	m := mustSave(t, s, SaveRequest{Type: "learning", Title: "Worth keeping", Content: "x", Temporary: true})

	promoted, err := s.Promote(m.ID)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if promoted.Tier != TierPermanent {
		t.Fatalf("tier = %q", promoted.Tier)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), TierTemporary, m.ID+".md")); !os.IsNotExist(err) {
		t.Fatal("temporary file still present")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), TierPermanent, m.ID+".md")); err != nil {
		t.Fatalf("permanent file missing: %v", err)
	}

	// Promoting a permanent memory is a no-op, not an error.
	again, err := s.Promote(m.ID)
	if err != nil {
		t.Fatalf("second Promote: %v", err)
	}
	if again.Tier != TierPermanent {
		t.Fatalf("tier = %q", again.Tier)
	}
}

func TestStoreList(t *testing.T) {
	s := newTestStore(t)
	mustSave(t, s, SaveRequest{Type: "decision", Title: "Use Postgres", Content: "x", Tags: []string{"db"}})
	mustSave(t, s, SaveRequest{Type: "learning", Title: "Vacuum basics", Content: "x", Tags: []string{"db"}})
	mustSave(t, s, SaveRequest{Type: "learning", Title: "HTTP retries", Content: "x", Tags: []string{"net"}})

	if got := len(s.List(ListFilter{})); got != 3 {
		t.Fatalf("unfiltered count = %d", got)
	}
	if got := len(s.List(ListFilter{Type: "learning"})); got != 2 {
		t.Fatalf("type filter count = %d", got)
	}
	if got := len(s.List(ListFilter{Tag: "DB"})); got != 2 {
		t.Fatalf("tag filter should fold case, count = %d", got)
	}
	if got := s.List(ListFilter{Query: "postgres"}); len(got) != 1 || got[0].ID != "decision-use-postgres" {
		t.Fatalf("query filter = %v", got)
	}
}

func TestStoreUnlink(t *testing.T) {
	s := newTestStore(t)
	a := mustSave(t, s, SaveRequest{Type: "decision", Title: "A", Content: "x"})
	b := mustSave(t, s, SaveRequest{Type: "decision", Title: "B", Content: "x"})
	if err := s.Link(a.ID, b.ID, "supersedes"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := s.Unlink(a.ID, b.ID, ""); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	g := graph.Load(s.Root(), nil)
	if g.HasEdge(a.ID, b.ID, "") {
		t.Fatal("edge survived unlink")
	}
	if !g.HasNode(a.ID) || !g.HasNode(b.ID) {
		t.Fatal("unlink removed nodes")
	}
}

func TestRebuildIndex(t *testing.T) {
	s := newTestStore(t)
	mustSave(t, s, SaveRequest{Type: "learning", Title: "Keep me", Content: "x"})
	mustSave(t, s, SaveRequest{Type: "learning", Title: "Me too", Content: "x"})

	// Corrupt the index and drop an unparseable file into the tier dir.
	if err := os.WriteFile(IndexPath(s.Root()), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), TierPermanent, "learning-bad.md"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := s.RebuildIndex()
	if err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if count != 2 {
		t.Fatalf("rebuilt %d entries, want 2", count)
	}
	idx := LoadIndex(s.Root(), nil)
	if len(idx.Memories) != 2 {
		t.Fatalf("index has %d entries", len(idx.Memories))
	}
	for _, entry := range idx.Memories {
		if strings.Contains(entry.ID, "bad") {
			t.Fatal("unparseable file leaked into index")
		}
	}
}
