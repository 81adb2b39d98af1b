package quality

import (
	"strings"
	"testing"

	"github.com/engramdev/engram/internal/graph"
	"github.com/engramdev/engram/internal/memory"
)

func hasIssueContaining(issues []string, fragment string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, fragment) {
			return true
		}
	}
	return false
}

func TestHealthStatus(t *testing.T) {
	cases := map[int]string{100: "healthy", 90: "healthy", 89: "warning", 70: "warning", 69: "critical", 0: "critical"}
	for score, want := range cases {
		if got := HealthStatus(score); got != want {
			t.Errorf("HealthStatus(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	t.Run("uninitialised root", func(t *testing.T) {
		h := CheckHealth(t.TempDir(), nil)
		if h.Score != 40 {
			t.Fatalf("score = %d, want 40", h.Score)
		}
		if h.Status != "critical" {
			t.Fatalf("status = %q", h.Status)
		}
		if !hasIssueContaining(h.Issues, "index file missing") || !hasIssueContaining(h.Issues, "graph file missing") {
			t.Fatalf("issues = %v", h.Issues)
		}
	})

	t.Run("missing index only", func(t *testing.T) {
		root := t.TempDir()
		if err := graph.Save(root, graph.New()); err != nil {
			t.Fatal(err)
		}
		h := CheckHealth(root, nil)
		if h.Score != 70 || h.Status != "warning" {
			t.Fatalf("score = %d status = %q", h.Score, h.Status)
		}
	})

	t.Run("missing index with orphans stays in the warning band", func(t *testing.T) {
		// Ten nodes, two of them edge-less, no index file. Only the flat
		// missing-index penalty applies; the per-node orphan charge needs
		// both files present.
		root := t.TempDir()
		g := graph.New()
		ids := []string{"a-1", "b-1", "c-1", "d-1", "e-1", "f-1", "g-1", "h-1", "i-1", "j-1"}
		for _, id := range ids {
			g = g.AddNode(graph.Node{ID: id, Type: "learning"})
		}
		var err error
		for i := 0; i < 7; i++ {
			g, err = g.AddEdge(ids[i], ids[i+1], "")
			if err != nil {
				t.Fatal(err)
			}
		}
		if err := graph.Save(root, g); err != nil {
			t.Fatal(err)
		}

		h := CheckHealth(root, nil)
		if h.Score != 70 || h.Status != "warning" {
			t.Fatalf("score = %d status = %q, issues = %v", h.Score, h.Status, h.Issues)
		}
		if !hasIssueContaining(h.Issues, "orphaned") {
			t.Fatalf("orphans should still be reported: %v", h.Issues)
		}
	})

	t.Run("synced linked corpus is healthy", func(t *testing.T) {
		s := newTestStore(t)
		a := mustSave(t, s, memory.SaveRequest{Type: "learning", Title: "A", Content: "x"})
		b := mustSave(t, s, memory.SaveRequest{Type: "learning", Title: "B", Content: "x"})
		if err := s.Link(a.ID, b.ID, ""); err != nil {
			t.Fatal(err)
		}

		h := CheckHealth(s.Root(), nil)
		if h.Score != 100 || h.Status != "healthy" {
			t.Fatalf("score = %d status = %q issues = %v", h.Score, h.Status, h.Issues)
		}
		if h.Nodes != 2 || h.Edges != 1 || h.IndexSize != 2 {
			t.Fatalf("counts = %d/%d/%d", h.Nodes, h.Edges, h.IndexSize)
		}
	})

	t.Run("orphaned nodes are charged", func(t *testing.T) {
		s := newTestStore(t)
		a := mustSave(t, s, memory.SaveRequest{Type: "learning", Title: "A", Content: "x"})
		b := mustSave(t, s, memory.SaveRequest{Type: "learning", Title: "B", Content: "x"})
		c := mustSave(t, s, memory.SaveRequest{Type: "learning", Title: "C", Content: "x"})
		if err := s.Link(a.ID, b.ID, ""); err != nil {
			t.Fatal(err)
		}
		g := graph.Load(s.Root(), nil)
		g = g.AddNode(graph.Node{ID: c.ID, Type: "learning"})
		if err := graph.Save(s.Root(), g); err != nil {
			t.Fatal(err)
		}

		h := CheckHealth(s.Root(), nil)
		if h.Score != 97 {
			t.Fatalf("score = %d, want 97, issues = %v", h.Score, h.Issues)
		}
		if !hasIssueContaining(h.Issues, "orphaned") {
			t.Fatalf("issues = %v", h.Issues)
		}
	})

	t.Run("sync mismatches both directions", func(t *testing.T) {
		s := newTestStore(t)
		mustSave(t, s, memory.SaveRequest{Type: "learning", Title: "Indexed only", Content: "x"})

		// One graph node with no index entry, one index entry with no node.
		g := graph.New().AddNode(graph.Node{ID: "learning-node-only", Type: "learning"})
		if err := graph.Save(s.Root(), g); err != nil {
			t.Fatal(err)
		}

		h := CheckHealth(s.Root(), nil)
		// 100 - 3 (orphan) - 2 - 2 (sync, one per direction).
		if h.Score != 93 {
			t.Fatalf("score = %d, issues = %v", h.Score, h.Issues)
		}
		if !hasIssueContaining(h.Issues, "no graph node") || !hasIssueContaining(h.Issues, "no index entry") {
			t.Fatalf("issues = %v", h.Issues)
		}
	})

	t.Run("low connectivity on larger graphs", func(t *testing.T) {
		s := newTestStore(t)
		ids := []string{}
		for _, title := range []string{"A", "B", "C", "D", "E"} {
			m := mustSave(t, s, memory.SaveRequest{Type: "learning", Title: title, Content: "x"})
			ids = append(ids, m.ID)
		}
		g := graph.Load(s.Root(), nil)
		for _, id := range ids {
			g = g.AddNode(graph.Node{ID: id, Type: "learning"})
		}
		var err error
		g, err = g.AddEdge(ids[0], ids[1], "")
		if err != nil {
			t.Fatal(err)
		}
		if err := graph.Save(s.Root(), g); err != nil {
			t.Fatal(err)
		}

		h := CheckHealth(s.Root(), nil)
		// 100 - 9 (three orphans) - 15 (connectivity).
		if h.Score != 76 {
			t.Fatalf("score = %d, issues = %v", h.Score, h.Issues)
		}
		if !hasIssueContaining(h.Issues, "less than half") {
			t.Fatalf("issues = %v", h.Issues)
		}
	})

	t.Run("fully degraded root bottoms out critical", func(t *testing.T) {
		// Both files exist but nothing lines up: every index entry lacks a
		// node, every node lacks an entry and has no edges.
		root := t.TempDir()
		idx := &memory.Index{}
		for _, id := range []string{"p-1", "q-1", "r-1", "s-1", "t-1", "u-1", "v-1", "w-1", "x-1", "y-1"} {
			idx.Put(memory.IndexEntry{ID: id, Type: "learning"})
		}
		if err := idx.Save(root); err != nil {
			t.Fatal(err)
		}
		g := graph.New()
		for _, id := range []string{"a-1", "b-1", "c-1", "d-1", "e-1", "f-1", "g-1", "h-1", "i-1", "j-1", "k-1", "l-1"} {
			g = g.AddNode(graph.Node{ID: id, Type: "learning"})
		}
		if err := graph.Save(root, g); err != nil {
			t.Fatal(err)
		}

		h := CheckHealth(root, nil)
		// 100 - 30 (orphan cap) - 20 - 20 (sync caps) - 15 (connectivity);
		// still bounded below by zero whatever the inputs.
		if h.Score != 15 {
			t.Fatalf("score = %d, issues = %v", h.Score, h.Issues)
		}
		if h.Status != "critical" {
			t.Fatalf("status = %q", h.Status)
		}
	})
}
