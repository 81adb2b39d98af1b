package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/engramdev/engram/internal/graph"
)

// BundleVersion is written into every export for forward compatibility.
const BundleVersion = 1

// BundleMemory is one exported record with its body inline.
type BundleMemory struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Content  string   `json:"content,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Scope    string   `json:"scope"`
	Severity string   `json:"severity,omitempty"`
	Tier     string   `json:"tier"`
	Created  string   `json:"created"`
	Updated  string   `json:"updated"`
}

// Bundle is a portable snapshot of one scope root: memories plus graph edges.
type Bundle struct {
	Version    int            `json:"version"`
	BundleID   string         `json:"bundle_id"`
	ExportedAt string         `json:"exported_at"`
	Memories   []BundleMemory `json:"memories"`
	Edges      []graph.Edge   `json:"edges"`
}

// ImportStrategy decides what happens when an incoming id already exists.
type ImportStrategy string

const (
	ImportSkip      ImportStrategy = "skip"
	ImportOverwrite ImportStrategy = "overwrite"
)

// ImportReport carries per-item counts for the batch.
type ImportReport struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Edges    int `json:"edges"`
	Errors   int `json:"errors"`
}

// Export snapshots every parseable memory under the root together with the
// graph's edges. Unparseable files are skipped, not fatal.
func (s *Store) Export() (*Bundle, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Version:    BundleVersion,
		BundleID:   uuid.NewString(),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Memories:   []BundleMemory{},
		Edges:      []graph.Edge{},
	}

	for _, path := range files {
		m, err := s.LoadFile(path)
		if err != nil {
			s.logger.Warnw("skip unparseable memory in export", "file", path, "error", err)
			continue
		}
		bundle.Memories = append(bundle.Memories, BundleMemory{
			ID:       m.ID,
			Type:     string(m.Type),
			Title:    m.Title,
			Content:  m.Content,
			Tags:     m.Tags,
			Scope:    string(m.Scope),
			Severity: string(m.Severity),
			Tier:     m.Tier,
			Created:  m.Created.UTC().Format(time.RFC3339),
			Updated:  m.Updated.UTC().Format(time.RFC3339),
		})
	}

	g := graph.Load(s.root, s.logger)
	bundle.Edges = append(bundle.Edges, g.Edges...)
	return bundle, nil
}

// WriteBundle serialises a bundle to path.
func WriteBundle(path string, bundle *Bundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

// ReadBundle loads a bundle from path. Corruption here is surfaced: an import
// source the user named must be intact.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("%w: bundle: %v", ErrParse, err)
	}
	return &bundle, nil
}

// Import writes bundle records into this root. Existing ids are skipped or
// overwritten per strategy; edges are applied after all nodes so the graph
// invariants hold. Per-item failures are counted and the batch continues.
func (s *Store) Import(bundle *Bundle, strategy ImportStrategy) (*ImportReport, error) {
	if strategy == "" {
		strategy = ImportSkip
	}
	if strategy != ImportSkip && strategy != ImportOverwrite {
		return nil, fmt.Errorf("%w: unknown import strategy %q", ErrValidation, strategy)
	}

	report := &ImportReport{}
	idx := LoadIndex(s.root, s.logger)

	for _, bm := range bundle.Memories {
		if !ValidID(bm.ID) {
			s.logger.Warnw("skip bundle record with invalid id", "id", bm.ID)
			report.Errors++
			continue
		}
		if s.exists(bm.ID) && strategy == ImportSkip {
			report.Skipped++
			continue
		}

		tier := bm.Tier
		if tier != TierPermanent && tier != TierTemporary {
			tier = TierPermanent
		}
		m := &Memory{
			ID:       bm.ID,
			Type:     Type(bm.Type),
			Title:    bm.Title,
			Content:  bm.Content,
			Tags:     bm.Tags,
			Scope:    Scope(bm.Scope),
			Severity: Severity(bm.Severity),
			Created:  parseTimestamp(bm.Created),
			Updated:  parseTimestamp(bm.Updated),
			Tier:     tier,
		}
		if m.Created.IsZero() {
			m.Created = time.Now().UTC()
		}
		if m.Updated.IsZero() {
			m.Updated = m.Created
		}
		m.File = s.pathFor(m.ID, m.Tier)

		if err := s.writeMemory(m); err != nil {
			s.logger.Warnw("import record failed", "id", bm.ID, "error", err)
			report.Errors++
			continue
		}
		idx.Put(entryFromMemory(m))
		report.Imported++
	}

	if err := idx.Save(s.root); err != nil {
		return nil, fmt.Errorf("sync index: %w", err)
	}

	g := graph.Load(s.root, s.logger)
	for _, edge := range bundle.Edges {
		for _, id := range []string{edge.Source, edge.Target} {
			if !g.HasNode(id) && s.exists(id) {
				if m, err := s.Get(id); err == nil {
					g = g.AddNode(graph.Node{ID: m.ID, Type: string(m.Type)})
				}
			}
		}
		next, err := g.AddEdge(edge.Source, edge.Target, edge.Label)
		if err != nil {
			s.logger.Warnw("import edge failed", "source", edge.Source, "target", edge.Target, "error", err)
			report.Errors++
			continue
		}
		g = next
		report.Edges++
	}
	if err := graph.Save(s.root, g); err != nil {
		return nil, fmt.Errorf("sync graph: %w", err)
	}

	return report, nil
}
