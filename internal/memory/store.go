package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/engramdev/engram/internal/graph"
)

const (
	TierPermanent = "permanent"
	TierTemporary = "temporary"
)

// Store reads and writes memory records under a single scope root. Every call
// reloads its working set (index, graph) from disk and writes it back whole;
// there is no shared in-memory state between calls.
type Store struct {
	root   string
	scope  Scope
	logger *zap.SugaredLogger
}

// NewStore creates a store for one scope root. A nil logger is replaced with
// a no-op.
func NewStore(root string, scope Scope, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{root: root, scope: scope, logger: logger}
}

// Root returns the scope root directory.
func (s *Store) Root() string { return s.root }

// Scope returns the scope this store serves.
func (s *Store) Scope() Scope { return s.scope }

func (s *Store) tierDir(tier string) string {
	return filepath.Join(s.root, tier)
}

func (s *Store) pathFor(id, tier string) string {
	return filepath.Join(s.tierDir(tier), id+".md")
}

// defaultTier maps a type to its storage tier. Breadcrumbs are transient by
// nature; everything else is permanent unless the caller overrides.
func defaultTier(t Type, temporary bool) string {
	if temporary || t == TypeBreadcrumb {
		return TierTemporary
	}
	return TierPermanent
}

// Save validates the request, computes a collision-free id, writes the file
// and syncs the index. Declared links are applied to the graph afterwards;
// a link to a missing target is skipped with a warning, it never fails the
// write.
func (s *Store) Save(req SaveRequest) (*Memory, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	scope := Scope(req.Scope)
	if scope == "" {
		scope = s.scope
	}

	now := time.Now().UTC()
	m := &Memory{
		Type:     Type(req.Type),
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
		Tags:     normalizeTags(req.Tags),
		Scope:    scope,
		Severity: Severity(req.Severity),
		Links:    req.Links,
		Created:  now,
		Updated:  now,
		Tier:     defaultTier(Type(req.Type), req.Temporary),
	}
	m.ID = s.resolveID(string(m.Type) + "-" + Slugify(m.Title))
	m.File = s.pathFor(m.ID, m.Tier)

	if err := s.writeMemory(m); err != nil {
		return nil, err
	}

	idx := LoadIndex(s.root, s.logger)
	idx.Put(entryFromMemory(m))
	if err := idx.Save(s.root); err != nil {
		return nil, fmt.Errorf("sync index: %w", err)
	}

	if len(m.Links) > 0 {
		s.applyDeclaredLinks(m)
	}
	return m, nil
}

// resolveID appends -2, -3, ... until the id is unused in either tier.
func (s *Store) resolveID(base string) string {
	candidate := base
	for n := 2; s.exists(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return candidate
}

func (s *Store) exists(id string) bool {
	for _, tier := range []string{TierPermanent, TierTemporary} {
		if _, err := os.Stat(s.pathFor(id, tier)); err == nil {
			return true
		}
	}
	return false
}

func (s *Store) writeMemory(m *Memory) error {
	data, err := Render(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.tierDir(m.Tier), 0o755); err != nil {
		return fmt.Errorf("create tier dir: %w", err)
	}
	if err := os.WriteFile(m.File, data, 0o644); err != nil {
		return fmt.Errorf("write memory: %w", err)
	}
	return nil
}

func (s *Store) applyDeclaredLinks(m *Memory) {
	g := graph.Load(s.root, s.logger)
	g = g.AddNode(graph.Node{ID: m.ID, Type: string(m.Type)})

	for _, target := range m.Links {
		targetMem, err := s.Get(target)
		if err != nil {
			s.logger.Warnw("declared link target missing, skipping", "source", m.ID, "target", target)
			continue
		}
		g = g.AddNode(graph.Node{ID: targetMem.ID, Type: string(targetMem.Type)})
		next, err := g.AddEdge(m.ID, target, graph.DefaultEdgeLabel)
		if err != nil {
			s.logger.Warnw("declared link rejected", "source", m.ID, "target", target, "error", err)
			continue
		}
		g = next
	}

	if err := graph.Save(s.root, g); err != nil {
		s.logger.Warnw("persist graph after save", "error", err)
	}
}

// Get loads one memory by id. A parse failure on a single-record read is
// surfaced, unlike corpus scans.
func (s *Store) Get(id string) (*Memory, error) {
	for _, tier := range []string{TierPermanent, TierTemporary} {
		path := s.pathFor(id, tier)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read memory: %w", err)
		}
		m, err := Parse(data)
		if err != nil {
			return nil, err
		}
		m.Tier = tier
		m.File = path
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// UpdatePatch carries the mutable fields of a memory. Nil pointers leave the
// field untouched.
type UpdatePatch struct {
	Title    *string
	Content  *string
	Tags     []string
	Severity *string
}

// Update applies a patch, bumps the updated timestamp and rewrites file and
// index entry.
func (s *Store) Update(id string, patch UpdatePatch) (*Memory, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, fmt.Errorf("%w: title must not be blank", ErrValidation)
		}
		m.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" && m.Type != TypeBreadcrumb {
			return nil, fmt.Errorf("%w: content is required for %s memories", ErrValidation, m.Type)
		}
		m.Content = content
	}
	if patch.Tags != nil {
		m.Tags = normalizeTags(patch.Tags)
	}
	if patch.Severity != nil {
		if *patch.Severity != "" && m.Type != TypeGotcha {
			return nil, fmt.Errorf("%w: severity is only valid for gotcha memories", ErrValidation)
		}
		if err := validate.Var(*patch.Severity, "omitempty,oneof=low medium high critical"); err != nil {
			return nil, fmt.Errorf("%w: invalid severity %q", ErrValidation, *patch.Severity)
		}
		m.Severity = Severity(*patch.Severity)
	}
	m.Updated = time.Now().UTC()

	if err := s.writeMemory(m); err != nil {
		return nil, err
	}

	idx := LoadIndex(s.root, s.logger)
	idx.Put(entryFromMemory(m))
	if err := idx.Save(s.root); err != nil {
		return nil, fmt.Errorf("sync index: %w", err)
	}
	return m, nil
}

// Delete removes the memory file and cascades to the index entry and the
// graph node (which strips its edges).
func (s *Store) Delete(id string) error {
	m, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := os.Remove(m.File); err != nil {
		return fmt.Errorf("remove memory: %w", err)
	}

	idx := LoadIndex(s.root, s.logger)
	idx.Remove(id)
	if err := idx.Save(s.root); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}

	g := graph.Load(s.root, s.logger)
	if g.HasNode(id) {
		if err := graph.Save(s.root, g.RemoveNode(id)); err != nil {
			return fmt.Errorf("sync graph: %w", err)
		}
	}
	return nil
}

// Promote moves a temporary memory to the permanent tier.
func (s *Store) Promote(id string) (*Memory, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if m.Tier == TierPermanent {
		return m, nil
	}

	dest := s.pathFor(id, TierPermanent)
	if err := os.MkdirAll(s.tierDir(TierPermanent), 0o755); err != nil {
		return nil, fmt.Errorf("create tier dir: %w", err)
	}
	if err := os.Rename(m.File, dest); err != nil {
		return nil, fmt.Errorf("promote memory: %w", err)
	}
	m.Tier = TierPermanent
	m.File = dest
	m.Updated = time.Now().UTC()
	if err := s.writeMemory(m); err != nil {
		return nil, err
	}

	idx := LoadIndex(s.root, s.logger)
	idx.Put(entryFromMemory(m))
	if err := idx.Save(s.root); err != nil {
		return nil, fmt.Errorf("sync index: %w", err)
	}
	return m, nil
}

// List serves from the index without touching the memory files.
func (s *Store) List(filter ListFilter) []IndexEntry {
	return LoadIndex(s.root, s.logger).List(filter)
}

// Link creates a labelled edge between two existing memories, registering
// graph nodes for them as needed.
func (s *Store) Link(source, target, label string) error {
	src, err := s.Get(source)
	if err != nil {
		return err
	}
	dst, err := s.Get(target)
	if err != nil {
		return err
	}

	g := graph.Load(s.root, s.logger)
	g = g.AddNode(graph.Node{ID: src.ID, Type: string(src.Type)})
	g = g.AddNode(graph.Node{ID: dst.ID, Type: string(dst.Type)})
	g, err = g.AddEdge(source, target, label)
	if err != nil {
		return err
	}
	return graph.Save(s.root, g)
}

// Unlink removes edges between the pair; empty label removes all of them.
func (s *Store) Unlink(source, target, label string) error {
	g := graph.Load(s.root, s.logger)
	return graph.Save(s.root, g.RemoveEdge(source, target, label))
}

// Files lists every memory file under both tiers, sorted for determinism.
func (s *Store) Files() ([]string, error) {
	files := make([]string, 0)
	for _, tier := range []string{TierPermanent, TierTemporary} {
		entries, err := os.ReadDir(s.tierDir(tier))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("list %s: %w", tier, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			files = append(files, filepath.Join(s.tierDir(tier), entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile parses one memory file, deriving tier from its location.
func (s *Store) LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.File = path
	m.Tier = TierPermanent
	if filepath.Base(filepath.Dir(path)) == TierTemporary {
		m.Tier = TierTemporary
	}
	return m, nil
}

// RebuildIndex regenerates index.json from the files on disk. Unparseable
// files are skipped with a warning; the rebuild continues.
func (s *Store) RebuildIndex() (int, error) {
	files, err := s.Files()
	if err != nil {
		return 0, err
	}

	idx := &Index{}
	count := 0
	for _, path := range files {
		m, err := s.LoadFile(path)
		if err != nil {
			s.logger.Warnw("skip unparseable memory", "file", path, "error", err)
			continue
		}
		idx.Put(entryFromMemory(m))
		count++
	}
	if err := idx.Save(s.root); err != nil {
		return 0, err
	}
	return count, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
