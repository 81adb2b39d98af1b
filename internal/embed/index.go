package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/engramdev/engram/internal/memory"
)

const semanticDirName = "semantic"

// Index is the per-scope parallel-array embedding index: embeddings[i] is the
// vector for memory_ids[i].
type Index struct {
	Embeddings [][]float32 `json:"embeddings"`
	MemoryIDs  []string    `json:"memory_ids"`
}

// ManifestEntry is the display metadata the manifest keeps per memory so
// search results don't require touching the memory files.
type ManifestEntry struct {
	Title string   `json:"title"`
	File  string   `json:"file"`
	Tags  []string `json:"tags,omitempty"`
}

// Manifest maps memory id to its display metadata.
type Manifest struct {
	Memories map[string]ManifestEntry `json:"memories"`
}

func IndexPath(root, scope string) string {
	return filepath.Join(root, semanticDirName, scope+"-index.json")
}

func ManifestPath(root, scope string) string {
	return filepath.Join(root, semanticDirName, scope+"-manifest.json")
}

// LoadIndex reads the semantic index pair. Any read or parse failure yields
// (nil, nil): a broken index is just a stale one.
func LoadIndex(root, scope string, logger *zap.SugaredLogger) (*Index, *Manifest) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	data, err := os.ReadFile(IndexPath(root, scope))
	if err != nil {
		return nil, nil
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		logger.Warnw("corrupt semantic index", "root", root, "scope", scope, "error", err)
		return nil, nil
	}
	if len(idx.Embeddings) != len(idx.MemoryIDs) {
		logger.Warnw("semantic index arrays out of sync", "root", root, "scope", scope)
		return nil, nil
	}

	manifest := &Manifest{Memories: map[string]ManifestEntry{}}
	if data, err := os.ReadFile(ManifestPath(root, scope)); err == nil {
		if err := json.Unmarshal(data, manifest); err != nil {
			logger.Warnw("corrupt semantic manifest", "root", root, "scope", scope, "error", err)
			manifest = &Manifest{Memories: map[string]ManifestEntry{}}
		}
	}
	return &idx, manifest
}

// IsStale reports whether the semantic index no longer reflects the memory
// files: true when no index exists, false when the index exists but the
// memory directories are absent, otherwise true iff any .md file is newer
// than the index.
func IsStale(root, scope string) bool {
	info, err := os.Stat(IndexPath(root, scope))
	if err != nil {
		return true
	}
	indexTime := info.ModTime()

	// Absent memory directories leave nothing newer than the index, so an
	// existing index over an empty root is fresh by definition.
	for _, tier := range []string{memory.TierPermanent, memory.TierTemporary} {
		dir := filepath.Join(root, tier)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
				continue
			}
			if fi, err := entry.Info(); err == nil && fi.ModTime().After(indexTime) {
				return true
			}
		}
	}
	return false
}

// BuildReport summarises an index build.
type BuildReport struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// BuildIndex embeds every non-ephemeral memory under the store's root and
// rewrites the index and manifest. Vectors come through the cache keyed by
// memory id. Per-file failures are counted; the build continues.
func BuildIndex(ctx context.Context, store *memory.Store, embedder Embedder, cache *Cache, logger *zap.SugaredLogger) (*BuildReport, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	files, err := store.Files()
	if err != nil {
		return nil, err
	}

	report := &BuildReport{}
	idx := &Index{Embeddings: [][]float32{}, MemoryIDs: []string{}}
	manifest := &Manifest{Memories: map[string]ManifestEntry{}}

	for _, path := range files {
		m, err := store.LoadFile(path)
		if err != nil {
			logger.Warnw("skip unparseable memory in index build", "file", path, "error", err)
			report.Errors++
			continue
		}
		if m.IsEphemeral() {
			report.Skipped++
			continue
		}

		vector := cache.Load(m.ID)
		if vector == nil {
			vector, err = embedder.Embed(ctx, embeddingText(m))
			if err != nil {
				logger.Warnw("embed memory failed", "id", m.ID, "error", err)
				report.Errors++
				continue
			}
			cache.Save(m.ID, vector)
		}

		idx.Embeddings = append(idx.Embeddings, vector)
		idx.MemoryIDs = append(idx.MemoryIDs, m.ID)
		manifest.Memories[m.ID] = ManifestEntry{
			Title: m.Title,
			File:  filepath.Base(m.File),
			Tags:  m.Tags,
		}
		report.Indexed++
	}

	if err := writeIndex(store.Root(), string(store.Scope()), idx, manifest); err != nil {
		return nil, err
	}
	return report, nil
}

func writeIndex(root, scope string, idx *Index, manifest *Manifest) error {
	dir := filepath.Join(root, semanticDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create semantic dir: %w", err)
	}

	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal semantic index: %w", err)
	}
	if err := os.WriteFile(IndexPath(root, scope), data, 0o644); err != nil {
		return fmt.Errorf("write semantic index: %w", err)
	}

	data, err = json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal semantic manifest: %w", err)
	}
	if err := os.WriteFile(ManifestPath(root, scope), data, 0o644); err != nil {
		return fmt.Errorf("write semantic manifest: %w", err)
	}
	return nil
}

// embeddingText is what a memory looks like to the embedding model.
func embeddingText(m *memory.Memory) string {
	text := m.Title
	if len(m.Tags) > 0 {
		text += "\n" + strings.Join(m.Tags, " ")
	}
	if m.Content != "" {
		text += "\n" + m.Content
	}
	return text
}
