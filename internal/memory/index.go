package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const indexFileName = "index.json"

// IndexEntry is the denormalised projection of a memory's searchable fields.
type IndexEntry struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags,omitempty"`
	Scope   string   `json:"scope"`
	Tier    string   `json:"tier"`
	File    string   `json:"file"`
	Created string   `json:"created"`
	Updated string   `json:"updated"`
}

// Index is the flat metadata cache kept alongside the store. It is derived,
// rebuildable state: divergence from the files on disk is a health issue, not
// an error.
type Index struct {
	Memories []IndexEntry `json:"memories"`
}

// IndexPath returns the index file location under a scope root.
func IndexPath(root string) string {
	return filepath.Join(root, indexFileName)
}

// LoadIndex reads index.json under root. A missing or corrupt file yields an
// empty index; corruption is logged, never fatal, because the index can be
// rebuilt from the memory files.
func LoadIndex(root string, logger *zap.SugaredLogger) *Index {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	data, err := os.ReadFile(IndexPath(root))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnw("read index", "root", root, "error", err)
		}
		return &Index{}
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		logger.Warnw("corrupt index, treating as empty", "root", root, "error", err)
		return &Index{}
	}
	return &idx
}

// Save rewrites the whole index file. Last-writer-wins: concurrent CLI
// invocations racing on the same root is an accepted limitation.
func (idx *Index) Save(root string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create root: %w", err)
	}
	if err := os.WriteFile(IndexPath(root), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Get returns the entry for id, or nil.
func (idx *Index) Get(id string) *IndexEntry {
	for i := range idx.Memories {
		if idx.Memories[i].ID == id {
			return &idx.Memories[i]
		}
	}
	return nil
}

// Put inserts or replaces the entry for entry.ID.
func (idx *Index) Put(entry IndexEntry) {
	for i := range idx.Memories {
		if idx.Memories[i].ID == entry.ID {
			idx.Memories[i] = entry
			return
		}
	}
	idx.Memories = append(idx.Memories, entry)
}

// Remove deletes the entry for id if present.
func (idx *Index) Remove(id string) {
	for i := range idx.Memories {
		if idx.Memories[i].ID == id {
			idx.Memories = append(idx.Memories[:i], idx.Memories[i+1:]...)
			return
		}
	}
}

// ListFilter narrows List results. Zero value matches everything.
type ListFilter struct {
	Type  string
	Tag   string
	Query string
}

// List returns entries matching the filter, newest first.
func (idx *Index) List(filter ListFilter) []IndexEntry {
	matched := make([]IndexEntry, 0, len(idx.Memories))
	for _, entry := range idx.Memories {
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if filter.Tag != "" && !containsFold(entry.Tags, filter.Tag) {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(entry.Title), q) &&
				!strings.Contains(strings.ToLower(entry.ID), q) {
				continue
			}
		}
		matched = append(matched, entry)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Updated > matched[j].Updated
	})
	return matched
}

// KeywordMatch is one ranked keyword-search hit.
type KeywordMatch struct {
	Entry IndexEntry
	Hits  int
}

// SearchKeywords ranks entries by how many keywords match the title, tags or
// id, ties broken by recency. This is the degraded path used when the
// embedding provider is unavailable.
func (idx *Index) SearchKeywords(keywords []string, limit int) []KeywordMatch {
	if len(keywords) == 0 {
		return nil
	}

	matches := make([]KeywordMatch, 0)
	for _, entry := range idx.Memories {
		haystack := strings.ToLower(entry.Title + " " + entry.ID + " " + strings.Join(entry.Tags, " "))
		hits := 0
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(haystack, kw) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, KeywordMatch{Entry: entry, Hits: hits})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Hits == matches[j].Hits {
			return matches[i].Entry.Updated > matches[j].Entry.Updated
		}
		return matches[i].Hits > matches[j].Hits
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func entryFromMemory(m *Memory) IndexEntry {
	return IndexEntry{
		ID:      m.ID,
		Title:   m.Title,
		Type:    string(m.Type),
		Tags:    m.Tags,
		Scope:   string(m.Scope),
		Tier:    m.Tier,
		File:    filepath.Base(m.File),
		Created: m.Created.UTC().Format(time.RFC3339),
		Updated: m.Updated.UTC().Format(time.RFC3339),
	}
}
