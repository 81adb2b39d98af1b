package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cache is a content-addressed, file-per-key store of embedding vectors with
// mtime-based LRU eviction. Caching is an optimisation: every failure mode is
// a miss or a swallowed write, never an error for the caller.
type Cache struct {
	dir        string
	maxEntries int
	logger     *zap.SugaredLogger
}

func NewCache(dir string, maxEntries int, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{dir: dir, maxEntries: maxEntries, logger: logger}
}

// QueryKey derives the cache key for free query text.
func QueryKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return "q-" + hex.EncodeToString(sum[:])[:16]
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Load returns the cached vector for key, or nil on any miss: absent file,
// malformed JSON, non-array content, or an empty array. A hit touches the
// file's mtime as an LRU signal; the touch is best-effort.
func (c *Cache) Load(key string) []float32 {
	path := c.pathFor(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil
	}
	if len(vector) == 0 {
		return nil
	}

	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return vector
}

// Save writes the vector best-effort and kicks off eviction without waiting
// for it. A failed or slow cache write must never delay the caller.
func (c *Cache) Save(key string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Debugw("create cache dir", "error", err)
		return
	}
	data, err := json.Marshal(vector)
	if err != nil {
		c.logger.Debugw("marshal cache entry", "key", key, "error", err)
		return
	}
	if err := os.WriteFile(c.pathFor(key), data, 0o644); err != nil {
		c.logger.Debugw("write cache entry", "key", key, "error", err)
		return
	}

	go c.EvictOldest(c.maxEntries)
}

// EvictOldest deletes least-recently-touched entries until at most max
// remain. Files whose stat fails sort as oldest and go first.
func (c *Cache) EvictOldest(max int) {
	if max <= 0 {
		return
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	type candidate struct {
		name  string
		mtime time.Time
	}
	files := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cand := candidate{name: entry.Name()}
		if info, err := entry.Info(); err == nil {
			cand.mtime = info.ModTime()
		}
		files = append(files, cand)
	}
	if len(files) <= max {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.Before(files[j].mtime)
	})
	for _, f := range files[:len(files)-max] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			c.logger.Debugw("evict cache entry", "file", f.name, "error", err)
		}
	}
}

// Count returns the number of cache entries, for status reporting.
func (c *Cache) Count() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count
}
