package embed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/engramdev/engram/internal/memory"
)

// ErrDegraded signals that the embedding provider was unavailable and the
// caller should serve keyword results instead. It is never a user-facing
// failure.
var ErrDegraded = errors.New("semantic search degraded")

// FallbackPolicy decides what a stale or absent index means for one search.
// The zero value returns nothing, which is the right behaviour for
// latency-sensitive automatic injection; explicit user-triggered search opts
// into the expensive brute-force scan. The choice is always the caller's.
type FallbackPolicy int

const (
	FallbackNone FallbackPolicy = iota
	FallbackBruteForce
)

// ScopeRoot pairs a scope name with its storage root, in search-precedence
// order.
type ScopeRoot struct {
	Scope string
	Root  string
}

// SearchOptions control one search call.
type SearchOptions struct {
	// Threshold filters results below this similarity. Callers pick the
	// default by context (routine injection vs explicit deep search).
	Threshold float64
	// Limit caps the merged result list. How a single cap should interact
	// with per-type injection limits is host policy, not decided here.
	Limit int
	// StaleFallback must be set deliberately per call site.
	StaleFallback FallbackPolicy
}

// Result is one ranked hit.
type Result struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	File  string   `json:"file"`
	Tags  []string `json:"tags,omitempty"`
	Scope string   `json:"scope"`
	Score float64  `json:"score"`
}

// Searcher ranks memories against query embeddings.
type Searcher struct {
	embedder Embedder
	cache    *Cache
	logger   *zap.SugaredLogger
}

func NewSearcher(embedder Embedder, cache *Cache, logger *zap.SugaredLogger) *Searcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Searcher{embedder: embedder, cache: cache, logger: logger}
}

// Search embeds the query (through the cache) and ranks each scope in the
// given order. Results keep scope precedence: every hit from an earlier scope
// sorts before any hit from a later one, ties within a scope break by score
// descending. An embedder failure returns ErrDegraded so the caller can fall
// back to keyword search.
func (s *Searcher) Search(ctx context.Context, query string, scopes []ScopeRoot, opts SearchOptions) ([]Result, error) {
	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Warnw("query embedding unavailable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDegraded, err)
	}

	merged := make([]Result, 0)
	for _, sr := range scopes {
		results := s.searchScope(ctx, sr, queryVec, opts)
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
		merged = append(merged, results...)
	}

	if opts.Limit > 0 && len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}
	return merged, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := QueryKey(query)
	if vector := s.cache.Load(key); vector != nil {
		return vector, nil
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Save(key, vector)
	return vector, nil
}

func (s *Searcher) searchScope(ctx context.Context, sr ScopeRoot, queryVec []float32, opts SearchOptions) []Result {
	if !IsStale(sr.Root, sr.Scope) {
		if idx, manifest := LoadIndex(sr.Root, sr.Scope, s.logger); idx != nil && len(idx.Embeddings) > 0 {
			return s.rankIndex(idx, manifest, sr.Scope, queryVec, opts.Threshold)
		}
	}

	switch opts.StaleFallback {
	case FallbackBruteForce:
		return s.bruteForce(ctx, sr, queryVec, opts.Threshold)
	default:
		// Automatic contexts skip stale scopes rather than pay the scan.
		return nil
	}
}

func (s *Searcher) rankIndex(idx *Index, manifest *Manifest, scope string, queryVec []float32, threshold float64) []Result {
	results := make([]Result, 0)
	for i, vector := range idx.Embeddings {
		score := CosineSimilarity(queryVec, vector)
		if score < threshold {
			continue
		}
		id := idx.MemoryIDs[i]
		result := Result{ID: id, Scope: scope, Score: score}
		if manifest != nil {
			if entry, ok := manifest.Memories[id]; ok {
				result.Title = entry.Title
				result.File = entry.File
				result.Tags = entry.Tags
			}
		}
		results = append(results, result)
	}
	return results
}

// bruteForce embeds every memory file on the fly. Expensive; reserved for
// explicit user-triggered search against a stale index.
func (s *Searcher) bruteForce(ctx context.Context, sr ScopeRoot, queryVec []float32, threshold float64) []Result {
	store := memory.NewStore(sr.Root, memory.Scope(sr.Scope), s.logger)
	files, err := store.Files()
	if err != nil {
		s.logger.Warnw("brute-force scan failed", "root", sr.Root, "error", err)
		return nil
	}

	results := make([]Result, 0)
	for _, path := range files {
		m, err := store.LoadFile(path)
		if err != nil {
			s.logger.Warnw("skip unparseable memory in brute-force scan", "file", path, "error", err)
			continue
		}
		if m.IsEphemeral() {
			continue
		}

		vector := s.cache.Load(m.ID)
		if vector == nil {
			vector, err = s.embedder.Embed(ctx, embeddingText(m))
			if err != nil {
				s.logger.Warnw("embed memory failed in brute-force scan", "id", m.ID, "error", err)
				continue
			}
			s.cache.Save(m.ID, vector)
		}

		score := CosineSimilarity(queryVec, vector)
		if score < threshold {
			continue
		}
		results = append(results, Result{
			ID:    m.ID,
			Title: m.Title,
			File:  m.File,
			Tags:  m.Tags,
			Scope: sr.Scope,
			Score: score,
		})
	}
	return results
}
