// Package suggest proposes new graph edges from embedding similarity.
package suggest

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/engramdev/engram/internal/embed"
	"github.com/engramdev/engram/internal/graph"
	"github.com/engramdev/engram/internal/memory"
)

// Suggestion is one proposed edge.
type Suggestion struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Score  float64 `json:"score"`
}

// Options control a suggestion run.
type Options struct {
	Threshold float64
	Limit     int
	// AutoLink creates each suggested edge immediately with the default
	// relation label.
	AutoLink bool
}

// Report is the batch outcome. With AutoLink, Created and Errors count the
// per-edge results; failures never abort the batch.
type Report struct {
	Suggestions []Suggestion `json:"suggestions"`
	Created     int          `json:"created"`
	Errors      int          `json:"errors"`
}

// Run computes link suggestions for one scope root from its semantic index
// and graph. Ephemeral thought records are excluded, as are pairs already
// connected in either direction and pairs whose nodes are not both in the
// graph.
func Run(store *memory.Store, opts Options, logger *zap.SugaredLogger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	root := store.Root()
	scope := string(store.Scope())
	g := graph.Load(root, logger)
	idx, _ := embed.LoadIndex(root, scope, logger)

	report := &Report{Suggestions: []Suggestion{}}
	if idx == nil || len(idx.MemoryIDs) < 2 {
		return report, nil
	}

	report.Suggestions = pairwise(idx, g, opts.Threshold)
	sort.SliceStable(report.Suggestions, func(i, j int) bool {
		return report.Suggestions[i].Score > report.Suggestions[j].Score
	})
	if opts.Limit > 0 && len(report.Suggestions) > opts.Limit {
		report.Suggestions = report.Suggestions[:opts.Limit]
	}

	if opts.AutoLink {
		for _, sug := range report.Suggestions {
			next, err := g.AddEdge(sug.Source, sug.Target, graph.DefaultEdgeLabel)
			if err != nil {
				logger.Warnw("auto-link failed", "source", sug.Source, "target", sug.Target, "error", err)
				report.Errors++
				continue
			}
			g = next
			report.Created++
		}
		if err := graph.Save(root, g); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// pairwise scores every unordered candidate pair once, which is also what
// makes the (a,b)/(b,a) dedup hold.
func pairwise(idx *embed.Index, g *graph.Graph, threshold float64) []Suggestion {
	suggestions := make([]Suggestion, 0)
	for i := 0; i < len(idx.MemoryIDs); i++ {
		a := idx.MemoryIDs[i]
		if strings.HasPrefix(a, memory.EphemeralPrefix) || !g.HasNode(a) {
			continue
		}
		for j := i + 1; j < len(idx.MemoryIDs); j++ {
			b := idx.MemoryIDs[j]
			if strings.HasPrefix(b, memory.EphemeralPrefix) || !g.HasNode(b) {
				continue
			}
			if g.Connected(a, b) {
				continue
			}
			score := embed.CosineSimilarity(idx.Embeddings[i], idx.Embeddings[j])
			if score >= threshold {
				suggestions = append(suggestions, Suggestion{Source: a, Target: b, Score: score})
			}
		}
	}
	return suggestions
}
