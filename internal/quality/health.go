package quality

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/engramdev/engram/internal/graph"
	"github.com/engramdev/engram/internal/memory"
)

// Health is the structural score for a root's graph+index pair. It is
// independent of individual memory quality.
type Health struct {
	Score     int      `json:"score"`
	Status    string   `json:"status"`
	Issues    []string `json:"issues"`
	Nodes     int      `json:"nodes"`
	Edges     int      `json:"edges"`
	IndexSize int      `json:"index_size"`
}

const (
	healthMissingIndexPenalty = 30
	healthMissingGraphPenalty = 30
	healthOrphanPenalty       = 3
	healthOrphanCap           = 30
	healthSyncPenalty         = 2
	healthSyncCap             = 20
	healthConnectivityPenalty = 15
	// connectivityMinNodes keeps the low-connectivity flag from firing on
	// tiny graphs where a couple of unlinked notes is normal.
	connectivityMinNodes = 5
)

// HealthStatus maps a score to its band.
func HealthStatus(score int) string {
	switch {
	case score >= 90:
		return "healthy"
	case score >= 70:
		return "warning"
	default:
		return "critical"
	}
}

// CheckHealth scores the graph/index pair under root. The per-node orphan
// and sync penalties only apply when both files exist: a missing artifact is
// already charged its own flat penalty, and stacking the per-node charges on
// top would drag a merely-uninitialised root below the warning band.
func CheckHealth(root string, logger *zap.SugaredLogger) *Health {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	health := &Health{Score: 100, Issues: []string{}}

	indexExists := fileExists(memory.IndexPath(root))
	graphExists := fileExists(graph.Path(root))

	if !indexExists {
		health.Score -= healthMissingIndexPenalty
		health.Issues = append(health.Issues, "index file missing")
	}
	if !graphExists {
		health.Score -= healthMissingGraphPenalty
		health.Issues = append(health.Issues, "graph file missing")
	}

	g := graph.Load(root, logger)
	idx := memory.LoadIndex(root, logger)
	health.Nodes = len(g.Nodes)
	health.Edges = len(g.Edges)
	health.IndexSize = len(idx.Memories)

	orphanPenalty := 0
	orphans := 0
	for _, n := range g.Nodes {
		if g.Degree(n.ID) == 0 {
			orphans++
			if orphanPenalty < healthOrphanCap {
				orphanPenalty += healthOrphanPenalty
			}
		}
	}
	if orphans > 0 {
		if indexExists && graphExists {
			health.Score -= orphanPenalty
		}
		health.Issues = append(health.Issues, fmt.Sprintf("%d orphaned node(s)", orphans))
	}

	if indexExists && graphExists {
		health.Score -= syncPenalties(g, idx, health)
	}

	if len(g.Nodes) >= connectivityMinNodes {
		connected := len(g.Nodes) - orphans
		if connected*2 < len(g.Nodes) {
			health.Score -= healthConnectivityPenalty
			health.Issues = append(health.Issues, "less than half of graph nodes have any edge")
		}
	}

	if health.Score < 0 {
		health.Score = 0
	}
	health.Status = HealthStatus(health.Score)
	return health
}

// syncPenalties charges index entries without a graph node and graph nodes
// without an index entry, each direction capped separately.
func syncPenalties(g *graph.Graph, idx *memory.Index, health *Health) int {
	nodeIDs := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = true
	}
	entryIDs := make(map[string]bool, len(idx.Memories))
	for _, entry := range idx.Memories {
		entryIDs[entry.ID] = true
	}

	missingNodes := 0
	for _, entry := range idx.Memories {
		if !nodeIDs[entry.ID] {
			missingNodes++
		}
	}
	missingEntries := 0
	for _, n := range g.Nodes {
		if !entryIDs[n.ID] {
			missingEntries++
		}
	}

	penalty := 0
	if missingNodes > 0 {
		p := missingNodes * healthSyncPenalty
		if p > healthSyncCap {
			p = healthSyncCap
		}
		penalty += p
		health.Issues = append(health.Issues, fmt.Sprintf("%d index entr(ies) with no graph node", missingNodes))
	}
	if missingEntries > 0 {
		p := missingEntries * healthSyncPenalty
		if p > healthSyncCap {
			p = healthSyncCap
		}
		penalty += p
		health.Issues = append(health.Issues, fmt.Sprintf("%d graph node(s) with no index entry", missingEntries))
	}
	return penalty
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
