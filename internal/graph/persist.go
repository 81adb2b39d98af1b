package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const graphFileName = "graph.json"

// Path returns the graph file location under a scope root.
func Path(root string) string {
	return filepath.Join(root, graphFileName)
}

// Load reads graph.json under root. A missing or corrupt file is an empty
// graph, never a fatal error: the corrupt document is logged and abandoned,
// links can be re-declared.
func Load(root string, logger *zap.SugaredLogger) *Graph {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	data, err := os.ReadFile(Path(root))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnw("read graph", "root", root, "error", err)
		}
		return New()
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		logger.Warnw("corrupt graph, treating as empty", "root", root, "error", err)
		return New()
	}
	if g.Version == 0 {
		g.Version = CurrentVersion
	}
	return &g
}

// Save rewrites the whole graph file. Last-writer-wins: there is no
// cross-process lock, racing writers is an accepted limitation.
func Save(root string, g *Graph) error {
	g.Version = CurrentVersion
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create root: %w", err)
	}
	if err := os.WriteFile(Path(root), data, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}
