// Command engram is a file-backed project-memory knowledge graph with
// semantic retrieval, built for an AI coding assistant to accumulate and
// recall knowledge across sessions.
//
// Results go to stdout as a JSON envelope {status: success|error, ...};
// operational logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/engramdev/engram/internal/config"
	"github.com/engramdev/engram/internal/embed"
	"github.com/engramdev/engram/internal/graph"
	"github.com/engramdev/engram/internal/llm"
	"github.com/engramdev/engram/internal/memory"
	"github.com/engramdev/engram/internal/quality"
	"github.com/engramdev/engram/internal/suggest"
)

var (
	scopeFlag   string
	verboseFlag bool

	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:           "engram",
	Short:         "engram - project memory graph for AI coding assistants",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(verboseFlag)
	},
}

func newLogger(verbose bool) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return log.Sugar()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scopeFlag, "scope", "local", "storage scope (local|project|global|enterprise)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging on stderr")

	rootCmd.AddCommand(
		initCmd, saveCmd, getCmd, listCmd, updateCmd, deleteCmd, promoteCmd,
		linkCmd, unlinkCmd, linksCmd, traverseCmd, pathCmd, componentsCmd,
		impactCmd, subgraphCmd, searchCmd, suggestLinksCmd, reindexCmd,
		qualityCmd, auditCmd, healthCmd, exportCmd, importCmd, statusCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// --- result envelope ---

func printSuccess(payload map[string]any) {
	out := map[string]any{"status": "success"}
	for k, v := range payload {
		out[k] = v
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func printError(err error) {
	out := map[string]any{
		"status": "error",
		"code":   errorCode(err),
		"error":  err.Error(),
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, memory.ErrNotFound), errors.Is(err, graph.ErrNodeNotFound):
		return "not_found"
	case errors.Is(err, memory.ErrValidation):
		return "validation_error"
	case errors.Is(err, graph.ErrSelfLoop):
		return "structural_error"
	case errors.Is(err, memory.ErrParse):
		return "parse_error"
	default:
		return "internal_error"
	}
}

// run wraps a handler so errors become envelopes instead of cobra output.
func run(handler func(cmd *cobra.Command, args []string) (map[string]any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		payload, err := handler(cmd, args)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		printSuccess(payload)
		return nil
	}
}

func loadSetup() (*config.Config, *memory.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	root := cfg.ScopeRoot(scopeFlag)
	if root == "" {
		return nil, nil, fmt.Errorf("%w: unknown scope %q", memory.ErrValidation, scopeFlag)
	}
	return cfg, memory.NewStore(root, memory.Scope(scopeFlag), logger), nil
}

// scopeOrder is the search-precedence order across scopes.
var scopeOrder = []string{"local", "project", "global", "enterprise"}

func scopeRoots(cfg *config.Config, only []string) []embed.ScopeRoot {
	want := map[string]bool{}
	for _, s := range only {
		want[strings.TrimSpace(s)] = true
	}
	roots := make([]embed.ScopeRoot, 0, len(scopeOrder))
	for _, scope := range scopeOrder {
		if len(only) > 0 && !want[scope] {
			continue
		}
		root := cfg.ScopeRoot(scope)
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		roots = append(roots, embed.ScopeRoot{Scope: scope, Root: root})
	}
	return roots
}

// --- lifecycle commands ---

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config and the scope's storage root",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(config.ConfigPath()); os.IsNotExist(err) {
			if err := config.SaveConfig(cfg); err != nil {
				return nil, err
			}
		}
		for _, tier := range []string{memory.TierPermanent, memory.TierTemporary} {
			if err := os.MkdirAll(filepath.Join(store.Root(), tier), 0o755); err != nil {
				return nil, fmt.Errorf("create storage root: %w", err)
			}
		}
		idx := memory.LoadIndex(store.Root(), logger)
		if err := idx.Save(store.Root()); err != nil {
			return nil, err
		}
		if err := graph.Save(store.Root(), graph.Load(store.Root(), logger)); err != nil {
			return nil, err
		}
		return map[string]any{"root": store.Root(), "config": config.ConfigPath()}, nil
	}),
}

var (
	saveType     string
	saveTitle    string
	saveContent  string
	saveTags     []string
	saveSeverity string
	saveLinks    []string
	saveTemp     bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a new memory",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		m, err := store.Save(memory.SaveRequest{
			Type:      saveType,
			Title:     saveTitle,
			Content:   saveContent,
			Tags:      saveTags,
			Scope:     scopeFlag,
			Severity:  saveSeverity,
			Links:     saveLinks,
			Temporary: saveTemp,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": m.ID, "tier": m.Tier, "file": m.File}, nil
	}),
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Load one memory",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		m, err := store.Get(args[0])
		if err != nil {
			return nil, err
		}
		return map[string]any{"memory": memoryPayload(m)}, nil
	}),
}

var (
	listType  string
	listTag   string
	listQuery string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories from the index",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		entries := store.List(memory.ListFilter{Type: listType, Tag: listTag, Query: listQuery})
		return map[string]any{"count": len(entries), "memories": entries}, nil
	}),
}

var (
	updateTitle    string
	updateContent  string
	updateTags     []string
	updateSeverity string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update mutable fields of a memory",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		patch := memory.UpdatePatch{}
		if cmd.Flags().Changed("title") {
			patch.Title = &updateTitle
		}
		if cmd.Flags().Changed("content") {
			patch.Content = &updateContent
		}
		if cmd.Flags().Changed("tags") {
			patch.Tags = updateTags
		}
		if cmd.Flags().Changed("severity") {
			patch.Severity = &updateSeverity
		}
		m, err := store.Update(args[0], patch)
		if err != nil {
			return nil, err
		}
		return map[string]any{"memory": memoryPayload(m)}, nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a memory, its index entry and its graph node",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		if err := store.Delete(args[0]); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": args[0]}, nil
	}),
}

var promoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Move a temporary memory to the permanent tier",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		m, err := store.Promote(args[0])
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": m.ID, "tier": m.Tier}, nil
	}),
}

// --- graph commands ---

var edgeLabel string

var linkCmd = &cobra.Command{
	Use:   "link <source> <target>",
	Short: "Create a labelled edge between two memories",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		if err := store.Link(args[0], args[1], edgeLabel); err != nil {
			return nil, err
		}
		label := edgeLabel
		if label == "" {
			label = graph.DefaultEdgeLabel
		}
		return map[string]any{"source": args[0], "target": args[1], "label": label}, nil
	}),
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <source> <target>",
	Short: "Remove edges between two memories (all labels unless --label)",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		if err := store.Unlink(args[0], args[1], edgeLabel); err != nil {
			return nil, err
		}
		return map[string]any{"source": args[0], "target": args[1]}, nil
	}),
}

var linksCmd = &cobra.Command{
	Use:   "links <id>",
	Short: "Show inbound and outbound edges of a memory",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		g := graph.Load(store.Root(), logger)
		if !g.HasNode(args[0]) {
			return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, args[0])
		}
		return map[string]any{
			"inbound":  g.InboundEdges(args[0]),
			"outbound": g.OutboundEdges(args[0]),
		}, nil
	}),
}

var (
	traverseDepth int
	traverseMode  string
)

var traverseCmd = &cobra.Command{
	Use:   "traverse <id>",
	Short: "Walk the graph from a memory (bfs or dfs)",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		g := graph.Load(store.Root(), logger)
		if !g.HasNode(args[0]) {
			return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, args[0])
		}
		var result graph.TraversalResult
		switch traverseMode {
		case "dfs":
			result = g.DFS(args[0], traverseDepth)
		case "bfs", "":
			result = g.BFS(args[0], traverseDepth)
		default:
			return nil, fmt.Errorf("%w: unknown traversal mode %q", memory.ErrValidation, traverseMode)
		}
		return map[string]any{"visited": result.Visited, "depths": result.Depths}, nil
	}),
}

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Shortest unweighted path between two memories",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		g := graph.Load(store.Root(), logger)
		path := g.ShortestPath(args[0], args[1])
		return map[string]any{"found": path != nil, "path": path}, nil
	}),
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "Connected components of the graph (edge direction ignored)",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		g := graph.Load(store.Root(), logger)
		components := g.ConnectedComponents()
		return map[string]any{"count": len(components), "components": components}, nil
	}),
}

var impactCmd = &cobra.Command{
	Use:   "impact <id>",
	Short: "What breaks if this memory is removed",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		g := graph.Load(store.Root(), logger)
		if !g.HasNode(args[0]) {
			return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, args[0])
		}
		impact := g.CalculateImpact(args[0])
		return map[string]any{
			"orphaned_nodes": impact.OrphanedNodes,
			"broken_edges":   impact.BrokenEdges,
		}, nil
	}),
}

var subgraphDepth int

var subgraphCmd = &cobra.Command{
	Use:   "subgraph <id>",
	Short: "Graph restricted to the neighbourhood of a memory",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		g := graph.Load(store.Root(), logger)
		if !g.HasNode(args[0]) {
			return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, args[0])
		}
		sub := g.Subgraph(args[0], subgraphDepth)
		return map[string]any{"nodes": sub.Nodes, "edges": sub.Edges}, nil
	}),
}

// --- retrieval commands ---

var (
	searchScopes    []string
	searchDeep      bool
	searchThreshold float64
	searchLimit     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search across scopes, keyword fallback when degraded",
	Args:  cobra.MinimumNArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, _, err := loadSetup()
		if err != nil {
			return nil, err
		}
		query := strings.Join(args, " ")

		opts := embed.SearchOptions{
			Threshold:     cfg.Search.Threshold,
			Limit:         cfg.Search.Limit,
			StaleFallback: embed.FallbackNone,
		}
		if searchDeep {
			// An explicit user search is allowed to pay for a stale index.
			opts.Threshold = cfg.Search.DeepThreshold
			opts.StaleFallback = embed.FallbackBruteForce
		}
		if cmd.Flags().Changed("threshold") {
			opts.Threshold = searchThreshold
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = searchLimit
		}

		cache := embed.NewCache(cfg.Cache.Dir, cfg.Cache.MaxEntries, logger)
		searcher := embed.NewSearcher(embed.NewEmbedder(cfg), cache, logger)
		roots := scopeRoots(cfg, searchScopes)

		results, err := searcher.Search(context.Background(), query, roots, opts)
		if err != nil {
			if !errors.Is(err, embed.ErrDegraded) {
				return nil, err
			}
			return keywordFallback(roots, query, opts.Limit), nil
		}
		return map[string]any{"mode": "semantic", "count": len(results), "results": results}, nil
	}),
}

// keywordFallback serves index keyword matches when the embedding provider
// is unavailable. Degradation is never surfaced as a failure.
func keywordFallback(roots []embed.ScopeRoot, query string, limit int) map[string]any {
	keywords := strings.Fields(query)
	results := make([]map[string]any, 0)
	for _, sr := range roots {
		idx := memory.LoadIndex(sr.Root, logger)
		for _, match := range idx.SearchKeywords(keywords, limit) {
			results = append(results, map[string]any{
				"id":    match.Entry.ID,
				"title": match.Entry.Title,
				"scope": sr.Scope,
				"hits":  match.Hits,
			})
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return map[string]any{"mode": "keyword", "count": len(results), "results": results}
}

var (
	suggestThreshold float64
	suggestLimit     int
	suggestAuto      bool
)

var suggestLinksCmd = &cobra.Command{
	Use:   "suggest-links",
	Short: "Propose graph edges from embedding similarity",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		opts := suggest.Options{
			Threshold: cfg.Search.SuggestThreshold,
			Limit:     cfg.Search.SuggestLimit,
			AutoLink:  suggestAuto,
		}
		if cmd.Flags().Changed("threshold") {
			opts.Threshold = suggestThreshold
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = suggestLimit
		}
		report, err := suggest.Run(store, opts, logger)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"count":       len(report.Suggestions),
			"suggestions": report.Suggestions,
			"created":     report.Created,
			"errors":      report.Errors,
		}, nil
	}),
}

var reindexIndexOnly bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the metadata index and the semantic embedding index",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		indexed, err := store.RebuildIndex()
		if err != nil {
			return nil, err
		}
		payload := map[string]any{"index_entries": indexed}
		if reindexIndexOnly {
			return payload, nil
		}

		cache := embed.NewCache(cfg.Cache.Dir, cfg.Cache.MaxEntries, logger)
		report, err := embed.BuildIndex(context.Background(), store, embed.NewEmbedder(cfg), cache, logger)
		if err != nil {
			return nil, err
		}
		payload["embedded"] = report.Indexed
		payload["skipped"] = report.Skipped
		payload["errors"] = report.Errors
		return payload, nil
	}),
}

// --- quality commands ---

var deepFlag bool

var qualityCmd = &cobra.Command{
	Use:   "quality <id>",
	Short: "Assess one memory's quality",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		m, err := store.Get(args[0])
		if err != nil {
			return nil, err
		}
		assessor := quality.NewAssessor(store, llm.NewCompleter(cfg), logger)
		assessment := assessor.Assess(context.Background(), m, quality.AssessOptions{Deep: deepFlag})
		return map[string]any{"assessment": assessment}, nil
	}),
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Assess every memory under the scope root",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		assessor := quality.NewAssessor(store, llm.NewCompleter(cfg), logger)
		report, err := assessor.Audit(context.Background(), quality.AssessOptions{Deep: deepFlag})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"scanned":   report.Scanned,
			"errors":    report.Errors,
			"average":   report.Average,
			"histogram": report.Histogram,
			"results":   report.Results,
		}, nil
	}),
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Structural health of the scope's graph+index pair",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		health := quality.CheckHealth(store.Root(), logger)
		return map[string]any{"health": health}, nil
	}),
}

// --- transfer commands ---

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the scope's memories and edges to a bundle file",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		bundle, err := store.Export()
		if err != nil {
			return nil, err
		}
		if exportOut == "" {
			exportOut = "engram-export.json"
		}
		if err := memory.WriteBundle(exportOut, bundle); err != nil {
			return nil, err
		}
		return map[string]any{
			"file":     exportOut,
			"memories": len(bundle.Memories),
			"edges":    len(bundle.Edges),
		}, nil
	}),
}

var importStrategy string

var importCmd = &cobra.Command{
	Use:   "import <bundle>",
	Short: "Import a bundle into the scope root",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		_, store, err := loadSetup()
		if err != nil {
			return nil, err
		}
		bundle, err := memory.ReadBundle(args[0])
		if err != nil {
			return nil, err
		}
		report, err := store.Import(bundle, memory.ImportStrategy(importStrategy))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"imported": report.Imported,
			"skipped":  report.Skipped,
			"edges":    report.Edges,
			"errors":   report.Errors,
		}, nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, storage roots and corpus counts",
	RunE: run(func(cmd *cobra.Command, args []string) (map[string]any, error) {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, err
		}
		scopes := map[string]any{}
		for _, scope := range scopeOrder {
			root := cfg.ScopeRoot(scope)
			info := map[string]any{"root": root}
			if _, err := os.Stat(root); err == nil {
				idx := memory.LoadIndex(root, logger)
				g := graph.Load(root, logger)
				info["memories"] = len(idx.Memories)
				info["nodes"] = len(g.Nodes)
				info["edges"] = len(g.Edges)
				info["semantic_stale"] = embed.IsStale(root, scope)
			} else {
				info["initialized"] = false
			}
			scopes[scope] = info
		}
		cache := embed.NewCache(cfg.Cache.Dir, cfg.Cache.MaxEntries, logger)
		return map[string]any{
			"config":        config.ConfigPath(),
			"scopes":        scopes,
			"cache_entries": cache.Count(),
		}, nil
	}),
}

func memoryPayload(m *memory.Memory) map[string]any {
	payload := map[string]any{
		"id":      m.ID,
		"type":    m.Type,
		"title":   m.Title,
		"content": m.Content,
		"tags":    m.Tags,
		"scope":   m.Scope,
		"tier":    m.Tier,
		"created": m.Created,
		"updated": m.Updated,
	}
	if m.Severity != "" {
		payload["severity"] = m.Severity
	}
	if len(m.Links) > 0 {
		payload["links"] = m.Links
	}
	return payload
}

func init() {
	saveCmd.Flags().StringVar(&saveType, "type", "", "memory type (decision|learning|artifact|gotcha|breadcrumb|hub)")
	saveCmd.Flags().StringVar(&saveTitle, "title", "", "memory title")
	saveCmd.Flags().StringVar(&saveContent, "content", "", "memory body")
	saveCmd.Flags().StringSliceVar(&saveTags, "tag", nil, "tag (repeatable)")
	saveCmd.Flags().StringVar(&saveSeverity, "severity", "", "severity, gotcha only (low|medium|high|critical)")
	saveCmd.Flags().StringSliceVar(&saveLinks, "link", nil, "link target memory id (repeatable)")
	saveCmd.Flags().BoolVar(&saveTemp, "temp", false, "store in the temporary tier")

	listCmd.Flags().StringVar(&listType, "type", "", "filter by type")
	listCmd.Flags().StringVar(&listTag, "tag", "", "filter by tag")
	listCmd.Flags().StringVar(&listQuery, "query", "", "filter by title/id substring")

	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&updateContent, "content", "", "new body")
	updateCmd.Flags().StringSliceVar(&updateTags, "tags", nil, "replacement tag set")
	updateCmd.Flags().StringVar(&updateSeverity, "severity", "", "new severity (gotcha only)")

	linkCmd.Flags().StringVar(&edgeLabel, "label", "", "relation label (default related_to)")
	unlinkCmd.Flags().StringVar(&edgeLabel, "label", "", "only remove this label")

	traverseCmd.Flags().IntVar(&traverseDepth, "depth", -1, "inclusive depth bound (-1 unbounded)")
	traverseCmd.Flags().StringVar(&traverseMode, "mode", "bfs", "bfs or dfs")
	subgraphCmd.Flags().IntVar(&subgraphDepth, "depth", 1, "inclusive neighbourhood depth")

	searchCmd.Flags().StringSliceVar(&searchScopes, "scopes", nil, "scopes to search, in precedence order (default all)")
	searchCmd.Flags().BoolVar(&searchDeep, "deep", false, "explicit search: lower threshold, brute-force on stale index")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "similarity threshold override")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "result limit override")

	suggestLinksCmd.Flags().Float64Var(&suggestThreshold, "threshold", 0, "similarity threshold override")
	suggestLinksCmd.Flags().IntVar(&suggestLimit, "limit", 0, "suggestion limit override")
	suggestLinksCmd.Flags().BoolVar(&suggestAuto, "auto", false, "create suggested edges immediately")

	reindexCmd.Flags().BoolVar(&reindexIndexOnly, "index-only", false, "rebuild index.json without re-embedding")

	qualityCmd.Flags().BoolVar(&deepFlag, "deep", false, "enable embedding and LLM tiers")
	auditCmd.Flags().BoolVar(&deepFlag, "deep", false, "enable embedding and LLM tiers")

	exportCmd.Flags().StringVar(&exportOut, "out", "engram-export.json", "bundle output path")
	importCmd.Flags().StringVar(&importStrategy, "strategy", "skip", "conflict strategy (skip|overwrite)")
}
