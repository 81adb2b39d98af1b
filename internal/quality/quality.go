// Package quality scores individual memories (tiered audits) and the
// structural health of the graph+index pair.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/engramdev/engram/internal/embed"
	"github.com/engramdev/engram/internal/graph"
	"github.com/engramdev/engram/internal/llm"
	"github.com/engramdev/engram/internal/memory"
)

// Issue types reported by the deterministic tier.
const (
	IssueMissingTitle  = "missing_title"
	IssueMissingTags   = "missing_tags"
	IssueEmptyContent  = "empty_content"
	IssueStaleFileRef  = "stale_file_reference"
	IssueNotInGraph    = "not_in_graph"
	IssueOrphanInGraph = "orphaned_in_graph"
	IssueStaleMemory   = "stale_memory"
	IssueNearDuplicate = "near_duplicate"
	IssueLLMFlag       = "llm_flag"
	IssueParseError    = "parse_error"
)

const (
	nearDupThreshold   = 0.92
	staleAgeDays       = 180
	maxStaleRefPenalty = 20
)

// Issue is one detected problem with its severity-weighted penalty.
type Issue struct {
	Type    string `json:"type"`
	Detail  string `json:"detail,omitempty"`
	Penalty int    `json:"penalty"`
}

// Assessment is the scored outcome for one memory.
type Assessment struct {
	ID     string  `json:"id"`
	Score  int     `json:"score"`
	Rating string  `json:"rating"`
	Issues []Issue `json:"issues"`
}

// AssessOptions select the optional tiers. Deep enables the embedding
// near-duplicate check and, when a Completer is wired, the advisory LLM tier.
type AssessOptions struct {
	Deep bool
}

// Rating bands partition the 0-100 score.
func Rating(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 50:
		return "needs_attention"
	case score >= 25:
		return "poor"
	default:
		return "critical"
	}
}

// Assessor runs quality checks for one scope root.
type Assessor struct {
	store     *memory.Store
	completer llm.Completer
	logger    *zap.SugaredLogger
}

// NewAssessor wires an assessor. completer may be nil (Tier 3 off).
func NewAssessor(store *memory.Store, completer llm.Completer, logger *zap.SugaredLogger) *Assessor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Assessor{store: store, completer: completer, logger: logger}
}

// Assess scores one memory. Tier 1 always runs; deeper tiers are optional
// and degrade silently when their collaborator is unavailable.
func (a *Assessor) Assess(ctx context.Context, m *memory.Memory, opts AssessOptions) *Assessment {
	g := graph.Load(a.store.Root(), a.logger)

	issues := a.deterministicIssues(m, g)
	if opts.Deep {
		issues = append(issues, a.nearDuplicateIssues(m)...)
		if a.completer != nil {
			issues = append(issues, a.advisoryIssues(ctx, m)...)
		}
	}

	score := 100
	for _, issue := range issues {
		score -= issue.Penalty
	}
	if score < 0 {
		score = 0
	}
	return &Assessment{ID: m.ID, Score: score, Rating: Rating(score), Issues: issues}
}

func (a *Assessor) deterministicIssues(m *memory.Memory, g *graph.Graph) []Issue {
	issues := []Issue{}

	if strings.TrimSpace(m.Title) == "" {
		issues = append(issues, Issue{Type: IssueMissingTitle, Penalty: 25})
	}
	if len(m.Tags) == 0 {
		issues = append(issues, Issue{Type: IssueMissingTags, Penalty: 10})
	}
	if strings.TrimSpace(m.Content) == "" && m.Type != memory.TypeBreadcrumb {
		issues = append(issues, Issue{Type: IssueEmptyContent, Penalty: 25})
	}

	stalePenalty := 0
	for _, ref := range fileReferences(m.Content) {
		if _, err := os.Stat(ref); err == nil {
			continue
		}
		if stalePenalty >= maxStaleRefPenalty {
			break
		}
		stalePenalty += 10
		issues = append(issues, Issue{Type: IssueStaleFileRef, Detail: ref, Penalty: 10})
	}

	// Absent from the graph and present-but-unlinked are different findings.
	if !g.HasNode(m.ID) {
		issues = append(issues, Issue{Type: IssueNotInGraph, Penalty: 15})
	} else if g.Degree(m.ID) == 0 {
		issues = append(issues, Issue{Type: IssueOrphanInGraph, Penalty: 10})
	}

	if m.Tier == memory.TierTemporary && !m.Updated.IsZero() {
		age := time.Since(m.Updated).Hours() / 24
		if age > staleAgeDays {
			issues = append(issues, Issue{
				Type:    IssueStaleMemory,
				Detail:  fmt.Sprintf("temporary memory untouched for %.0f days", age),
				Penalty: 10,
			})
		}
	}
	return issues
}

var fileRefPattern = regexp.MustCompile(`[A-Za-z0-9_./-]*/[A-Za-z0-9_.-]+\.[A-Za-z0-9]{1,8}`)

// fileReferences pulls path-looking tokens out of free text so stale
// references to deleted files can be flagged.
func fileReferences(content string) []string {
	refs := fileRefPattern.FindAllString(content, -1)
	seen := map[string]struct{}{}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.Trim(ref, "./")
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// nearDuplicateIssues compares this memory's indexed vector against every
// other indexed memory. No index or no vector simply means no finding.
func (a *Assessor) nearDuplicateIssues(m *memory.Memory) []Issue {
	idx, _ := embed.LoadIndex(a.store.Root(), string(a.store.Scope()), a.logger)
	if idx == nil {
		return nil
	}

	var own []float32
	for i, id := range idx.MemoryIDs {
		if id == m.ID {
			own = idx.Embeddings[i]
			break
		}
	}
	if own == nil {
		return nil
	}

	issues := []Issue{}
	for i, id := range idx.MemoryIDs {
		if id == m.ID {
			continue
		}
		if score := embed.CosineSimilarity(own, idx.Embeddings[i]); score >= nearDupThreshold {
			issues = append(issues, Issue{
				Type:    IssueNearDuplicate,
				Detail:  fmt.Sprintf("%s (similarity %.2f)", id, score),
				Penalty: 15,
			})
		}
	}
	return issues
}

const advisoryPrompt = `You review one note from a project knowledge base for contradictions,
supersession or staleness. Reply with strict JSON: {"issues":[{"type":"...","note":"..."}]}.
Return an empty issues array if the note looks fine.

Note %s (%s):
Title: %s
Tags: %s

%s`

type advisoryResponse struct {
	Issues []struct {
		Type string `json:"type"`
		Note string `json:"note"`
	} `json:"issues"`
}

// advisoryIssues asks the LLM collaborator for contradiction/supersession
// findings. Any failure, timeout or unparseable reply is logged and dropped:
// the result is advisory only.
func (a *Assessor) advisoryIssues(ctx context.Context, m *memory.Memory) []Issue {
	prompt := fmt.Sprintf(advisoryPrompt, m.ID, m.Type, m.Title, strings.Join(m.Tags, ", "), m.Content)
	reply, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warnw("advisory quality check unavailable", "id", m.ID, "error", err)
		return nil
	}

	var decoded advisoryResponse
	if err := json.Unmarshal([]byte(extractJSON(reply)), &decoded); err != nil {
		a.logger.Warnw("advisory reply unparseable", "id", m.ID, "error", err)
		return nil
	}

	issues := make([]Issue, 0, len(decoded.Issues))
	for _, item := range decoded.Issues {
		if item.Type == "" {
			continue
		}
		issues = append(issues, Issue{
			Type:    IssueLLMFlag,
			Detail:  item.Type + ": " + item.Note,
			Penalty: 5,
		})
	}
	return issues
}

// extractJSON trims code fences and leading prose models like to add.
func extractJSON(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		return reply[start : end+1]
	}
	return reply
}
