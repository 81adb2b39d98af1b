package quality

import (
	"context"
	"path/filepath"
	"strings"
)

// AuditReport aggregates a corpus-wide quality scan.
type AuditReport struct {
	Results   []Assessment   `json:"results"`
	Histogram map[string]int `json:"histogram"`
	Average   float64        `json:"average"`
	Scanned   int            `json:"scanned"`
	Errors    int            `json:"errors"`
}

// Audit assesses every memory under the root. A file that fails to parse
// becomes a critical result with a parse_error issue; it never aborts the
// scan.
func (a *Assessor) Audit(ctx context.Context, opts AssessOptions) (*AuditReport, error) {
	files, err := a.store.Files()
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Results:   []Assessment{},
		Histogram: map[string]int{},
	}

	total := 0
	for _, path := range files {
		report.Scanned++

		m, err := a.store.LoadFile(path)
		if err != nil {
			report.Errors++
			report.Results = append(report.Results, Assessment{
				ID:     strings.TrimSuffix(filepath.Base(path), ".md"),
				Score:  0,
				Rating: "critical",
				Issues: []Issue{{Type: IssueParseError, Detail: err.Error(), Penalty: 100}},
			})
			report.Histogram["critical"]++
			continue
		}

		assessment := a.Assess(ctx, m, opts)
		report.Results = append(report.Results, *assessment)
		report.Histogram[assessment.Rating]++
		total += assessment.Score
	}

	if report.Scanned > 0 {
		report.Average = float64(total) / float64(report.Scanned)
	}
	return report, nil
}
