// Package curation holds the operator-facing maintenance tools: proposing
// correction-table entries for recurring unmatched names and classifying
// machine groups from observed trial data.
package curation

import (
	"context"
	"sort"
	"strings"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/identify"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

// auditCutoff is deliberately lower than the matcher's: the audit surfaces
// borderline candidates a human can confirm that automatic matching must
// refuse.
const auditCutoff = 0.5

// Candidate is one proposed correction-table entry.  Intermediate marks
// mastication batches: in-process material that is expected to match no
// finished product, reported so it is not mistaken for a resolution failure.
type Candidate struct {
	Input        string  `json:"input"`
	Suggestion   string  `json:"suggestion,omitempty"`
	Similarity   float64 `json:"similarity,omitempty"`
	Seen         int     `json:"seen"`
	Intermediate bool    `json:"intermediate,omitempty"`
}

// masticationMarkers tag in-process (intermediate) batches in lot or sample
// text.
var masticationMarkers = []string{"MASTIGA", "MAST"}

func isIntermediate(text string) bool {
	for _, m := range masticationMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// CorrectionAudit scans raw trials for sample names the matcher cannot
// resolve and proposes the closest catalog entry for each.
type CorrectionAudit struct {
	source pipeline.TrialSource
	cat    *catalog.Catalog
	snap   *reference.Snapshot
	log    logging.Logger
}

// NewCorrectionAudit wires an audit over one catalog and snapshot.
func NewCorrectionAudit(source pipeline.TrialSource, cat *catalog.Catalog,
	snap *reference.Snapshot, log logging.Logger) *CorrectionAudit {
	return &CorrectionAudit{source: source, cat: cat, snap: snap, log: log}
}

// Run collects the unmatched sample names since minDate and returns the
// candidates above the audit cutoff, most frequent first.
func (a *CorrectionAudit) Run(ctx context.Context, opts pipeline.Options) ([]Candidate, error) {
	trials, err := a.source.FetchSince(ctx, opts.MinDate)
	if err != nil {
		return nil, err
	}

	matcher := identify.NewMatcher(a.cat, a.snap)
	seen := make(map[string]int)
	intermediate := make(map[string]bool)
	for i := range trials {
		text := trials[i].SampleText
		if text == "" {
			continue
		}
		if _, ok := matcher.Match(text); ok {
			continue
		}
		key := catalog.NormalizeName(text)
		seen[key]++
		if isIntermediate(catalog.NormalizeName(text + " " + trials[i].LotText)) {
			intermediate[key] = true
		}
	}

	var out []Candidate
	for input, count := range seen {
		if intermediate[input] {
			out = append(out, Candidate{Input: input, Seen: count, Intermediate: true})
			continue
		}
		suggestion, sim := matcher.Closest(input)
		if sim < auditCutoff {
			continue
		}
		out = append(out, Candidate{
			Input:      input,
			Suggestion: suggestion,
			Similarity: sim,
			Seen:       count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seen != out[j].Seen {
			return out[i].Seen > out[j].Seen
		}
		return out[i].Input < out[j].Input
	})

	a.log.Info("correction audit finished",
		logging.Int("unmatched_names", len(seen)),
		logging.Int("candidates", len(out)))
	return out, nil
}
