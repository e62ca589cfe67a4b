// Package scoring computes the weighted quality score and disposition action
// of consolidated batch records, under a versioned configuration snapshot so
// historical scores stay reproducible.
package scoring

import (
	"sort"
	"time"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// Status is the lifecycle state of a scoring version.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// ActionRule maps a score threshold to a disposition action.  Rules are
// evaluated in descending MinScore order; RequireRealViscosity rules are
// skipped (not failed) when the record's viscosity was averaged.
type ActionRule struct {
	MinScore             float64 `json:"min_score"`
	Action               string  `json:"action"`
	RequireRealViscosity bool    `json:"require_real_viscosity"`
	Approve              bool    `json:"approve"`
}

// Disposition actions used by the default rule ladder.
const (
	ActionApprovePrime    = "approve-prime"
	ActionApprove         = "approve"
	ActionApproveWatch    = "approve-with-monitoring"
	ActionUseRestricted   = "use-restricted"
	ActionCutBlend        = "cut-and-blend"
	ActionReject          = "reject"
	ActionNoConfiguration = "no-configuration"
)

// Snapshot is the immutable scoring configuration a version freezes: every
// parameter spec by product and profile, plus the ordered action-rule list.
type Snapshot struct {
	Specs map[string][]catalog.Profile `json:"specs"`
	Rules []ActionRule                 `json:"rules"`
}

// Validate checks the snapshot's internal consistency.
func (s *Snapshot) Validate() error {
	if len(s.Rules) == 0 {
		return errors.New(errors.ErrCodeRuleSetEmpty, "snapshot has no action rules")
	}
	for _, profiles := range s.Specs {
		for _, p := range profiles {
			if err := p.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// SpecSet builds the validated, indexed spec set out of the snapshot.
func (s *Snapshot) SpecSet() (*catalog.SpecSet, error) {
	return catalog.NewSpecSet(s.Specs)
}

// SortedRules returns the rule list ordered by descending minimum score.
// The input snapshot is left untouched.
func (s *Snapshot) SortedRules() []ActionRule {
	rules := append([]ActionRule(nil), s.Rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].MinScore > rules[j].MinScore
	})
	return rules
}

// Version is one immutable entry of the versioning store.
type Version struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// DefaultRules is the bootstrap rule ladder installed when a deployment has
// no versions yet.
func DefaultRules() []ActionRule {
	return []ActionRule{
		{MinScore: 85, Action: ActionApprovePrime, RequireRealViscosity: true, Approve: true},
		{MinScore: 85, Action: ActionApprove, Approve: true},
		{MinScore: 75, Action: ActionApproveWatch, Approve: true},
		{MinScore: 70, Action: ActionUseRestricted, Approve: true},
		{MinScore: 68, Action: ActionCutBlend},
	}
}

// EvaluateRules walks the pre-sorted rule list and returns the first rule the
// record qualifies for.  A rule demanding a real viscosity is passed over
// when realViscosity is false, letting the record fall through to a lower
// threshold.  The zero rule and false mean no rule matched and the caller
// must apply the reject default.
func EvaluateRules(sorted []ActionRule, score float64, realViscosity bool) (ActionRule, bool) {
	for _, rule := range sorted {
		if score < rule.MinScore {
			continue
		}
		if rule.RequireRealViscosity && !realViscosity {
			continue
		}
		return rule, true
	}
	return ActionRule{}, false
}
