package scoring

import (
	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/consolidate"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// Temperature bands for profile selection.
const (
	highTempMin = 175
	lowTempMin  = 120
)

// deviationPenalty scales how hard a full-span deviation from target hits
// the parameter score.
const deviationPenalty = 30

// Canonical parameter names used in spec files and result traces.
const (
	ParamOnsetTime = "ts2"
	ParamCureTime  = "t90"
	ParamViscosity = "viscosity"
)

// ParamScore is one line of a result trace: what was measured, what the spec
// demanded, and what the parameter contributed.
type ParamScore struct {
	Name       string             `json:"name"`
	Value      float64            `json:"value"`
	Origin     consolidate.Origin `json:"origin"`
	Weight     float64            `json:"weight"`
	Target     float64            `json:"target"`
	Min        float64            `json:"min"`
	Max        float64            `json:"max"`
	Score      float64            `json:"score"`
	OutOfRange bool               `json:"out_of_range,omitempty"`
}

// Result is the scoring outcome of one consolidated record under one
// version.
type Result struct {
	RecordID  int64              `json:"record_id"`
	VersionID int64              `json:"version_id"`
	Score     float64            `json:"score"`
	Action    string             `json:"action"`
	Approved  bool               `json:"approved"`
	Profile   catalog.ProfileKey `json:"profile,omitempty"`
	Trace     []ParamScore       `json:"trace,omitempty"`
}

// Engine scores consolidated records against one frozen version snapshot.
// An engine is immutable after construction and safe for concurrent use.
type Engine struct {
	versionID int64
	specs     *catalog.SpecSet
	rules     []ActionRule

	// outOfRangeZero forces measurements outside [min,max] to score exactly
	// 0 instead of following the deviation formula.
	outOfRangeZero bool

	log logging.Logger
}

// NewEngine validates the version's snapshot and builds an engine over it.
func NewEngine(v *Version, outOfRangeZero bool, log logging.Logger) (*Engine, error) {
	if err := v.Snapshot.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotCorrupt, "rejecting version snapshot")
	}
	specs, err := v.Snapshot.SpecSet()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshotCorrupt, "rejecting version snapshot")
	}
	return &Engine{
		versionID:      v.ID,
		specs:          specs,
		rules:          v.Snapshot.SortedRules(),
		outOfRangeZero: outOfRangeZero,
		log:            log,
	}, nil
}

// Score computes the weighted score, disposition action, and per-parameter
// trace of one consolidated record.
func (e *Engine) Score(recordID int64, rec *consolidate.Record) Result {
	res := Result{RecordID: recordID, VersionID: e.versionID}

	profile, ok := e.selectProfile(rec)
	if !ok {
		res.Action = ActionNoConfiguration
		e.log.Warn("no scoring configuration for record",
			logging.String("product", rec.Product),
			logging.String("lot", rec.Lot),
			logging.String("batch", rec.Batch))
		return res
	}
	res.Profile = profile.Key

	var weightedSum, totalWeight float64
	for _, spec := range profile.Params {
		if spec.Weight <= 0 {
			continue
		}
		m := measurementFor(rec, spec.Name)
		ps := ParamScore{
			Name:   spec.Name,
			Value:  m.Value,
			Origin: m.Origin,
			Weight: spec.Weight,
			Target: spec.Target,
			Min:    spec.Min,
			Max:    spec.Max,
		}
		if m.Origin == consolidate.OriginAbsent {
			// A missing measurement is a full penalty at full weight, not an
			// exclusion from the average.
			ps.Score = 0
		} else {
			ps.Score, ps.OutOfRange = e.scoreValue(spec, m.Value)
		}
		weightedSum += ps.Score * spec.Weight
		totalWeight += spec.Weight
		res.Trace = append(res.Trace, ps)
	}
	if totalWeight > 0 {
		res.Score = weightedSum / totalWeight
	}

	if rule, ok := EvaluateRules(e.rules, res.Score, rec.HasRealViscosity()); ok {
		res.Action = rule.Action
		res.Approved = rule.Approve
	} else {
		res.Action = ActionReject
	}
	return res
}

// selectProfile picks the profile matching the record's representative
// temperature, preferring the equipment variant the aggregation tagged.
// With no temperature match, any profile with content is used.
func (e *Engine) selectProfile(rec *consolidate.Record) (catalog.Profile, bool) {
	temp := rec.RepresentativeTemp()

	switch {
	case temp >= highTempMin:
		key := catalog.ProfileHighTemp
		switch rec.Variant {
		case "A":
			key = catalog.ProfileHighTempA
		case "B":
			key = catalog.ProfileHighTempB
		}
		if p, err := e.specs.Lookup(rec.Product, key); err == nil && len(p.Params) > 0 {
			return p, true
		}
	case temp >= lowTempMin:
		if p, err := e.specs.Lookup(rec.Product, catalog.ProfileLowTemp); err == nil && len(p.Params) > 0 {
			return p, true
		}
	}

	// Fallback: any configured profile with content, in a fixed order so
	// results stay deterministic.
	profiles, ok := e.specs.Profiles(rec.Product)
	if !ok {
		return catalog.Profile{}, false
	}
	for _, key := range []catalog.ProfileKey{
		catalog.ProfileHighTempA,
		catalog.ProfileHighTempB,
		catalog.ProfileHighTemp,
		catalog.ProfileLowTemp,
	} {
		if p, ok := profiles[key]; ok && len(p.Params) > 0 {
			return p, true
		}
	}
	return catalog.Profile{}, false
}

// scoreValue applies the directional deviation formula: the distance from
// target is weighed against the spec span on the side the value fell on.
func (e *Engine) scoreValue(spec catalog.ParamSpec, value float64) (float64, bool) {
	outOfRange := value < spec.Min || value > spec.Max
	if e.outOfRangeZero && outOfRange {
		return 0, true
	}

	var deviation, span float64
	if value >= spec.Target {
		deviation = value - spec.Target
		span = spec.Max - spec.Target
	} else {
		deviation = spec.Target - value
		span = spec.Target - spec.Min
	}
	if span <= 0 {
		if deviation == 0 {
			return 100, outOfRange
		}
		return 0, outOfRange
	}

	score := 100 - deviationPenalty*(deviation/span)
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}
	return score, outOfRange
}

func measurementFor(rec *consolidate.Record, name string) consolidate.Measurement {
	switch name {
	case ParamOnsetTime:
		return rec.OnsetTime
	case ParamCureTime:
		return rec.CureTime
	case ParamViscosity:
		return rec.Viscosity
	default:
		return consolidate.Measurement{Origin: consolidate.OriginAbsent}
	}
}
