package curation

import (
	"context"
	"sort"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

// Temperature bands reused for classification from observed plate
// temperatures.
const (
	viscBandLow  = 90
	viscBandHigh = 115
	rheoBandMin  = 120
)

// GroupClassification is the observed evidence and verdict for one machine
// group.
type GroupClassification struct {
	Group     string                  `json:"group"`
	Kind      reference.EquipmentKind `json:"kind"`
	RheoVotes int                     `json:"rheo_votes"`
	ViscVotes int                     `json:"visc_votes"`
}

// GroupClassifier derives the machine-group table from trial history:
// groups are classified by where their plate temperatures cluster, with
// the shape of the measured values as a tie breaker.
type GroupClassifier struct {
	source pipeline.TrialSource
	log    logging.Logger
}

// NewGroupClassifier builds a classifier over the trial source.
func NewGroupClassifier(source pipeline.TrialSource, log logging.Logger) *GroupClassifier {
	return &GroupClassifier{source: source, log: log}
}

// Run tallies every trial since minDate and returns one verdict per machine
// group, sorted by group name.
func (c *GroupClassifier) Run(ctx context.Context, opts pipeline.Options) ([]GroupClassification, error) {
	trials, err := c.source.FetchSince(ctx, opts.MinDate)
	if err != nil {
		return nil, err
	}

	votes := make(map[string]*GroupClassification)
	for i := range trials {
		t := &trials[i]
		if t.MachineGroup == "" {
			continue
		}
		v, ok := votes[t.MachineGroup]
		if !ok {
			v = &GroupClassification{Group: t.MachineGroup}
			votes[t.MachineGroup] = v
		}
		switch {
		case t.PlateTemp >= viscBandLow && t.PlateTemp <= viscBandHigh:
			v.ViscVotes++
		case t.PlateTemp >= rheoBandMin:
			v.RheoVotes++
		case t.Viscosity != 0 && t.OnsetTime == 0 && t.CureTime == 0:
			// No usable temperature; a lone viscosity reading is the
			// viscometer's signature value shape.
			v.ViscVotes++
		case t.OnsetTime != 0 || t.CureTime != 0:
			v.RheoVotes++
		}
	}

	out := make([]GroupClassification, 0, len(votes))
	for _, v := range votes {
		switch {
		case v.ViscVotes > v.RheoVotes:
			v.Kind = reference.KindViscometer
		case v.RheoVotes > v.ViscVotes:
			v.Kind = reference.KindRheometer
		default:
			v.Kind = reference.KindUnknown
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })

	c.log.Info("group classification finished", logging.Int("groups", len(out)))
	return out, nil
}

// Table converts classifications into the persisted group map, leaving out
// groups that stayed unknown.
func Table(classes []GroupClassification) map[string]reference.EquipmentKind {
	out := make(map[string]reference.EquipmentKind, len(classes))
	for _, c := range classes {
		if c.Kind == reference.KindUnknown {
			continue
		}
		out[c.Group] = c.Kind
	}
	return out
}
