package curation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leohfurlan/reometro-score/internal/application/pipeline"
	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/consolidate"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

type stubSource struct{ trials []consolidate.RawTrial }

func (s *stubSource) FetchSince(context.Context, time.Time) ([]consolidate.RawTrial, error) {
	return s.trials, nil
}

func TestCorrectionAudit(t *testing.T) {
	cat := catalog.NewCatalog([]catalog.Product{
		{ID: 1, Name: "MASSA PRETA 100", Kind: catalog.KindMass},
		{ID: 2, Name: "MASSA BRANCA 200", Kind: catalog.KindMass},
	})
	snap := reference.NewSnapshot(nil, nil, nil, nil)
	source := &stubSource{trials: []consolidate.RawTrial{
		// Matches exactly, never a candidate.
		{SampleText: "MASSA PRETA 100"},
		// Too far from the matcher's cutoff but close enough for audit;
		// appears twice.
		{SampleText: "MASSA PR 1"},
		{SampleText: "massa pr 1"},
		// Hopelessly unrelated, below even the audit cutoff.
		{SampleText: "XYZWQK"},
		{SampleText: ""},
		// In-process material, reported as intermediate rather than as a
		// resolution failure.
		{SampleText: "MASTIGACAO LOTE 3"},
	}}

	audit := NewCorrectionAudit(source, cat, snap, logging.NewNopLogger())
	candidates, err := audit.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	c := candidates[0]
	assert.Equal(t, "MASSA PR 1", c.Input)
	assert.Equal(t, "MASSA PRETA 100", c.Suggestion)
	assert.Equal(t, 2, c.Seen)
	assert.GreaterOrEqual(t, c.Similarity, 0.5)
	assert.False(t, c.Intermediate)

	m := candidates[1]
	assert.Equal(t, "MASTIGACAO LOTE 3", m.Input)
	assert.True(t, m.Intermediate)
	assert.Empty(t, m.Suggestion)
}

func TestGroupClassifier(t *testing.T) {
	source := &stubSource{trials: []consolidate.RawTrial{
		{MachineGroup: "REO-01", PlateTemp: 178, OnsetTime: 60},
		{MachineGroup: "REO-01", PlateTemp: 180, OnsetTime: 58},
		{MachineGroup: "VISC-02", PlateTemp: 100, Viscosity: 63},
		// No temperature: value shape decides.
		{MachineGroup: "NOVA-09", Viscosity: 61},
		{MachineGroup: "NOVA-09", Viscosity: 64},
		// Conflicting evidence stays unknown.
		{MachineGroup: "MIX-03", PlateTemp: 178},
		{MachineGroup: "MIX-03", PlateTemp: 100},
		{MachineGroup: ""},
	}}

	classes, err := NewGroupClassifier(source, logging.NewNopLogger()).
		Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, classes, 4)

	byGroup := map[string]GroupClassification{}
	for _, c := range classes {
		byGroup[c.Group] = c
	}
	assert.Equal(t, reference.KindRheometer, byGroup["REO-01"].Kind)
	assert.Equal(t, reference.KindViscometer, byGroup["VISC-02"].Kind)
	assert.Equal(t, reference.KindViscometer, byGroup["NOVA-09"].Kind)
	assert.Equal(t, reference.KindUnknown, byGroup["MIX-03"].Kind)

	table := Table(classes)
	assert.Len(t, table, 3)
	_, hasUnknown := table["MIX-03"]
	assert.False(t, hasUnknown)
}
