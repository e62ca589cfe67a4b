package consolidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/identify"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

func newTestAggregator() *Aggregator {
	snap := reference.NewSnapshot(
		map[string]reference.LotEntry{
			"9459": {Product: "MASSA PRETA 100", Variant: "A"},
			"1234": {Product: "MASSA BRANCA 200"},
		},
		nil, nil,
		map[string]reference.EquipmentKind{
			"REO-01":  reference.KindRheometer,
			"VISC-02": reference.KindViscometer,
		},
	)
	cat := catalog.NewCatalog([]catalog.Product{
		{ID: 1, Name: "MASSA PRETA 100", Kind: catalog.KindMass},
		{ID: 2, Name: "MASSA BRANCA 200", Kind: catalog.KindMass},
	})
	ident := identify.NewIdentifier(snap, identify.NewMatcher(cat, snap), false)
	return NewAggregator(ident, snap, logging.NewNopLogger())
}

func TestNormalizeBatch(t *testing.T) {
	assert.Equal(t, "7", NormalizeBatch("007"))
	assert.Equal(t, "7", NormalizeBatch(" 7 "))
	assert.Equal(t, "B-3", NormalizeBatch(" b-3 "))
}

func TestAggregate_MergesMachinesOfSameBatch(t *testing.T) {
	agg := newTestAggregator()
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	recs, stats := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "9459", BatchText: "1", Timestamp: ts,
			MachineGroup: "REO-01", PlateTemp: 178, OnsetTime: 60, CureTime: 100},
		{TestID: 2, LotText: "OTR*9459", BatchText: "01", Timestamp: ts.Add(time.Hour),
			MachineGroup: "VISC-02", PlateTemp: 100, Viscosity: 63},
	})

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "9459", rec.Lot)
	assert.Equal(t, "1", rec.Batch)
	assert.Equal(t, "MASSA PRETA 100", rec.Product)
	assert.Equal(t, "A", rec.Variant)
	assert.Equal(t, identify.MethodLot, rec.Method)
	assert.Equal(t, int64(1), rec.PrimaryTestID)
	assert.Equal(t, []int64{1, 2}, rec.MergedTestIDs)
	assert.Equal(t, 178.0, rec.RheoTemp)
	assert.Equal(t, 100.0, rec.ViscTemp)
	assert.Equal(t, 178.0, rec.RepresentativeTemp())
	assert.Equal(t, Measurement{Value: 60, Origin: OriginReal}, rec.OnsetTime)
	assert.Equal(t, Measurement{Value: 100, Origin: OriginReal}, rec.CureTime)
	assert.Equal(t, Measurement{Value: 63, Origin: OriginReal}, rec.Viscosity)
	assert.True(t, rec.HasRealViscosity())

	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 0, stats.Dropped)
	assert.Equal(t, 1, stats.ByMethod[identify.MethodLot])
}

func TestAggregate_FirstRealValueWins(t *testing.T) {
	agg := newTestAggregator()

	recs, _ := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "9459", BatchText: "1", MachineGroup: "REO-01", OnsetTime: 60},
		// Later zero must not overwrite, later non-zero must not either.
		{TestID: 2, LotText: "9459", BatchText: "1", MachineGroup: "REO-01", OnsetTime: 0},
		{TestID: 3, LotText: "9459", BatchText: "1", MachineGroup: "REO-01", OnsetTime: 75},
	})

	require.Len(t, recs, 1)
	assert.Equal(t, Measurement{Value: 60, Origin: OriginReal}, recs[0].OnsetTime)
}

func TestAggregate_LotAverageSecondPass(t *testing.T) {
	agg := newTestAggregator()

	recs, stats := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "9459", BatchText: "1", MachineGroup: "VISC-02", Viscosity: 60},
		{TestID: 2, LotText: "9459", BatchText: "2", MachineGroup: "VISC-02", Viscosity: 66},
		{TestID: 3, LotText: "9459", BatchText: "3", MachineGroup: "REO-01", OnsetTime: 55},
	})

	require.Len(t, recs, 3)
	byBatch := map[string]*Record{}
	for _, r := range recs {
		byBatch[r.Batch] = r
	}

	assert.Equal(t, OriginReal, byBatch["1"].Viscosity.Origin)
	assert.Equal(t, OriginReal, byBatch["2"].Viscosity.Origin)
	require.Equal(t, OriginLotAverage, byBatch["3"].Viscosity.Origin)
	assert.InDelta(t, 63.0, byBatch["3"].Viscosity.Value, 1e-9)
	assert.False(t, byBatch["3"].HasRealViscosity())
	assert.Equal(t, 1, stats.LotAverage)
}

func TestAggregate_NoRealViscosityMeansAbsent(t *testing.T) {
	agg := newTestAggregator()

	recs, stats := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "1234", BatchText: "1", MachineGroup: "REO-01", OnsetTime: 50},
		{TestID: 2, LotText: "1234", BatchText: "2", MachineGroup: "REO-01", OnsetTime: 52},
	})

	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, OriginAbsent, r.Viscosity.Origin)
	}
	assert.Equal(t, 2, stats.AbsentVisc)
}

func TestAggregate_DropsUnresolvedGroups(t *testing.T) {
	agg := newTestAggregator()

	recs, stats := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "9459", BatchText: "1", MachineGroup: "REO-01", OnsetTime: 50},
		{TestID: 2, LotText: "SEM LOTE", BatchText: "1", SampleText: "???", MachineGroup: "REO-01", OnsetTime: 44},
	})

	require.Len(t, recs, 1)
	assert.Equal(t, "9459", recs[0].Lot)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.ByMethod[identify.MethodUnresolved])
}

func TestAggregate_UnresolvedLotsKeepDistinctGroups(t *testing.T) {
	agg := newTestAggregator()

	// Same batch, two different unresolvable lot texts: the raw text keys the
	// group so the physical lots stay apart.
	recs, stats := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "UNKNOWN-111", BatchText: "5", SampleText: "MASSA BRANCA 200", MachineGroup: "REO-01", OnsetTime: 50},
		{TestID: 2, LotText: "UNKNOWN-222", BatchText: "5", SampleText: "MASSA BRANCA 200", MachineGroup: "REO-01", OnsetTime: 44},
	})

	require.Len(t, recs, 2)
	assert.Equal(t, "UNKNOWN-111", recs[0].Lot)
	assert.Equal(t, "UNKNOWN-222", recs[1].Lot)
	assert.Equal(t, Measurement{Value: 50, Origin: OriginReal}, recs[0].OnsetTime)
	assert.Equal(t, Measurement{Value: 44, Origin: OriginReal}, recs[1].OnsetTime)
	assert.Equal(t, 2, stats.Groups)
}

func TestAggregate_ViscometerRowMergesRheoParams(t *testing.T) {
	agg := newTestAggregator()

	// A viscometer-classified row still contributes the rheometry parameters
	// it reported; classification only steers the temperature bookkeeping.
	recs, _ := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "9459", BatchText: "1", MachineGroup: "VISC-02",
			PlateTemp: 100, OnsetTime: 12, CureTime: 34, Viscosity: 63},
	})

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, 100.0, rec.ViscTemp)
	assert.Equal(t, 0.0, rec.RheoTemp)
	assert.Equal(t, Measurement{Value: 12, Origin: OriginReal}, rec.OnsetTime)
	assert.Equal(t, Measurement{Value: 34, Origin: OriginReal}, rec.CureTime)
	assert.Equal(t, Measurement{Value: 63, Origin: OriginReal}, rec.Viscosity)
}

func TestAggregate_PrimaryIDIsLowestOfGroup(t *testing.T) {
	agg := newTestAggregator()

	// Rows arrive in arbitrary order; the record key must not depend on it.
	recs, _ := agg.Aggregate([]RawTrial{
		{TestID: 9, LotText: "9459", BatchText: "1", MachineGroup: "REO-01", OnsetTime: 60},
		{TestID: 4, LotText: "9459", BatchText: "1", MachineGroup: "VISC-02", Viscosity: 62},
	})

	require.Len(t, recs, 1)
	assert.Equal(t, int64(4), recs[0].PrimaryTestID)
	assert.Equal(t, []int64{4, 9}, recs[0].MergedTestIDs)
}

func TestAggregate_LaterRowResolvesGroup(t *testing.T) {
	agg := newTestAggregator()

	recs, stats := agg.Aggregate([]RawTrial{
		// Same unresolved lot key (empty) and batch; second row resolves via
		// free text.
		{TestID: 1, LotText: "", BatchText: "1", SampleText: "???", MachineGroup: "REO-01", OnsetTime: 50},
		{TestID: 2, LotText: "", BatchText: "1", SampleText: "MASSA BRANCA 200", MachineGroup: "REO-01", CureTime: 90},
	})

	require.Len(t, recs, 1)
	assert.Equal(t, "MASSA BRANCA 200", recs[0].Product)
	assert.Equal(t, identify.MethodText, recs[0].Method)
	assert.Equal(t, 0, stats.Dropped)
	assert.Equal(t, 0, stats.ByMethod[identify.MethodUnresolved])
}

func TestClassify_TemperatureAndTagFallback(t *testing.T) {
	agg := newTestAggregator()

	// Unknown machine group, viscometry temperature band.
	recs, _ := agg.Aggregate([]RawTrial{
		{TestID: 1, LotText: "9459", BatchText: "1", MachineGroup: "NOVA-09", PlateTemp: 100, Viscosity: 61},
	})
	require.Len(t, recs, 1)
	assert.Equal(t, 100.0, recs[0].ViscTemp)
	assert.Equal(t, OriginReal, recs[0].Viscosity.Origin)

	// Unknown machine group, no usable temperature, row tag decides.
	recs, _ = agg.Aggregate([]RawTrial{
		{TestID: 2, LotText: "9459", BatchText: "2", MachineGroup: "NOVA-09", TestType: "viscosity", Viscosity: 64},
	})
	require.Len(t, recs, 1)
	assert.Equal(t, 0.0, recs[0].RheoTemp)
	assert.Equal(t, OriginReal, recs[0].Viscosity.Origin)
	assert.Equal(t, 64.0, recs[0].Viscosity.Value)
}
