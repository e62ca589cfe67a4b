package consolidate

import (
	"sort"
	"strings"

	"github.com/leohfurlan/reometro-score/internal/domain/identify"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
	"github.com/leohfurlan/reometro-score/internal/infrastructure/monitoring/logging"
)

// Temperature bands used to classify a reading when the machine group is not
// mapped.  Plates between the bands classify by the record's own tag.
const (
	viscTempLow  = 90
	viscTempHigh = 115
	rheoTempMin  = 120
)

// Stats summarizes one aggregation pass.
type Stats struct {
	Rows       int
	Groups     int
	Dropped    int
	ByMethod   map[identify.Method]int
	LotAverage int
	AbsentVisc int
}

// Aggregator groups raw trials into consolidated records.
type Aggregator struct {
	ident *identify.Identifier
	snap  *reference.Snapshot
	log   logging.Logger
}

// NewAggregator wires an aggregator over one identification cascade and one
// reference snapshot.
func NewAggregator(ident *identify.Identifier, snap *reference.Snapshot, log logging.Logger) *Aggregator {
	return &Aggregator{ident: ident, snap: snap, log: log}
}

type groupKey struct {
	lot   string
	batch string
}

// Aggregate runs the two-pass consolidation: first group and merge every raw
// trial, then fill missing viscosities from per-lot averages.  Groups whose
// product could not be resolved are counted and dropped from the output.
func (a *Aggregator) Aggregate(trials []RawTrial) ([]*Record, Stats) {
	stats := Stats{Rows: len(trials), ByMethod: make(map[identify.Method]int)}

	groups := make(map[groupKey]*Record)
	var order []groupKey

	for i := range trials {
		t := &trials[i]
		id := a.ident.Identify(t.LotText, t.SampleText, t.LegacyCode)

		lot := id.Lot
		if lot == "" {
			// An unresolved lot keeps its raw text as the group key so
			// physically distinct lots never collapse into one record.
			lot = strings.ToUpper(strings.TrimSpace(t.LotText))
		}
		key := groupKey{lot: lot, batch: NormalizeBatch(t.BatchText)}
		rec, ok := groups[key]
		if !ok {
			rec = &Record{
				Lot:           lot,
				Batch:         key.batch,
				Product:       id.Product,
				Variant:       id.Variant,
				Method:        id.Method,
				PrimaryTestID: t.TestID,
				Timestamp:     t.Timestamp,
				RawLotText:    t.LotText,
				RawSampleText: t.SampleText,
				OnsetTime:     Measurement{Origin: OriginAbsent},
				CureTime:      Measurement{Origin: OriginAbsent},
				Viscosity:     Measurement{Origin: OriginAbsent},
			}
			groups[key] = rec
			order = append(order, key)
			stats.ByMethod[id.Method]++
		} else if rec.Method == identify.MethodUnresolved && id.Identified() {
			// A later row of the same group may resolve where the first did
			// not; upgrade the group's identity.
			rec.Product = id.Product
			rec.Variant = id.Variant
			stats.ByMethod[rec.Method]--
			rec.Method = id.Method
			stats.ByMethod[id.Method]++
		}

		a.mergeRow(rec, t)
	}
	stats.Groups = len(groups)

	// Second pass: per-lot viscosity averages for groups with no real
	// reading.  A lot with zero real readings yields no average.
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, key := range order {
		rec := groups[key]
		if rec.Viscosity.Origin == OriginReal {
			sums[rec.Lot] += rec.Viscosity.Value
			counts[rec.Lot]++
		}
	}

	out := make([]*Record, 0, len(order))
	for _, key := range order {
		rec := groups[key]
		if rec.Viscosity.Origin == OriginAbsent {
			if n := counts[rec.Lot]; n > 0 {
				rec.Viscosity = Measurement{Value: sums[rec.Lot] / float64(n), Origin: OriginLotAverage}
				stats.LotAverage++
			} else {
				stats.AbsentVisc++
			}
		}
		if rec.Product == "" {
			stats.Dropped++
			a.log.Debug("dropping unresolved group",
				logging.String("lot", rec.Lot),
				logging.String("batch", rec.Batch),
				logging.String("raw_lot", rec.RawLotText))
			continue
		}
		sort.Slice(rec.MergedTestIDs, func(i, j int) bool {
			return rec.MergedTestIDs[i] < rec.MergedTestIDs[j]
		})
		// The lowest merged test id keys the record, so the key stays stable
		// no matter what order the source returned the rows in.
		rec.PrimaryTestID = rec.MergedTestIDs[0]
		out = append(out, rec)
	}

	a.log.Info("aggregation finished",
		logging.Int("rows", stats.Rows),
		logging.Int("groups", stats.Groups),
		logging.Int("dropped", stats.Dropped),
		logging.Int("lot_average_fills", stats.LotAverage))
	return out, stats
}

// mergeRow folds one raw trial into its group.  The first real value wins
// per parameter; later zeros never overwrite a set value.  Classification
// only steers the temperature bookkeeping: every reported parameter merges
// regardless of which instrument family the row came from.
func (a *Aggregator) mergeRow(rec *Record, t *RawTrial) {
	rec.MergedTestIDs = append(rec.MergedTestIDs, t.TestID)
	if t.Timestamp.After(rec.Timestamp) {
		rec.Timestamp = t.Timestamp
	}

	switch a.classify(t) {
	case reference.KindViscometer:
		if rec.ViscTemp == 0 && t.PlateTemp != 0 {
			rec.ViscTemp = t.PlateTemp
		}
	default:
		if rec.RheoTemp == 0 && t.PlateTemp != 0 {
			rec.RheoTemp = t.PlateTemp
		}
	}

	if rec.OnsetTime.Origin != OriginReal && t.OnsetTime != 0 {
		rec.OnsetTime = Measurement{Value: t.OnsetTime, Origin: OriginReal}
	}
	if rec.CureTime.Origin != OriginReal && t.CureTime != 0 {
		rec.CureTime = Measurement{Value: t.CureTime, Origin: OriginReal}
	}
	if rec.Viscosity.Origin != OriginReal && t.Viscosity != 0 {
		rec.Viscosity = Measurement{Value: t.Viscosity, Origin: OriginReal}
	}
}

// classify decides the reading class of one row: declared machine kind
// first, then the plate-temperature heuristic, then the row's own tag.
func (a *Aggregator) classify(t *RawTrial) reference.EquipmentKind {
	if k := a.snap.KindFor(t.MachineGroup); k != reference.KindUnknown {
		return k
	}
	if t.PlateTemp >= viscTempLow && t.PlateTemp <= viscTempHigh {
		return reference.KindViscometer
	}
	if t.PlateTemp >= rheoTempMin {
		return reference.KindRheometer
	}
	if t.TestType == "viscosity" {
		return reference.KindViscometer
	}
	return reference.KindRheometer
}
