// Package consolidate turns raw instrument readings into one consolidated
// record per (lot, batch), merging the readings of every machine that tested
// the same physical batch.
package consolidate

import (
	"strconv"
	"strings"
	"time"

	"github.com/leohfurlan/reometro-score/internal/domain/identify"
)

// RawTrial is one instrument reading as extracted from the laboratory
// database.  Zero-valued measurements mean the instrument did not report the
// parameter.
type RawTrial struct {
	TestID       int64
	LotText      string
	BatchText    string
	Timestamp    time.Time
	SampleText   string
	LegacyCode   string
	PlateTemp    float64
	MachineGroup string
	// TestType is the source system's own class tag ("rheometry" or
	// "viscosity"), used only when machine kind and temperature both fail to
	// classify the row.
	TestType string

	OnsetTime float64 // Ts2
	CureTime  float64 // T90
	Viscosity float64 // torque
}

// Origin tags where a consolidated measurement value came from.
type Origin string

const (
	OriginReal       Origin = "real"
	OriginLotAverage Origin = "lot-average"
	OriginAbsent     Origin = "absent"
)

// Measurement is a merged parameter value together with its origin.
type Measurement struct {
	Value  float64 `json:"value"`
	Origin Origin  `json:"origin"`
}

// Record is the consolidated view of one (lot, batch) group.
type Record struct {
	Lot   string
	Batch string

	Product string
	Variant string
	Method  identify.Method

	PrimaryTestID int64
	MergedTestIDs []int64
	Timestamp     time.Time

	// Observed plate temperatures per reading class.  Zero means the class
	// was never observed for this group.
	RheoTemp float64
	ViscTemp float64

	OnsetTime Measurement
	CureTime  Measurement
	Viscosity Measurement

	// Original unresolved texts, kept for audit.
	RawLotText    string
	RawSampleText string
}

// RepresentativeTemp is the temperature scoring selects a profile by: the
// rheometry temperature when one was observed, otherwise the viscosity
// temperature.
func (r *Record) RepresentativeTemp() float64 {
	if r.RheoTemp != 0 {
		return r.RheoTemp
	}
	return r.ViscTemp
}

// HasRealViscosity reports whether the group's viscosity came from an actual
// reading rather than a lot average.
func (r *Record) HasRealViscosity() bool {
	return r.Viscosity.Origin == OriginReal
}

// NormalizeBatch canonicalizes a raw batch text into a grouping key.
// Integer-looking batches collapse to their numeric form ("007" and "7"
// group together); anything else keeps its trimmed upper-case text so it
// still groups consistently.
func NormalizeBatch(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return strconv.Itoa(n)
	}
	return strings.ToUpper(trimmed)
}
