// Package reference holds the lookup tables the identification stage works
// from: the lot map extracted from the planning spreadsheet, the learned
// lot overrides taught by operators, the free-text name corrections, and the
// machine-group classification.
package reference

import (
	"strings"
	"time"
)

// EquipmentKind tells which instrument family a machine group belongs to.
type EquipmentKind string

const (
	KindRheometer  EquipmentKind = "RHEOMETER"
	KindViscometer EquipmentKind = "VISCOMETER"
	KindUnknown    EquipmentKind = "UNKNOWN"
)

// LotEntry is what the planning spreadsheet knows about one lot number.
type LotEntry struct {
	Product string `json:"product"`
	// Variant is the rheometer variant letter ("A" or "B") scheduled for the
	// lot, or empty when the sheet does not say.
	Variant string `json:"variant,omitempty"`
	// Year is the sheet tab the entry came from.
	Year string `json:"year,omitempty"`
}

// LearnedEntry is a manual lot → product association taught through the
// teach command.  Learned entries outrank every other identification source.
type LearnedEntry struct {
	Product  string    `json:"product"`
	TaughtAt time.Time `json:"taught_at,omitempty"`
}

// Snapshot is an immutable view of every reference table, rebuilt wholesale
// at the start of a pipeline run.  Lookups never mutate it, so a Snapshot is
// safe for concurrent use.
type Snapshot struct {
	lots        map[string]LotEntry
	learned     map[string]LearnedEntry
	corrections map[string]string
	groups      map[string]EquipmentKind
}

// NewSnapshot builds a snapshot from the raw tables.  Lot numbers,
// correction keys and values, and group names are all normalized to trimmed
// upper case so lookups are case-insensitive.  Nil maps are allowed.
func NewSnapshot(
	lots map[string]LotEntry,
	learned map[string]LearnedEntry,
	corrections map[string]string,
	groups map[string]EquipmentKind,
) *Snapshot {
	s := &Snapshot{
		lots:        make(map[string]LotEntry, len(lots)),
		learned:     make(map[string]LearnedEntry, len(learned)),
		corrections: make(map[string]string, len(corrections)),
		groups:      make(map[string]EquipmentKind, len(groups)),
	}
	for lot, e := range lots {
		s.lots[normalize(lot)] = e
	}
	for lot, e := range learned {
		s.learned[normalize(lot)] = e
	}
	for from, to := range corrections {
		s.corrections[normalize(from)] = normalize(to)
	}
	for g, k := range groups {
		s.groups[normalize(g)] = k
	}
	return s
}

func normalize(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// Lot returns the spreadsheet entry for a lot number.
func (s *Snapshot) Lot(lot string) (LotEntry, bool) {
	e, ok := s.lots[normalize(lot)]
	return e, ok
}

// Learned returns the taught override for a lot number.
func (s *Snapshot) Learned(lot string) (LearnedEntry, bool) {
	e, ok := s.learned[normalize(lot)]
	return e, ok
}

// Correct maps a free-text product name through the correction table.  The
// input is returned normalized but otherwise unchanged when no correction
// applies.
func (s *Snapshot) Correct(name string) string {
	n := normalize(name)
	if to, ok := s.corrections[n]; ok {
		return to
	}
	return n
}

// KindFor classifies a machine group.  Unmapped groups come back as
// KindUnknown so callers can fall back to temperature or value-shape
// heuristics.
func (s *Snapshot) KindFor(group string) EquipmentKind {
	if k, ok := s.groups[normalize(group)]; ok {
		return k
	}
	return KindUnknown
}

// LotCount returns the number of lots the snapshot knows.
func (s *Snapshot) LotCount() int { return len(s.lots) }

// LearnedCount returns the number of taught overrides.
func (s *Snapshot) LearnedCount() int { return len(s.learned) }

// Lots returns a copy of the lot map, for snapshot caching.
func (s *Snapshot) Lots() map[string]LotEntry {
	out := make(map[string]LotEntry, len(s.lots))
	for k, v := range s.lots {
		out[k] = v
	}
	return out
}
