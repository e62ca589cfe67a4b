// Package identify resolves dirty laboratory entries to known lot numbers
// and catalog products.  Lab technicians type lot references and product
// names free-hand, so every resolution step tolerates prefixes, padding,
// typos, and partial entries.
package identify

import (
	"regexp"
	"strings"

	"github.com/leohfurlan/reometro-score/internal/domain/reference"
)

var digitRuns = regexp.MustCompile(`\d+`)

// minLotLen is the shortest candidate the trailing-digit fallback will try.
// Anything shorter matches too many unrelated lots to be trustworthy.
const minLotLen = 2

// LotResolver maps raw lot references to lot numbers known to the reference
// snapshot.  Resolution results are memoized per resolver, so one resolver
// serves one pipeline run.
type LotResolver struct {
	snap *reference.Snapshot
	memo map[string]string
}

// NewLotResolver builds a resolver over the given snapshot.
func NewLotResolver(snap *reference.Snapshot) *LotResolver {
	return &LotResolver{snap: snap, memo: make(map[string]string)}
}

// Resolve extracts a known lot number from a raw reference.  It tries, in
// order:
//
//  1. the segment after the last asterisk, which operators use to mark the
//     lot inside a composite reference ("OTR1801*9459" → "9459");
//  2. the whole trimmed upper-cased string as-is;
//  3. each run of digits, rightmost first, with leading zeros stripped;
//  4. each digit run progressively shortened from the right, down to two
//     characters, to shed appended sequence digits.
//
// The empty string and false are returned when nothing matches.
func (r *LotResolver) Resolve(raw string) (string, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return "", false
	}
	if lot, ok := r.memo[raw]; ok {
		return lot, lot != ""
	}
	lot := r.resolve(raw)
	r.memo[raw] = lot
	return lot, lot != ""
}

func (r *LotResolver) resolve(raw string) string {
	if i := strings.LastIndexByte(raw, '*'); i >= 0 {
		marked := stripLeadingZeros(strings.TrimSpace(raw[i+1:]))
		if r.known(marked) {
			return marked
		}
	}

	if r.known(raw) {
		return raw
	}

	// Rightmost digit run first: operators append the lot at the end of a
	// composite reference far more often than at the start.
	runs := digitRuns.FindAllString(raw, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		candidate := stripLeadingZeros(runs[i])
		if r.known(candidate) {
			return candidate
		}
	}
	for i := len(runs) - 1; i >= 0; i-- {
		candidate := stripLeadingZeros(runs[i])
		for len(candidate) > minLotLen {
			candidate = candidate[:len(candidate)-1]
			if r.known(candidate) {
				return candidate
			}
		}
	}
	return ""
}

func (r *LotResolver) known(lot string) bool {
	if lot == "" {
		return false
	}
	if _, ok := r.snap.Lot(lot); ok {
		return true
	}
	_, ok := r.snap.Learned(lot)
	return ok
}

func stripLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}
