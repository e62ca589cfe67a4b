package identify

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/leohfurlan/reometro-score/internal/domain/catalog"
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
)

// DefaultCutoff is the minimum similarity for a fuzzy product match.
const DefaultCutoff = 0.7

// riskWords are name fragments that distinguish otherwise similar products.
// A fuzzy match is rejected when the query and the candidate disagree on any
// of them: "MASSA X PRETO" must never match "MASSA X BRANCO" just because
// the rest of the name is close.
var riskWords = []string{"ORB", "AQ", "PRETO", "BRANCO", "STD", "ESPECIAL"}

// Similarity returns a [0, 1] similarity ratio between two strings based on
// edit distance.  Identical strings score 1; strings with nothing in common
// score 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Matcher resolves free-text product names against the catalog.
type Matcher struct {
	catalog *catalog.Catalog
	snap    *reference.Snapshot
	cutoff  float64
}

// NewMatcher builds a matcher with the default similarity cutoff.
func NewMatcher(cat *catalog.Catalog, snap *reference.Snapshot) *Matcher {
	return &Matcher{catalog: cat, snap: snap, cutoff: DefaultCutoff}
}

// WithCutoff returns a copy of the matcher using the given similarity cutoff.
// The audit tool lowers it to surface borderline candidates for review.
func (m *Matcher) WithCutoff(cutoff float64) *Matcher {
	clone := *m
	clone.cutoff = cutoff
	return &clone
}

// Match resolves a free-text name to a catalog product name.  It tries the
// correction table, then an exact lookup, then the compound prefix added and
// stripped, and finally the closest fuzzy candidate above the cutoff that
// survives the risk-word check.
func (m *Matcher) Match(name string) (string, bool) {
	query := m.snap.Correct(name)
	if query == "" {
		return "", false
	}

	if _, err := m.catalog.ByName(query); err == nil {
		return query, true
	}

	if !strings.HasPrefix(query, "MASSA ") {
		prefixed := "MASSA " + query
		if _, err := m.catalog.ByName(prefixed); err == nil {
			return prefixed, true
		}
	} else {
		stripped := strings.TrimPrefix(query, "MASSA ")
		if _, err := m.catalog.ByName(stripped); err == nil {
			return stripped, true
		}
	}

	return m.closest(query)
}

// Closest exposes the fuzzy stage on its own, returning the best candidate
// and its similarity regardless of the risk-word veto.  The audit tool uses
// it to propose correction-table entries.
func (m *Matcher) Closest(name string) (string, float64) {
	return m.bestCandidate(m.snap.Correct(name))
}

func (m *Matcher) bestCandidate(query string) (string, float64) {
	best, bestSim := "", 0.0
	for _, candidate := range m.catalog.Names() {
		if sim := Similarity(query, candidate); sim > bestSim {
			best, bestSim = candidate, sim
		}
	}
	return best, bestSim
}

// closest accepts or refuses the single nearest candidate.  A vetoed best
// candidate refuses the match outright rather than falling through to a
// farther name.
func (m *Matcher) closest(query string) (string, bool) {
	best, bestSim := m.bestCandidate(query)
	if best == "" || bestSim < m.cutoff || riskWordConflict(query, best) {
		return "", false
	}
	return best, true
}

func riskWordConflict(a, b string) bool {
	for _, w := range riskWords {
		if containsWord(a, w) != containsWord(b, w) {
			return true
		}
	}
	return false
}

func containsWord(s, w string) bool {
	for _, f := range strings.Fields(s) {
		if f == w {
			return true
		}
	}
	return false
}
