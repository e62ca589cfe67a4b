package identify

import (
	"github.com/leohfurlan/reometro-score/internal/domain/reference"
)

// Method records which identification tier produced a product association.
// The value is persisted on consolidated records for audit.
type Method string

const (
	// MethodManual means a taught override matched the resolved lot.
	MethodManual Method = "manual"
	// MethodLot means the planning spreadsheet knew the resolved lot and its
	// product name matched the catalog.
	MethodLot Method = "lot-mapping"
	// MethodText means the product came from matching free text.
	MethodText Method = "free-text"
	// MethodUnresolved means no tier could identify the product.
	MethodUnresolved Method = "unresolved"
)

// Identification is the outcome of resolving one raw trial's identity.
type Identification struct {
	Lot     string
	Product string
	Variant string
	Method  Method
}

// Identified reports whether the record carries a usable product.
func (id Identification) Identified() bool { return id.Method != MethodUnresolved }

// Identifier runs the full identification cascade for raw trial rows.
type Identifier struct {
	resolver *LotResolver
	matcher  *Matcher
	snap     *reference.Snapshot

	// preferSampleText tries the free-text sample field before the legacy
	// machine code in the text tier.
	preferSampleText bool
}

// NewIdentifier wires the cascade over one reference snapshot.
func NewIdentifier(snap *reference.Snapshot, matcher *Matcher, preferSampleText bool) *Identifier {
	return &Identifier{
		resolver:         NewLotResolver(snap),
		matcher:          matcher,
		snap:             snap,
		preferSampleText: preferSampleText,
	}
}

// Identify resolves a raw trial identity from its lot reference, its
// free-text sample description, and its legacy machine code.  Tiers are
// tried strongest first: taught overrides, then the lot map, then free text.
// Operators sometimes type the lot into the sample field instead of the lot
// field, so a lot that fails to resolve from the lot reference is retried
// against the sample text.  A resolved lot is kept on the result even when
// the product tier that won did not use it.
func (i *Identifier) Identify(rawLot, sampleText, legacyCode string) Identification {
	lot, lotKnown := i.resolver.Resolve(rawLot)
	if !lotKnown {
		lot, lotKnown = i.resolver.Resolve(sampleText)
	}

	if lotKnown {
		if learned, ok := i.snap.Learned(lot); ok {
			return Identification{Lot: lot, Product: learned.Product, Method: MethodManual}
		}
		if entry, ok := i.snap.Lot(lot); ok {
			// The sheet's product column is itself free-hand text, so it goes
			// through the matcher before it is trusted.
			if product, ok := i.matcher.Match(entry.Product); ok {
				return Identification{Lot: lot, Product: product, Variant: entry.Variant, Method: MethodLot}
			}
		}
	}

	first, second := legacyCode, sampleText
	if i.preferSampleText {
		first, second = sampleText, legacyCode
	}
	for _, text := range []string{first, second} {
		if text == "" {
			continue
		}
		if product, ok := i.matcher.Match(text); ok {
			return Identification{Lot: lot, Product: product, Method: MethodText}
		}
	}

	return Identification{Lot: lot, Method: MethodUnresolved}
}
