package catalog

import (
	"fmt"

	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// ProfileKey names a test context a product can carry specifications for.
// High-temperature trials are rheometry and may be split per equipment
// variant; low-temperature trials are viscometry.
type ProfileKey string

const (
	// ProfileHighTempA is rheometry on equipment variant A.
	ProfileHighTempA ProfileKey = "HIGH_TEMP_A"
	// ProfileHighTempB is rheometry on equipment variant B.
	ProfileHighTempB ProfileKey = "HIGH_TEMP_B"
	// ProfileHighTemp is rheometry with no variant distinction.
	ProfileHighTemp ProfileKey = "HIGH_TEMP"
	// ProfileLowTemp is viscometry.
	ProfileLowTemp ProfileKey = "LOW_TEMP"
)

// ParamSpec is the acceptance window of a single measured parameter.
// A weight of zero excludes the parameter from the weighted average even
// when a measurement is present.
type ParamSpec struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Target float64 `json:"target"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Validate checks the internal consistency of a single parameter spec.
func (s ParamSpec) Validate() error {
	if s.Name == "" {
		return errors.New(errors.ErrCodeSpecInvalid, "parameter spec has no name")
	}
	if s.Weight < 0 {
		return errors.New(errors.ErrCodeSpecInvalid, "parameter weight is negative").
			WithDetail(fmt.Sprintf("%s: %v", s.Name, s.Weight))
	}
	if s.Min > s.Max {
		return errors.New(errors.ErrCodeSpecInvalid, "parameter min exceeds max").
			WithDetail(fmt.Sprintf("%s: [%v, %v]", s.Name, s.Min, s.Max))
	}
	if s.Target < s.Min || s.Target > s.Max {
		return errors.New(errors.ErrCodeSpecInvalid, "parameter target is outside [min, max]").
			WithDetail(fmt.Sprintf("%s: target %v, window [%v, %v]", s.Name, s.Target, s.Min, s.Max))
	}
	return nil
}

// Profile is the full parameter specification of one product under one test
// context.  RefTemp and RefDuration are the nominal test conditions and are
// informational only.
type Profile struct {
	Key         ProfileKey  `json:"key"`
	RefTemp     float64     `json:"ref_temp,omitempty"`
	RefDuration float64     `json:"ref_duration,omitempty"`
	Params      []ParamSpec `json:"params"`
}

// Validate checks every parameter of the profile and requires at least one
// positively weighted parameter.
func (p Profile) Validate() error {
	if len(p.Params) == 0 {
		return errors.New(errors.ErrCodeSpecInvalid, "profile has no parameters").WithDetail(string(p.Key))
	}
	weighted := false
	for _, s := range p.Params {
		if err := s.Validate(); err != nil {
			return err
		}
		if s.Weight > 0 {
			weighted = true
		}
	}
	if !weighted {
		return errors.New(errors.ErrCodeSpecInvalid, "profile has no positively weighted parameter").
			WithDetail(string(p.Key))
	}
	return nil
}

// SpecSet maps product names (normalized) to their per-context profiles.
type SpecSet struct {
	profiles map[string]map[ProfileKey]Profile
}

// NewSpecSet validates and indexes the given profiles.  The outer map key is
// the product name as it appears in the spec file; it is normalized on load.
func NewSpecSet(byProduct map[string][]Profile) (*SpecSet, error) {
	set := &SpecSet{profiles: make(map[string]map[ProfileKey]Profile, len(byProduct))}
	for product, profiles := range byProduct {
		name := NormalizeName(product)
		ctx := make(map[ProfileKey]Profile, len(profiles))
		for _, prof := range profiles {
			if err := prof.Validate(); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSpecInvalid,
					fmt.Sprintf("invalid spec for product %q", name))
			}
			ctx[prof.Key] = prof
		}
		set.profiles[name] = ctx
	}
	return set, nil
}

// Lookup returns the profile of the product under the given context.  When
// the exact variant profile is missing, the variant-less high-temperature
// profile is tried before giving up.
func (s *SpecSet) Lookup(product string, key ProfileKey) (Profile, error) {
	ctx, ok := s.profiles[NormalizeName(product)]
	if !ok {
		return Profile{}, errors.New(errors.ErrCodeProfileUndefined, "no specs defined for product").
			WithDetail(product)
	}
	if prof, ok := ctx[key]; ok {
		return prof, nil
	}
	if key == ProfileHighTempA || key == ProfileHighTempB {
		if prof, ok := ctx[ProfileHighTemp]; ok {
			return prof, nil
		}
	}
	return Profile{}, errors.New(errors.ErrCodeProfileUndefined, "no profile for test context").
		WithDetail(fmt.Sprintf("%s/%s", product, key))
}

// Profiles returns every profile configured for a product, keyed by context.
// The second return is false when the product carries no specs at all.
func (s *SpecSet) Profiles(product string) (map[ProfileKey]Profile, bool) {
	ctx, ok := s.profiles[NormalizeName(product)]
	return ctx, ok
}

// Products returns the normalized names of every product carrying specs.
func (s *SpecSet) Products() []string {
	out := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		out = append(out, name)
	}
	return out
}
