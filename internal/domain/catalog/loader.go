package catalog

import (
	"encoding/json"
	"os"

	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// specsFile is the on-disk shape of the product spec file: the catalog and
// the per-product profiles in one document.
type specsFile struct {
	Products []struct {
		Code     int64     `json:"code"`
		Name     string    `json:"name"`
		Kind     Kind      `json:"kind"`
		Profiles []Profile `json:"profiles"`
	} `json:"products"`
}

// LoadSpecsFile reads the product spec file and returns the catalog and the
// validated profile map it defines.
func LoadSpecsFile(path string) (*Catalog, map[string][]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "reading product spec file").
			WithDetail(path)
	}
	var file specsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "parsing product spec file").
			WithDetail(path)
	}
	if len(file.Products) == 0 {
		return nil, nil, errors.New(errors.ErrCodeCatalogEmpty, "product spec file defines no products").
			WithDetail(path)
	}

	products := make([]Product, 0, len(file.Products))
	profiles := make(map[string][]Profile, len(file.Products))
	for i, p := range file.Products {
		kind := p.Kind
		if kind == "" {
			kind = KindMass
		}
		products = append(products, Product{ID: int64(i + 1), Code: p.Code, Name: p.Name, Kind: kind})
		if len(p.Profiles) > 0 {
			profiles[NormalizeName(p.Name)] = p.Profiles
		}
	}

	// Validate eagerly so a broken spec file fails at load, not mid-run.
	if _, err := NewSpecSet(profiles); err != nil {
		return nil, nil, err
	}
	return NewCatalog(products), profiles, nil
}
