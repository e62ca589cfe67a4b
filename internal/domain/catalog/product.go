// Package catalog holds the product master data: the products the laboratory
// tests, the temperature profiles those tests run under, and the per-product
// parameter specifications that scoring is evaluated against.
package catalog

import (
	"strconv"
	"strings"

	"github.com/leohfurlan/reometro-score/pkg/errors"
)

// Kind classifies a product by what it is on the factory floor.
type Kind string

const (
	// KindMass is a rubber compound ("MASSA ..."), the primary subject of
	// rheometer and viscometer testing.
	KindMass Kind = "MASS"
	// KindRawMaterial is an input material tested for incoming quality.
	KindRawMaterial Kind = "RAW_MATERIAL"
	// KindDissolution is a dissolution/solution product tested on the
	// viscometer only.
	KindDissolution Kind = "DISSOLUTION"
)

// Product is one entry of the product master list.  Code is the integer
// catalog code; Name is the display name lab entries are matched against.
type Product struct {
	ID   int64 `json:"id"`
	Code int64 `json:"code"`
	Name string `json:"name"`
	Kind Kind  `json:"kind"`
}

// NormalizeName upper-cases and trims a product name so that lookups and
// comparisons are insensitive to the casing and padding found in raw lab
// entries.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// HasMassPrefix reports whether the normalized name carries the compound
// prefix.
func HasMassPrefix(name string) bool {
	return strings.HasPrefix(NormalizeName(name), "MASSA ")
}

// Catalog is an in-memory index over the product master list.  It is built
// once per pipeline run and read concurrently afterwards.
type Catalog struct {
	products []Product
	byCode   map[int64]*Product
	byName   map[string]*Product
}

// NewCatalog indexes the given products by code and by normalized name.
// Later duplicates win, matching the load order of the master list.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		products: products,
		byCode:   make(map[int64]*Product, len(products)),
		byName:   make(map[string]*Product, len(products)),
	}
	for i := range c.products {
		p := &c.products[i]
		if p.Code != 0 {
			c.byCode[p.Code] = p
		}
		c.byName[NormalizeName(p.Name)] = p
	}
	return c
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int { return len(c.products) }

// All returns the underlying product slice.  Callers must not modify it.
func (c *Catalog) All() []Product { return c.products }

// ByCode looks a product up by its catalog code.
func (c *Catalog) ByCode(code int64) (*Product, error) {
	if p, ok := c.byCode[code]; ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeProductNotFound, "product code not found").
		WithDetail(strconv.FormatInt(code, 10))
}

// ByName looks a product up by normalized name.
func (c *Catalog) ByName(name string) (*Product, error) {
	if p, ok := c.byName[NormalizeName(name)]; ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeProductNotFound, "product name not found").WithDetail(name)
}

// Names returns every normalized product name, in catalog order.  The matcher
// uses this as its candidate universe.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.products))
	for i := range c.products {
		names = append(names, NormalizeName(c.products[i].Name))
	}
	return names
}
