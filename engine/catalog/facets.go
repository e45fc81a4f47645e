package catalog

import (
	"slices"
	"strings"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FacetValue is one legal option of a dimension and how many records carry it.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets is a read-only snapshot of the options each dimension offers.
type Facets struct {
	Options map[Dimension][]FacetValue `json:"options"`
	Bounds  Bounds                     `json:"bounds"`
	Total   int                        `json:"total"`
}

// Values returns the option values for d in display order.
func (f Facets) Values(d Dimension) []string {
	opts := f.Options[d]
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

// FacetConfig controls facet derivation.
type FacetConfig struct {
	// Collation orders values by locale; language.Und sorts bytewise.
	Collation language.Tag
	// Fallback bounds apply to any range dimension no record carries.
	Fallback Bounds
}

// DeriveFacets collects the distinct values of every categorical dimension
// and the numeric domain of every range dimension. Missing values are
// skipped. The result depends only on records and cfg.
func DeriveFacets(records []domain.Vehicle, cfg FacetConfig) Facets {
	f := Facets{
		Options: make(map[Dimension][]FacetValue, len(CategoricalDimensions)),
		Bounds:  deriveBounds(records, cfg.Fallback),
		Total:   len(records),
	}
	for _, d := range CategoricalDimensions {
		f.Options[d] = deriveOptions(records, d, cfg.Collation)
	}
	return f
}

func deriveOptions(records []domain.Vehicle, d Dimension, tag language.Tag) []FacetValue {
	counts := make(map[string]int)
	for _, v := range records {
		for _, val := range fieldValues(v, d) {
			counts[val]++
		}
	}
	out := make([]FacetValue, 0, len(counts))
	for val, n := range counts {
		out = append(out, FacetValue{Value: val, Count: n})
	}
	sortFacetValues(out, tag)
	return out
}

func sortFacetValues(vals []FacetValue, tag language.Tag) {
	if tag == language.Und {
		slices.SortFunc(vals, func(a, b FacetValue) int { return strings.Compare(a.Value, b.Value) })
		return
	}
	c := collate.New(tag)
	slices.SortFunc(vals, func(a, b FacetValue) int {
		if r := c.CompareString(a.Value, b.Value); r != 0 {
			return r
		}
		return strings.Compare(a.Value, b.Value)
	})
}

// fieldValues returns the non-empty values a record carries for a
// categorical dimension.
func fieldValues(v domain.Vehicle, d Dimension) []string {
	var s string
	switch d {
	case DimFeature:
		return v.Features
	case DimCategory:
		s = v.Category
	case DimBrand:
		s = v.Brand
	case DimCondition:
		s = v.Condition
	case DimFuel:
		s = v.FuelType
	case DimTransmission:
		s = v.Transmission
	case DimLocation:
		s = v.Location
	case DimStatus:
		s = string(v.Status)
	}
	if s == "" {
		return nil
	}
	return []string{s}
}

func deriveBounds(records []domain.Vehicle, fallback Bounds) Bounds {
	b := fallback
	var sawPrice, sawYear, sawMiles bool
	for _, v := range records {
		sawPrice = widen(&b.Price, v.Price, sawPrice)
		sawYear = widen(&b.Year, float64(v.Year), sawYear)
		if v.Mileage != nil {
			sawMiles = widen(&b.Mileage, *v.Mileage, sawMiles)
		}
	}
	return b
}

// widen grows r to include v, resetting r to [v, v] on the first value.
func widen(r *Range, v float64, seen bool) bool {
	if !seen {
		*r = Range{Min: v, Max: v}
		return true
	}
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	return true
}
