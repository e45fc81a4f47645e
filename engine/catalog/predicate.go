package catalog

import (
	"slices"
	"strings"
	"time"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"golang.org/x/text/cases"
)

type predicate func(domain.Vehicle) bool

// Criteria is a FilterState compiled against a profile, a domain and an
// evaluation time. A record matches iff it passes every active constraint.
type Criteria struct {
	preds []predicate
}

// Compile builds the active constraints of f. Dimensions the profile does not
// enable are ignored, as are ranges equal to their domain default.
func Compile(f FilterState, p Profile, b Bounds, now time.Time) Criteria {
	return compile(f, p, b, now, "")
}

// compile skips the constraint on dimension skip, which filtered facets use
// to derive a dimension's options from everything else.
func compile(f FilterState, p Profile, b Bounds, now time.Time, skip Dimension) Criteria {
	var c Criteria
	add := func(d Dimension, pr predicate) {
		if d != skip {
			c.preds = append(c.preds, pr)
		}
	}

	for _, d := range CategoricalDimensions {
		switch p.Mode(d) {
		case ModeSingle:
			want := *f.single(d)
			if want == "" || want == All {
				continue
			}
			add(d, func(v domain.Vehicle) bool {
				vals := fieldValues(v, d)
				return len(vals) == 1 && vals[0] == want
			})
		case ModeMulti:
			set := *f.multi(d)
			if len(set) == 0 {
				continue
			}
			members := make(map[string]bool, len(set))
			for _, s := range set {
				members[s] = true
			}
			add(d, func(v domain.Vehicle) bool {
				for _, val := range fieldValues(v, d) {
					if members[val] {
						return true
					}
				}
				return false
			})
		}
	}

	if f.Price != b.Price {
		r := f.Price
		add(DimPrice, func(v domain.Vehicle) bool { return r.Contains(v.Price) })
	}
	if f.Year != b.Year {
		r := f.Year
		add(DimYear, func(v domain.Vehicle) bool { return r.Contains(float64(v.Year)) })
	}
	if f.Mileage != b.Mileage {
		r := f.Mileage
		add(DimMileage, func(v domain.Vehicle) bool { return v.Mileage != nil && r.Contains(*v.Mileage) })
	}

	if f.HasWarranty {
		add(DimWarranty, func(v domain.Vehicle) bool { return v.HasWarranty })
	}
	if f.Featured {
		add(DimFeatured, func(v domain.Vehicle) bool { return v.Featured })
	}

	if w := f.Recency.Window(); w > 0 {
		cutoff := now.Add(-w)
		add(DimRecency, func(v domain.Vehicle) bool {
			return v.HasCreatedAt() && !v.CreatedAt.Before(cutoff)
		})
	}

	if term := strings.TrimSpace(f.Search); term != "" && len(p.SearchFields) > 0 {
		fold := cases.Fold()
		needle := fold.String(term)
		fields := slices.Clone(p.SearchFields)
		add(DimSearch, func(v domain.Vehicle) bool {
			for _, field := range fields {
				for _, hay := range searchValues(v, field) {
					if strings.Contains(fold.String(hay), needle) {
						return true
					}
				}
			}
			return false
		})
	}
	return c
}

// Active reports how many constraints are in effect.
func (c Criteria) Active() int { return len(c.preds) }

// Match reports whether v passes every active constraint.
func (c Criteria) Match(v domain.Vehicle) bool {
	for _, pr := range c.preds {
		if !pr(v) {
			return false
		}
	}
	return true
}

// Apply returns the matching records in input order.
func (c Criteria) Apply(records []domain.Vehicle) []domain.Vehicle {
	out := make([]domain.Vehicle, 0, len(records))
	for _, v := range records {
		if c.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// Filter returns the records that satisfy f in a single pass, preserving
// input order. f.Search is the debounced search term.
func Filter(records []domain.Vehicle, f FilterState, p Profile, b Bounds, now time.Time) []domain.Vehicle {
	return Compile(f, p, b, now).Apply(records)
}

// searchValues returns the text of a searchable field; missing fields yield
// nothing and are skipped.
func searchValues(v domain.Vehicle, f SearchField) []string {
	var s string
	switch f {
	case FieldFeatures:
		return v.Features
	case FieldBrand:
		s = v.Brand
	case FieldModel:
		s = v.Model
	case FieldDescription:
		s = v.Description
	case FieldLocation:
		s = v.Location
	case FieldCategory:
		s = v.Category
	case FieldSeller:
		s = v.SellerName
	}
	if s == "" {
		return nil
	}
	return []string{s}
}
