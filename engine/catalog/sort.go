package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"golang.org/x/text/cases"
)

// SortKey selects the ordering of results.
type SortKey string

const (
	SortRelevance    SortKey = "relevance"
	SortPrice        SortKey = "price"
	SortYear         SortKey = "year"
	SortMileage      SortKey = "mileage"
	SortCreatedAt    SortKey = "createdAt"
	SortAlphabetical SortKey = "alphabetical"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// SortSpec pairs a key with an order. Relevance keeps input order.
type SortSpec struct {
	Key   SortKey   `json:"key"`
	Order SortOrder `json:"order"`
}

// DefaultSort keeps input order.
var DefaultSort = SortSpec{Key: SortRelevance, Order: Asc}

var validSortKeys = map[SortKey]bool{
	SortRelevance: true, SortPrice: true, SortYear: true,
	SortMileage: true, SortCreatedAt: true, SortAlphabetical: true,
}

// Normalize replaces an unknown key with relevance and an unknown order with
// ascending.
func (s SortSpec) Normalize() SortSpec {
	if !validSortKeys[s.Key] {
		s.Key = SortRelevance
	}
	if s.Order != Desc {
		s.Order = Asc
	}
	if s.Key == SortRelevance {
		s.Order = Asc
	}
	return s
}

// Sort returns a stably ordered copy of records. Listings missing the sort
// field go last in either order.
func Sort(records []domain.Vehicle, spec SortSpec) []domain.Vehicle {
	spec = spec.Normalize()
	out := slices.Clone(records)
	if spec.Key == SortRelevance {
		return out
	}
	compare := comparator(spec.Key)
	desc := spec.Order == Desc
	slices.SortStableFunc(out, func(a, b domain.Vehicle) int {
		r, missing := compare(a, b)
		if desc && !missing {
			r = -r
		}
		return r
	})
	return out
}

// comparator returns a compare function for key. missing is true when the
// result was decided by one side lacking the field, which must not be
// negated for descending order.
func comparator(key SortKey) func(a, b domain.Vehicle) (r int, missing bool) {
	switch key {
	case SortPrice:
		return func(a, b domain.Vehicle) (int, bool) { return cmp.Compare(a.Price, b.Price), false }
	case SortYear:
		return func(a, b domain.Vehicle) (int, bool) { return cmp.Compare(a.Year, b.Year), false }
	case SortMileage:
		return func(a, b domain.Vehicle) (int, bool) {
			if r, decided := compareMissing(a.Mileage == nil, b.Mileage == nil); decided {
				return r, true
			}
			return cmp.Compare(*a.Mileage, *b.Mileage), false
		}
	case SortCreatedAt:
		return func(a, b domain.Vehicle) (int, bool) {
			if r, decided := compareMissing(!a.HasCreatedAt(), !b.HasCreatedAt()); decided {
				return r, true
			}
			return a.CreatedAt.Compare(b.CreatedAt), false
		}
	case SortAlphabetical:
		fold := cases.Fold()
		return func(a, b domain.Vehicle) (int, bool) {
			return strings.Compare(fold.String(a.Title()), fold.String(b.Title())), false
		}
	}
	return func(domain.Vehicle, domain.Vehicle) (int, bool) { return 0, false }
}

// compareMissing orders absent values after present ones. decided is false
// when both are present.
func compareMissing(aMissing, bMissing bool) (r int, decided bool) {
	switch {
	case aMissing && bMissing:
		return 0, true
	case aMissing:
		return 1, true
	case bMissing:
		return -1, true
	}
	return 0, false
}

// sortAliases maps legacy URL values to sort specs.
var sortAliases = map[string]SortSpec{
	"newest":      {Key: SortCreatedAt, Order: Desc},
	"oldest":      {Key: SortCreatedAt, Order: Asc},
	"price-low":   {Key: SortPrice, Order: Asc},
	"price-high":  {Key: SortPrice, Order: Desc},
	"year-new":    {Key: SortYear, Order: Desc},
	"year-old":    {Key: SortYear, Order: Asc},
	"mileage-low": {Key: SortMileage, Order: Asc},
	"a-z":         {Key: SortAlphabetical, Order: Asc},
	"z-a":         {Key: SortAlphabetical, Order: Desc},
}

// ParseSortParam parses the "sort" URL value, written as "<key>-<order>"
// (e.g. "price-desc") or one of the legacy aliases. Anything unrecognised
// falls back to DefaultSort.
func ParseSortParam(s string) SortSpec {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort
	}
	if spec, ok := sortAliases[strings.ToLower(s)]; ok {
		return spec
	}
	key, order, _ := strings.Cut(s, "-")
	for k := range validSortKeys {
		if strings.EqualFold(string(k), key) {
			return SortSpec{Key: k, Order: SortOrder(strings.ToLower(order))}.Normalize()
		}
	}
	return DefaultSort
}

// Param renders the spec for the "sort" URL value. DefaultSort renders as
// the empty string so it can be omitted from the URL.
func (s SortSpec) Param() string {
	s = s.Normalize()
	if s == DefaultSort {
		return ""
	}
	return string(s.Key) + "-" + string(s.Order)
}
