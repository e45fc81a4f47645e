package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
)

// SortParam is the URL key the sort selection is synchronised to.
const SortParam = "sort"

// SortFromQuery reads the sort selection from a URL query.
func SortFromQuery(q url.Values) SortSpec { return ParseSortParam(q.Get(SortParam)) }

// WithSortParam returns a copy of q with the sort selection written in. The
// default sort removes the key.
func WithSortParam(q url.Values, s SortSpec) url.Values {
	out := make(url.Values, len(q)+1)
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	if p := s.Param(); p != "" {
		out.Set(SortParam, p)
	} else {
		out.Del(SortParam)
	}
	return out
}

var queryDimensions = []struct {
	key string
	dim Dimension
}{
	{"category", DimCategory},
	{"brand", DimBrand},
	{"condition", DimCondition},
	{"fuelType", DimFuel},
	{"transmission", DimTransmission},
	{"location", DimLocation},
	{"feature", DimFeature},
	{"status", DimStatus},
}

var queryRanges = []struct {
	min, max string
	dim      Dimension
}{
	{"minPrice", "maxPrice", DimPrice},
	{"minYear", "maxYear", DimYear},
	{"minMileage", "maxMileage", DimMileage},
}

// ActionsFromQuery translates URL query parameters into actions for p, in
// the order they must be applied: filters, then sort and page size, then
// the page. Repeated keys select several values of a multi-select
// dimension; a single-select dimension takes the last value. Unparseable
// numbers are ignored.
func ActionsFromQuery(q url.Values, p Profile) []Action {
	var acts []Action
	if s := firstOf(q, "q", "search"); s != "" {
		acts = append(acts, SetSearch(s))
	}
	for _, qd := range queryDimensions {
		vals := splitValues(q[qd.key])
		if len(vals) == 0 {
			continue
		}
		switch p.Mode(qd.dim) {
		case ModeSingle:
			acts = append(acts, Select(qd.dim, vals[len(vals)-1]))
		case ModeMulti:
			vals = fn.Filter(fn.Unique(vals), func(v string) bool { return !strings.EqualFold(v, All) })
			for _, v := range vals {
				acts = append(acts, Toggle(qd.dim, v))
			}
		}
	}
	for _, qr := range queryRanges {
		lo, okLo := parseFloat(q.Get(qr.min))
		hi, okHi := parseFloat(q.Get(qr.max))
		if okLo || okHi {
			acts = append(acts, SetRange(qr.dim, lo, hi))
		}
	}
	if parseBool(q.Get("hasWarranty")) {
		acts = append(acts, SetFlag(DimWarranty, true))
	}
	if parseBool(firstOf(q, "featured", "isFeatured")) {
		acts = append(acts, SetFlag(DimFeatured, true))
	}
	if r := q.Get("recency"); r != "" {
		acts = append(acts, SetRecency(ParseRecency(r)))
	}
	if q.Has(SortParam) {
		acts = append(acts, SetSort(SortFromQuery(q)))
	}
	if n, err := strconv.Atoi(firstOf(q, "pageSize", "itemsPerPage")); err == nil {
		acts = append(acts, SetPageSize(n))
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		acts = append(acts, GoToPage(n))
	}
	return acts
}

// ApplyQuery dispatches the actions a URL query describes. Toggles flip
// membership, so it is meant for an engine still in its initial state.
func (e *Engine) ApplyQuery(q url.Values) {
	for _, a := range ActionsFromQuery(q, e.profile) {
		e.Dispatch(a)
	}
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// splitValues flattens repeated and comma-separated values.
func splitValues(raw []string) []string {
	var parts []string
	for _, r := range raw {
		parts = append(parts, strings.Split(r, ",")...)
	}
	return fn.FilterMap(parts, func(v string) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	})
}

// parseFloat returns NaN and false for blank or malformed input, which
// SetRange treats as "keep the domain bound".
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
