package catalog

import (
	"slices"
	"strings"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
)

// ActionKind names a state transition.
type ActionKind string

const (
	ActSetSearch   ActionKind = "setSearch"
	ActSelect      ActionKind = "select"
	ActToggle      ActionKind = "toggle"
	ActSetRange    ActionKind = "setRange"
	ActResetRange  ActionKind = "resetRange"
	ActSetFlag     ActionKind = "setFlag"
	ActSetRecency  ActionKind = "setRecency"
	ActSetSort     ActionKind = "setSort"
	ActSetPageSize ActionKind = "setPageSize"
	ActSetPage     ActionKind = "setPage"
	ActClearAll    ActionKind = "clearAll"
)

// Action is a serializable state transition. Chips carry the Action that
// removes them.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Dimension Dimension  `json:"dimension,omitempty"`
	Value     string     `json:"value,omitempty"`
	Range     *Range     `json:"range,omitempty"`
	Flag      bool       `json:"flag,omitempty"`
	Sort      *SortSpec  `json:"sort,omitempty"`
	N         int        `json:"n,omitempty"`
}

// SetSearch commits a debounced search term.
func SetSearch(term string) Action { return Action{Kind: ActSetSearch, Value: term} }

// Select sets a single-select dimension; All clears it.
func Select(d Dimension, value string) Action {
	return Action{Kind: ActSelect, Dimension: d, Value: value}
}

// Toggle adds value to a multi-select dimension, or removes it if present.
func Toggle(d Dimension, value string) Action {
	return Action{Kind: ActToggle, Dimension: d, Value: value}
}

// SetRange sets a range dimension to [lo, hi], clamped into its domain.
func SetRange(d Dimension, lo, hi float64) Action {
	return Action{Kind: ActSetRange, Dimension: d, Range: &Range{Min: lo, Max: hi}}
}

// ResetRange restores a range dimension to its full domain.
func ResetRange(d Dimension) Action { return Action{Kind: ActResetRange, Dimension: d} }

// SetFlag sets a boolean constraint (hasWarranty or isFeatured).
func SetFlag(d Dimension, on bool) Action { return Action{Kind: ActSetFlag, Dimension: d, Flag: on} }

// SetRecency sets the recency window.
func SetRecency(r Recency) Action { return Action{Kind: ActSetRecency, Value: string(r)} }

// SetSort sets the sort specification.
func SetSort(s SortSpec) Action { return Action{Kind: ActSetSort, Sort: &s} }

// SetPageSize sets items per page, snapped to the allowed sizes.
func SetPageSize(n int) Action { return Action{Kind: ActSetPageSize, N: n} }

// GoToPage navigates without touching any other state.
func GoToPage(n int) Action { return Action{Kind: ActSetPage, N: n} }

// ClearAll resets every filter dimension to its default.
func ClearAll() Action { return Action{Kind: ActClearAll} }

// Env is what Reduce needs besides the state: the screen profile and the
// current domain bounds.
type Env struct {
	Profile Profile
	Bounds  Bounds
}

// Reduce applies a to s and returns the new state; s is not modified.
// Any change to the filter, sort or page size resets the page to 1. Values
// outside their domain are clamped or defaulted; actions the profile does not
// support leave the state unchanged. The page is only clamped from below
// here; the engine clamps it from above once the result size is known.
func Reduce(s State, a Action, env Env) State {
	next := s
	next.Filter = s.Filter.Clone()
	f := &next.Filter

	switch a.Kind {
	case ActSetSearch:
		f.Search = strings.TrimSpace(a.Value)

	case ActSelect:
		if env.Profile.Mode(a.Dimension) != ModeSingle {
			return s
		}
		*f.single(a.Dimension) = selectValue(a.Dimension, a.Value)

	case ActToggle:
		v := strings.TrimSpace(a.Value)
		if env.Profile.Mode(a.Dimension) != ModeMulti || v == "" {
			return s
		}
		set := f.multi(a.Dimension)
		*set = toggle(*set, v)

	case ActSetRange:
		r := f.rangeFor(a.Dimension)
		if r == nil || a.Range == nil {
			return s
		}
		*r = a.Range.Clamp(env.Bounds.For(a.Dimension))

	case ActResetRange:
		r := f.rangeFor(a.Dimension)
		if r == nil {
			return s
		}
		*r = env.Bounds.For(a.Dimension)

	case ActSetFlag:
		b := f.flag(a.Dimension)
		if b == nil {
			return s
		}
		*b = a.Flag

	case ActSetRecency:
		f.Recency = ParseRecency(a.Value)

	case ActSetSort:
		if a.Sort == nil {
			return s
		}
		next.Sort = a.Sort.Normalize()

	case ActSetPageSize:
		next.PageSize = ClampPageSize(a.N, env.Profile.pageSizes())

	case ActSetPage:
		next.Page = max(1, a.N)
		return next

	case ActClearAll:
		*f = DefaultFilterState(env.Bounds)

	default:
		return s
	}

	if !f.Equal(s.Filter) || next.Sort != s.Sort || next.PageSize != s.PageSize {
		next.Page = 1
	}
	return next
}

// selectValue normalizes a single-select value: blank or "all" (any case)
// means All, and an unknown moderation status falls back to All.
func selectValue(d Dimension, v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, All) {
		return All
	}
	if d == DimStatus {
		st, err := domain.ParseStatus(v)
		if err != nil {
			return All
		}
		return string(st)
	}
	return v
}

// toggle returns set with v removed if present, else appended. An emptied set
// becomes nil.
func toggle(set []string, v string) []string {
	if i := slices.Index(set, v); i >= 0 {
		out := slices.Delete(slices.Clone(set), i, i+1)
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return append(slices.Clone(set), v)
}
