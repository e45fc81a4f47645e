package catalog

import (
	"math"
	"slices"
	"strings"
	"time"
)

// All is the single-select sentinel meaning "no constraint".
const All = "all"

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Clamp orders the bounds and clamps each into domain. NaN bounds take the
// domain's corresponding bound.
func (r Range) Clamp(domain Range) Range {
	lo, hi := r.Min, r.Max
	if math.IsNaN(lo) {
		lo = domain.Min
	}
	if math.IsNaN(hi) {
		hi = domain.Max
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Min: clampFloat(lo, domain.Min, domain.Max), Max: clampFloat(hi, domain.Min, domain.Max)}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Bounds are the domain limits of the range dimensions.
type Bounds struct {
	Price   Range `json:"price"`
	Year    Range `json:"year"`
	Mileage Range `json:"mileage"`
}

// For returns the domain of a range dimension.
func (b Bounds) For(d Dimension) Range {
	switch d {
	case DimPrice:
		return b.Price
	case DimYear:
		return b.Year
	case DimMileage:
		return b.Mileage
	}
	return Range{}
}

func (b *Bounds) ptr(d Dimension) *Range {
	switch d {
	case DimPrice:
		return &b.Price
	case DimYear:
		return &b.Year
	}
	return &b.Mileage
}

// DefaultBounds are the absolute limits used before any data is loaded.
func DefaultBounds(now time.Time) Bounds {
	return Bounds{
		Price:   Range{Min: 0, Max: 10_000_000},
		Year:    Range{Min: 1900, Max: float64(now.Year() + 1)},
		Mileage: Range{Min: 0, Max: 1_000_000},
	}
}

// Recency limits results to listings created within a window of the
// evaluation time.
type Recency string

const (
	RecencyAll Recency = "all"
	Recency24h Recency = "24h"
	Recency7d  Recency = "7d"
	Recency30d Recency = "30d"
)

// ParseRecency parses a recency window; unknown values mean RecencyAll.
func ParseRecency(s string) Recency {
	switch r := Recency(strings.ToLower(strings.TrimSpace(s))); r {
	case Recency24h, Recency7d, Recency30d:
		return r
	}
	return RecencyAll
}

// Window returns the window length, or 0 for RecencyAll.
func (r Recency) Window() time.Duration {
	switch r {
	case Recency24h:
		return 24 * time.Hour
	case Recency7d:
		return 7 * 24 * time.Hour
	case Recency30d:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Label is the human-readable window name.
func (r Recency) Label() string {
	switch r {
	case Recency24h:
		return "Last 24 hours"
	case Recency7d:
		return "Last 7 days"
	case Recency30d:
		return "Last 30 days"
	}
	return "Any time"
}

// FilterState holds the user's constraints. Single-select fields hold a value
// or All; multi-select fields are ordered sets (selection order) where nil
// means no constraint. Search holds the debounced term only.
type FilterState struct {
	Search string `json:"search,omitempty"`

	Category     string `json:"category"`
	Condition    string `json:"condition"`
	Fuel         string `json:"fuelType"`
	Transmission string `json:"transmission"`
	Status       string `json:"status"`

	Brands        []string `json:"brands,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	Features      []string `json:"features,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Fuels         []string `json:"fuelTypes,omitempty"`
	Transmissions []string `json:"transmissions,omitempty"`

	Price   Range `json:"price"`
	Year    Range `json:"year"`
	Mileage Range `json:"mileage"`

	HasWarranty bool    `json:"hasWarranty"`
	Featured    bool    `json:"isFeatured"`
	Recency     Recency `json:"recency"`
}

// DefaultFilterState is the unconstrained state for the given domain.
func DefaultFilterState(b Bounds) FilterState {
	return FilterState{
		Category:     All,
		Condition:    All,
		Fuel:         All,
		Transmission: All,
		Status:       All,
		Price:        b.Price,
		Year:         b.Year,
		Mileage:      b.Mileage,
		Recency:      RecencyAll,
	}
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	f.Brands = slices.Clone(f.Brands)
	f.Locations = slices.Clone(f.Locations)
	f.Features = slices.Clone(f.Features)
	f.Conditions = slices.Clone(f.Conditions)
	f.Fuels = slices.Clone(f.Fuels)
	f.Transmissions = slices.Clone(f.Transmissions)
	return f
}

// Equal reports whether f and g describe the same constraints.
func (f FilterState) Equal(g FilterState) bool {
	return f.Search == g.Search &&
		f.Category == g.Category &&
		f.Condition == g.Condition &&
		f.Fuel == g.Fuel &&
		f.Transmission == g.Transmission &&
		f.Status == g.Status &&
		slices.Equal(f.Brands, g.Brands) &&
		slices.Equal(f.Locations, g.Locations) &&
		slices.Equal(f.Features, g.Features) &&
		slices.Equal(f.Conditions, g.Conditions) &&
		slices.Equal(f.Fuels, g.Fuels) &&
		slices.Equal(f.Transmissions, g.Transmissions) &&
		f.Price == g.Price &&
		f.Year == g.Year &&
		f.Mileage == g.Mileage &&
		f.HasWarranty == g.HasWarranty &&
		f.Featured == g.Featured &&
		f.Recency == g.Recency
}

// single returns the single-select field for d, or nil.
func (f *FilterState) single(d Dimension) *string {
	switch d {
	case DimCategory:
		return &f.Category
	case DimCondition:
		return &f.Condition
	case DimFuel:
		return &f.Fuel
	case DimTransmission:
		return &f.Transmission
	case DimStatus:
		return &f.Status
	}
	return nil
}

// multi returns the multi-select set for d, or nil.
func (f *FilterState) multi(d Dimension) *[]string {
	switch d {
	case DimBrand:
		return &f.Brands
	case DimLocation:
		return &f.Locations
	case DimFeature:
		return &f.Features
	case DimCondition:
		return &f.Conditions
	case DimFuel:
		return &f.Fuels
	case DimTransmission:
		return &f.Transmissions
	}
	return nil
}

// rangeFor returns the range field for d, or nil.
func (f *FilterState) rangeFor(d Dimension) *Range {
	switch d {
	case DimPrice:
		return &f.Price
	case DimYear:
		return &f.Year
	case DimMileage:
		return &f.Mileage
	}
	return nil
}

// flag returns the boolean field for d, or nil.
func (f *FilterState) flag(d Dimension) *bool {
	switch d {
	case DimWarranty:
		return &f.HasWarranty
	case DimFeatured:
		return &f.Featured
	}
	return nil
}

// State is everything the engine's derived outputs depend on besides the
// record store.
type State struct {
	Filter   FilterState `json:"filter"`
	Sort     SortSpec    `json:"sort"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// InitialState is the starting state for a profile and domain.
func InitialState(p Profile, b Bounds) State {
	return State{
		Filter:   DefaultFilterState(b),
		Sort:     DefaultSort,
		Page:     1,
		PageSize: p.defaultPageSize(),
	}
}
