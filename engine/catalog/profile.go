// Package catalog is the faceted filtering engine behind the marketplace
// screens. It derives facet options from a vehicle snapshot, evaluates the
// user's constraints in a single conjunctive pass, orders and paginates the
// result, and projects the active constraints as removable chips. All state
// transitions go through Reduce, so the engine can be driven from tests
// without any rendering layer.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/language"
)

// Dimension names a filterable attribute of a listing.
type Dimension string

const (
	DimCategory     Dimension = "category"
	DimBrand        Dimension = "brand"
	DimCondition    Dimension = "condition"
	DimFuel         Dimension = "fuelType"
	DimTransmission Dimension = "transmission"
	DimLocation     Dimension = "location"
	DimFeature      Dimension = "features"
	DimStatus       Dimension = "status"

	DimPrice   Dimension = "price"
	DimYear    Dimension = "year"
	DimMileage Dimension = "mileage"

	DimSearch   Dimension = "search"
	DimWarranty Dimension = "hasWarranty"
	DimFeatured Dimension = "isFeatured"
	DimRecency  Dimension = "recency"
)

// CategoricalDimensions lists the facet dimensions in display order.
var CategoricalDimensions = []Dimension{
	DimCategory, DimBrand, DimCondition, DimFuel, DimTransmission, DimLocation, DimFeature, DimStatus,
}

// RangeDimensions lists the numeric range dimensions in display order.
var RangeDimensions = []Dimension{DimPrice, DimYear, DimMileage}

// SelectMode says how a categorical dimension is constrained on a screen.
type SelectMode int

const (
	ModeOff SelectMode = iota
	ModeSingle
	ModeMulti
)

func (m SelectMode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	default:
		return "off"
	}
}

// ParseSelectMode parses "off", "single" or "multi".
func ParseSelectMode(s string) (SelectMode, error) {
	switch s {
	case "", "off":
		return ModeOff, nil
	case "single":
		return ModeSingle, nil
	case "multi":
		return ModeMulti, nil
	}
	return ModeOff, fmt.Errorf("catalog: unknown select mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m SelectMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// allowedModes restricts which modes a dimension supports. Category and status
// only exist as single-select; brand, location and features only as
// multi-select.
var allowedModes = map[Dimension][]SelectMode{
	DimCategory:     {ModeSingle},
	DimStatus:       {ModeSingle},
	DimBrand:        {ModeMulti},
	DimLocation:     {ModeMulti},
	DimFeature:      {ModeMulti},
	DimCondition:    {ModeSingle, ModeMulti},
	DimFuel:         {ModeSingle, ModeMulti},
	DimTransmission: {ModeSingle, ModeMulti},
}

// SearchField names a listing field free-text search looks at.
type SearchField string

const (
	FieldBrand       SearchField = "brand"
	FieldModel       SearchField = "model"
	FieldDescription SearchField = "description"
	FieldLocation    SearchField = "location"
	FieldCategory    SearchField = "category"
	FieldFeatures    SearchField = "features"
	FieldSeller      SearchField = "seller"
)

// DefaultSearchFields is the full searchable field order.
var DefaultSearchFields = []SearchField{
	FieldBrand, FieldModel, FieldDescription, FieldLocation, FieldCategory, FieldFeatures, FieldSeller,
}

// FacetSource says which records facet options are derived from.
type FacetSource string

const (
	// FacetsFull derives options from the whole store.
	FacetsFull FacetSource = "full"
	// FacetsFiltered derives each dimension's options from the records that
	// pass every other active constraint.
	FacetsFiltered FacetSource = "filtered"
)

// Profile configures the engine for one screen.
type Profile struct {
	Name            string
	Modes           map[Dimension]SelectMode
	SearchFields    []SearchField
	FacetSource     FacetSource
	PageSizes       []int
	DefaultPageSize int
	// Bounds are the absolute range limits used while the store is empty.
	// The zero value means DefaultBounds.
	Bounds Bounds
	// Collation orders facet values for display. language.Und keeps plain
	// lexicographic order.
	Collation language.Tag
}

// Mode returns how d is constrained on this screen.
func (p Profile) Mode(d Dimension) SelectMode {
	return p.Modes[d]
}

// Validate checks the profile for unsupported combinations.
func (p Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("profile name is empty"))
	}
	for d, m := range p.Modes {
		allowed, ok := allowedModes[d]
		if !ok {
			errs = append(errs, fmt.Errorf("dimension %q is not categorical", d))
			continue
		}
		if m != ModeOff && !slices.Contains(allowed, m) {
			errs = append(errs, fmt.Errorf("dimension %q does not support %s-select", d, m))
		}
	}
	for _, f := range p.SearchFields {
		if !slices.Contains(DefaultSearchFields, f) {
			errs = append(errs, fmt.Errorf("unknown search field %q", f))
		}
	}
	switch p.FacetSource {
	case "", FacetsFull, FacetsFiltered:
	default:
		errs = append(errs, fmt.Errorf("unknown facet source %q", p.FacetSource))
	}
	for _, n := range p.PageSizes {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("page size %d is not positive", n))
		}
	}
	if p.DefaultPageSize != 0 && len(p.PageSizes) > 0 && !slices.Contains(p.PageSizes, p.DefaultPageSize) {
		errs = append(errs, fmt.Errorf("default page size %d is not an allowed size", p.DefaultPageSize))
	}
	for _, d := range RangeDimensions {
		r := p.Bounds.For(d)
		if r == (Range{}) {
			continue
		}
		if r.Min < 0 || r.Min > r.Max || math.IsNaN(r.Min) || math.IsNaN(r.Max) {
			errs = append(errs, fmt.Errorf("%s bounds [%g, %g] need 0 <= min <= max", d, r.Min, r.Max))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("catalog: profile %q: %w", p.Name, err)
	}
	return nil
}

func (p Profile) pageSizes() []int {
	if len(p.PageSizes) == 0 {
		return DefaultPageSizes
	}
	return p.PageSizes
}

func (p Profile) defaultPageSize() int {
	if p.DefaultPageSize > 0 {
		return p.DefaultPageSize
	}
	return p.pageSizes()[0]
}

// CatalogProfile is the public catalog: multi-select everywhere it is allowed.
func CatalogProfile() Profile {
	return Profile{
		Name: "catalog",
		Modes: map[Dimension]SelectMode{
			DimCategory:     ModeSingle,
			DimBrand:        ModeMulti,
			DimCondition:    ModeMulti,
			DimFuel:         ModeMulti,
			DimTransmission: ModeMulti,
			DimLocation:     ModeMulti,
			DimFeature:      ModeMulti,
		},
		SearchFields:    []SearchField{FieldBrand, FieldModel, FieldDescription, FieldLocation, FieldCategory, FieldFeatures},
		FacetSource:     FacetsFull,
		PageSizes:       DefaultPageSizes,
		DefaultPageSize: 12,
	}
}

// VehicleListProfile is the compact vehicle list with single-select
// condition, fuel and transmission dropdowns.
func VehicleListProfile() Profile {
	return Profile{
		Name: "vehicles",
		Modes: map[Dimension]SelectMode{
			DimCategory:     ModeSingle,
			DimBrand:        ModeMulti,
			DimCondition:    ModeSingle,
			DimFuel:         ModeSingle,
			DimTransmission: ModeSingle,
		},
		SearchFields:    []SearchField{FieldBrand, FieldModel, FieldLocation},
		FacetSource:     FacetsFull,
		PageSizes:       DefaultPageSizes,
		DefaultPageSize: 12,
	}
}

// AdminProfile is the moderation panel: status filter and seller search.
func AdminProfile() Profile {
	return Profile{
		Name: "admin",
		Modes: map[Dimension]SelectMode{
			DimCategory:     ModeSingle,
			DimStatus:       ModeSingle,
			DimBrand:        ModeMulti,
			DimCondition:    ModeSingle,
			DimFuel:         ModeSingle,
			DimTransmission: ModeSingle,
		},
		SearchFields:    DefaultSearchFields,
		FacetSource:     FacetsFull,
		PageSizes:       []int{10, 25, 50, 100},
		DefaultPageSize: 25,
	}
}

// BuiltinProfiles returns the built-in screen profiles keyed by name.
func BuiltinProfiles() map[string]Profile {
	out := make(map[string]Profile, 3)
	for _, p := range []Profile{CatalogProfile(), VehicleListProfile(), AdminProfile()} {
		out[p.Name] = p
	}
	return out
}
