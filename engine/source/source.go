// Package source fetches listing snapshots for the catalog engine from
// remote backends: a paged HTTP API, a Neo4j listing graph, and a NATS
// snapshot feed.
package source

import (
	"context"
	"math"
	"net/url"
	"slices"
	"strconv"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/domain"
)

// Loader loads the raw listings matching q. Implementations return records
// as the backend holds them; normalization happens when the catalog store is
// built.
type Loader interface {
	Load(ctx context.Context, q Query) ([]domain.RawVehicle, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, q Query) ([]domain.RawVehicle, error)

func (f LoaderFunc) Load(ctx context.Context, q Query) ([]domain.RawVehicle, error) {
	return f(ctx, q)
}

// Query is the server-side subset of a filter state. Nil bounds and empty
// sets are unconstrained. Page is 1-based; zero means the first page.
type Query struct {
	Category      string   `json:"category,omitempty"`
	MinPrice      *float64 `json:"minPrice,omitempty"`
	MaxPrice      *float64 `json:"maxPrice,omitempty"`
	MinYear       *int     `json:"minYear,omitempty"`
	MaxYear       *int     `json:"maxYear,omitempty"`
	Brands        []string `json:"brands,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Fuels         []string `json:"fuelTypes,omitempty"`
	Transmissions []string `json:"transmissions,omitempty"`
	Random        bool     `json:"random,omitempty"`
	Page          int      `json:"page,omitempty"`
}

// WithPage returns a copy of q addressing page n.
func (q Query) WithPage(n int) Query {
	q.Page = n
	return q
}

// Values encodes q as URL query parameters. Set-valued fields repeat their
// key once per value.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.MinYear != nil {
		v.Set("minYear", strconv.Itoa(*q.MinYear))
	}
	if q.MaxYear != nil {
		v.Set("maxYear", strconv.Itoa(*q.MaxYear))
	}
	for _, b := range q.Brands {
		v.Add("brand", b)
	}
	for _, c := range q.Conditions {
		v.Add("condition", c)
	}
	for _, f := range q.Fuels {
		v.Add("fuelType", f)
	}
	for _, t := range q.Transmissions {
		v.Add("transmission", t)
	}
	if q.Random {
		v.Set("random", "true")
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// Equal reports whether q and o request the same listings.
func (q Query) Equal(o Query) bool {
	return q.Category == o.Category &&
		eqPtr(q.MinPrice, o.MinPrice) && eqPtr(q.MaxPrice, o.MaxPrice) &&
		eqPtr(q.MinYear, o.MinYear) && eqPtr(q.MaxYear, o.MaxYear) &&
		slices.Equal(q.Brands, o.Brands) &&
		slices.Equal(q.Conditions, o.Conditions) &&
		slices.Equal(q.Fuels, o.Fuels) &&
		slices.Equal(q.Transmissions, o.Transmissions) &&
		q.Random == o.Random && q.Page == o.Page
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// QueryFromState projects the server-filterable part of s. Ranges are sent
// only on the sides narrowed from the domain bounds b, and each categorical
// dimension sends either its single selection or its multi-select set.
func QueryFromState(s catalog.State, b catalog.Bounds) Query {
	f := s.Filter
	q := Query{
		Brands:        slices.Clone(f.Brands),
		Conditions:    pick(f.Condition, f.Conditions),
		Fuels:         pick(f.Fuel, f.Fuels),
		Transmissions: pick(f.Transmission, f.Transmissions),
	}
	if f.Category != catalog.All {
		q.Category = f.Category
	}
	if f.Price.Min > b.Price.Min {
		q.MinPrice = &f.Price.Min
	}
	if f.Price.Max < b.Price.Max {
		q.MaxPrice = &f.Price.Max
	}
	if f.Year.Min > b.Year.Min {
		y := int(math.Ceil(f.Year.Min))
		q.MinYear = &y
	}
	if f.Year.Max < b.Year.Max {
		y := int(math.Floor(f.Year.Max))
		q.MaxYear = &y
	}
	return q
}

func pick(single string, multi []string) []string {
	if single != "" && single != catalog.All {
		return []string{single}
	}
	return slices.Clone(multi)
}
