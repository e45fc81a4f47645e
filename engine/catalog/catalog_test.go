package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func listing(id, brand, model string, price float64, year int, mods ...func(*domain.Vehicle)) domain.Vehicle {
	v := domain.Vehicle{ID: id, Brand: brand, Model: model, Price: price, Year: year}
	for _, m := range mods {
		m(&v)
	}
	return v
}

func ids(vs []domain.Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

// lot is a small mixed inventory used across the package tests.
func lot() []domain.Vehicle {
	return []domain.Vehicle{
		listing("v1", "Toyota", "Camry", 24000, 2021, func(v *domain.Vehicle) {
			v.Category, v.Condition, v.FuelType, v.Transmission = "sedan", "used", "gasoline", "automatic"
			v.Location, v.Mileage = "Austin", domain.Float64(32000)
			v.Features = []string{"bluetooth", "backup camera"}
			v.HasWarranty, v.CreatedAt = true, testNow.Add(-2*time.Hour)
			v.Description, v.SellerName, v.Status = "One owner, clean title", "Lone Star Motors", domain.StatusApproved
		}),
		listing("v2", "Ford", "F-150", 38000, 2023, func(v *domain.Vehicle) {
			v.Category, v.Condition, v.FuelType, v.Transmission = "truck", "new", "gasoline", "automatic"
			v.Location, v.Mileage = "Dallas", domain.Float64(1200)
			v.Features = []string{"tow package"}
			v.Featured, v.CreatedAt = true, testNow.Add(-5*24*time.Hour)
			v.SellerName, v.Status = "Big D Trucks", domain.StatusPending
		}),
		listing("v3", "Tesla", "Model 3", 41000, 2022, func(v *domain.Vehicle) {
			v.Category, v.Condition, v.FuelType, v.Transmission = "sedan", "used", "electric", "automatic"
			v.Location = "Austin"
			v.Features = []string{"autopilot", "bluetooth"}
			v.CreatedAt = testNow.Add(-20 * 24 * time.Hour)
			v.Status = domain.StatusApproved
		}),
		listing("v4", "Honda", "Civic", 9000, 2012, func(v *domain.Vehicle) {
			v.Category, v.Condition, v.FuelType, v.Transmission = "sedan", "used", "gasoline", "manual"
			v.Location, v.Mileage = "Houston", domain.Float64(142000)
			v.Status = domain.StatusSold
		}),
		listing("v5", "toyota", "4Runner", 36000, 2019, func(v *domain.Vehicle) {
			v.Category, v.Condition, v.FuelType = "suv", "used", "hybrid"
			v.Location, v.Mileage = "Dallas", domain.Float64(58000)
			v.HasWarranty = true
			v.Description = "Lifted, new tires"
		}),
	}
}

func lotStore(t *testing.T) *Store {
	t.Helper()
	s, rep := NewStore(lot(), testNow, quietLogger())
	require.Zero(t, rep.DroppedCount())
	return s
}

func newTestEngine(t *testing.T, p Profile, s *Store) *Engine {
	t.Helper()
	e, err := New(p, WithStore(s), WithClock(func() time.Time { return testNow }), WithLogger(quietLogger()))
	require.NoError(t, err)
	return e
}

func TestPriceRangeSortAndPageScenario(t *testing.T) {
	var records []domain.Vehicle
	for i, price := range []float64{1000, 2000, 3000, 4000, 5000} {
		records = append(records, listing(string(rune('a'+i)), "Toyota", "Corolla", price, 2020))
	}
	store, _ := NewStore(records, testNow, quietLogger())

	p := CatalogProfile()
	p.PageSizes = []int{1, 12}
	e := newTestEngine(t, p, store)
	ctx := context.Background()

	e.SetPriceRange(1500, 3500)
	assert.Equal(t, []string{"b", "c"}, ids(e.Results(ctx)))

	e.SetSort(SortSpec{Key: SortPrice, Order: Desc})
	assert.Equal(t, []string{"c", "b"}, ids(e.Results(ctx)))

	e.SetItemsPerPage(1)
	page := e.Page(ctx)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 3000.0, page.Items[0].Price)
}

func TestEngineStartsLoading(t *testing.T) {
	e, err := New(CatalogProfile(), WithLogger(quietLogger()))
	require.NoError(t, err)

	v := e.View(context.Background())
	assert.Equal(t, StatusLoading, v.Status)
	assert.Empty(t, v.Items)
	assert.Equal(t, 1, v.Pagination.TotalPages)
	assert.Equal(t, 1, v.Pagination.CurrentPage)
	assert.Equal(t, DefaultBounds(time.Now()).Price, e.Bounds().Price)
}

func TestEngineRejectsInvalidProfile(t *testing.T) {
	p := CatalogProfile()
	p.Modes[DimCategory] = ModeMulti
	_, err := New(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")

	inverted := CatalogProfile()
	inverted.Bounds.Price = Range{Min: 50000, Max: 100}
	_, err = New(inverted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price bounds")
}

func TestEngineStatusTransitions(t *testing.T) {
	e := newTestEngine(t, CatalogProfile(), lotStore(t))
	ctx := context.Background()
	assert.Equal(t, StatusReady, e.View(ctx).Status)

	e.ToggleBrand("Lada")
	v := e.View(ctx)
	assert.Equal(t, StatusEmpty, v.Status)
	assert.Equal(t, 1, v.Pagination.TotalPages)

	e.Loading()
	assert.Equal(t, StatusLoading, e.View(ctx).Status)

	e.Fail(assert.AnError)
	v = e.View(ctx)
	assert.Equal(t, StatusError, v.Status)
	assert.Equal(t, assert.AnError.Error(), v.Error)

	e.SetStore(lotStore(t))
	assert.Equal(t, StatusEmpty, e.View(ctx).Status)
	e.ClearAll()
	assert.Equal(t, StatusReady, e.View(ctx).Status)
}

func TestEngineResultsAreMemoized(t *testing.T) {
	e := newTestEngine(t, CatalogProfile(), lotStore(t))
	ctx := context.Background()

	e.Results(ctx)
	e.Results(ctx)
	e.Page(ctx)
	assert.Equal(t, 1, e.Evaluations())

	e.SetPage(1)
	e.Results(ctx)
	assert.Equal(t, 1, e.Evaluations(), "page navigation does not refilter")

	e.ToggleBrand("Ford")
	e.Results(ctx)
	assert.Equal(t, 2, e.Evaluations())

	e.ToggleBrand("Ford")
	e.ToggleBrand("Ford")
	e.Results(ctx)
	assert.Equal(t, 3, e.Evaluations())

	e.SetStore(lotStore(t))
	e.Results(ctx)
	assert.Equal(t, 4, e.Evaluations())
}

func TestEnginePageClampedAfterNarrowing(t *testing.T) {
	p := CatalogProfile()
	p.PageSizes = []int{2}
	p.DefaultPageSize = 2
	e := newTestEngine(t, p, lotStore(t))
	ctx := context.Background()

	e.SetPage(3)
	assert.Equal(t, 3, e.Page(ctx).CurrentPage)

	e.SetPage(40)
	page := e.Page(ctx)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)

	e.ToggleBrand("Ford")
	assert.Equal(t, 1, e.State().Page)
	page = e.Page(ctx)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"v2"}, ids(page.Items))
}

func TestSetStoreRemapsRanges(t *testing.T) {
	e := newTestEngine(t, CatalogProfile(), lotStore(t))
	assert.Equal(t, Range{Min: 9000, Max: 41000}, e.State().Filter.Price)

	e.SetYearRange(2015, 2030)
	assert.Equal(t, Range{Min: 2015, Max: 2023}, e.State().Filter.Year)

	cheaper, _ := NewStore([]domain.Vehicle{
		listing("n1", "Kia", "Rio", 5000, 2018),
		listing("n2", "Kia", "Soul", 12000, 2020),
	}, testNow, quietLogger())
	e.SetStore(cheaper)

	f := e.State().Filter
	assert.Equal(t, Range{Min: 5000, Max: 12000}, f.Price, "default range follows the domain")
	assert.Equal(t, Range{Min: 2018, Max: 2020}, f.Year, "custom range is clamped")
	assert.Equal(t, DefaultBounds(testNow).Mileage, f.Mileage, "no mileage in store keeps absolute bounds")
}

func TestFilteredFacetsExcludeOwnDimension(t *testing.T) {
	p := CatalogProfile()
	p.FacetSource = FacetsFiltered
	e := newTestEngine(t, p, lotStore(t))

	e.ToggleBrand("Ford")
	e.ToggleCondition("used")

	f := e.Facets()
	assert.ElementsMatch(t, []string{"Honda", "Tesla", "Toyota", "toyota"}, f.Values(DimBrand))
	assert.Equal(t, []string{"new"}, f.Values(DimCondition))
	assert.Empty(t, f.Values(DimCategory))
	assert.Equal(t, e.Bounds(), f.Bounds)

	full := newTestEngine(t, CatalogProfile(), lotStore(t))
	full.ToggleBrand("Ford")
	assert.Len(t, full.Facets().Values(DimBrand), 5)
}

func TestRemoveChipAppliesInverse(t *testing.T) {
	e := newTestEngine(t, CatalogProfile(), lotStore(t))
	e.ToggleBrand("Toyota")
	e.ToggleBrand("Ford")
	e.SetCategory("sedan")

	require.True(t, e.RemoveChip("brand:Toyota"))
	assert.Equal(t, []string{"Ford"}, e.State().Filter.Brands)
	assert.Equal(t, "sedan", e.State().Filter.Category)
	assert.False(t, e.RemoveChip("brand:Toyota"))
}

func TestViewCarriesSortParam(t *testing.T) {
	e := newTestEngine(t, CatalogProfile(), lotStore(t))
	e.SetSort(SortSpec{Key: SortYear, Order: Desc})
	v := e.View(context.Background())
	assert.Equal(t, "year-desc", v.SortParam)
	assert.Equal(t, []string{"v2", "v3", "v1", "v5", "v4"}, ids(v.Items))
	assert.NotNil(t, v.Chips)
}
