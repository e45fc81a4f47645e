package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
	"github.com/WessleyAI/wessley-marketplace/pkg/metrics"
)

// Engine owns one screen's state and derives facets, results and chips from
// it. It is not safe for concurrent use; callers serialize access.
type Engine struct {
	profile Profile
	log     *slog.Logger
	now     func() time.Time
	met     *engineMetrics

	store  *Store
	facets Facets
	state  State
	// queryRev changes whenever the filter or sort does.
	queryRev uint64

	status Status
	err    error

	memo        resultMemo
	facetMemo   facetMemo
	evaluations int

	results fn.Stage[evaluation, []domain.Vehicle]
	paging  fn.Stage[pageRequest, Page]
}

type evaluation struct {
	records []domain.Vehicle
	state   State
	bounds  Bounds
	now     time.Time
}

type pageRequest struct {
	records []domain.Vehicle
	page    int
	size    int
}

type memoKey struct {
	store uint64
	rev   uint64
	at    time.Time
}

type resultMemo struct {
	key   memoKey
	valid bool
	items []domain.Vehicle
}

type facetMemo struct {
	key    memoKey
	valid  bool
	facets Facets
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the time source used for recency windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics records evaluation counters and timings into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.met = newEngineMetrics(reg, e.profile.Name)
		}
	}
}

// WithStore starts the engine with a loaded snapshot instead of in the
// loading state.
func WithStore(s *Store) Option {
	return func(e *Engine) { e.store = s }
}

// New creates an engine for profile p.
func New(p Profile, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		profile: p,
		log:     slog.Default(),
		now:     time.Now,
		status:  StatusLoading,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("screen", p.Name)
	e.buildPipeline()

	e.facets = e.deriveFacets(nil)
	e.state = InitialState(p, e.facets.Bounds)
	if e.store != nil {
		s := e.store
		e.store = nil
		e.SetStore(s)
	}
	return e, nil
}

func (e *Engine) buildPipeline() {
	filter := fn.TracedStage("catalog.filter", func(_ context.Context, ev evaluation) fn.Result[evaluation] {
		e.evaluations++
		if e.met != nil {
			e.met.evaluations.Inc()
		}
		ev.records = Filter(ev.records, ev.state.Filter, e.profile, ev.bounds, ev.now)
		return fn.Ok(ev)
	}, func(ev evaluation) int { return len(ev.records) })

	order := fn.TracedStage("catalog.sort", fn.MapStage(func(ev evaluation) []domain.Vehicle {
		return Sort(ev.records, ev.state.Sort)
	}), func(out []domain.Vehicle) int { return len(out) })

	e.results = fn.Then(filter, order)
	e.paging = fn.TracedStage("catalog.paginate", fn.MapStage(func(r pageRequest) Page {
		return Paginate(r.records, r.page, r.size)
	}), func(p Page) int { return len(p.Items) })
}

func (e *Engine) deriveFacets(records []domain.Vehicle) Facets {
	fallback, def := e.profile.Bounds, DefaultBounds(e.now())
	for _, d := range RangeDimensions {
		if r := fallback.ptr(d); *r == (Range{}) {
			*r = def.For(d)
		}
	}
	return DeriveFacets(records, FacetConfig{Collation: e.profile.Collation, Fallback: fallback})
}

func (e *Engine) env() Env { return Env{Profile: e.profile, Bounds: e.facets.Bounds} }

// Profile returns the screen profile.
func (e *Engine) Profile() Profile { return e.profile }

// State returns a copy of the current state.
func (e *Engine) State() State {
	s := e.state
	s.Filter = s.Filter.Clone()
	return s
}

// Store returns the current snapshot, or nil before the first load.
func (e *Engine) Store() *Store { return e.store }

// Bounds returns the current range domains.
func (e *Engine) Bounds() Bounds { return e.facets.Bounds }

// Status returns the load status; StatusReady is refined to StatusEmpty by
// View when nothing matches.
func (e *Engine) Status() Status { return e.status }

// Err returns the last load error, if any.
func (e *Engine) Err() error { return e.err }

// Evaluations is the number of filter passes run so far.
func (e *Engine) Evaluations() int { return e.evaluations }

// Loading marks a fetch as in flight. The previous snapshot stays visible.
func (e *Engine) Loading() {
	e.status = StatusLoading
	e.err = nil
}

// Fail records a failed load.
func (e *Engine) Fail(err error) {
	e.status = StatusError
	e.err = err
	if e.met != nil {
		e.met.loadFailures.Inc()
	}
	e.log.Error("catalog: load failed", "err", err)
}

// SetStore swaps in a new snapshot. Facets and domain bounds are recomputed;
// ranges left at the old domain move to the new one and customised ranges
// are clamped into it.
func (e *Engine) SetStore(s *Store) {
	if s == nil {
		s = EmptyStore()
	}
	if e.store != nil && e.store.ID() == s.ID() {
		e.status, e.err = StatusReady, nil
		return
	}
	old := e.facets.Bounds
	e.store = s
	e.facets = e.deriveFacets(s.Records())

	f := &e.state.Filter
	for _, d := range RangeDimensions {
		r := f.rangeFor(d)
		if *r == old.For(d) {
			*r = e.facets.Bounds.For(d)
		} else {
			*r = r.Clamp(e.facets.Bounds.For(d))
		}
	}
	e.queryRev++
	e.status, e.err = StatusReady, nil
	if e.met != nil {
		e.met.storeRecords.Set(int64(s.Len()))
	}
	e.log.Debug("catalog: store swapped", "store", s.ID(), "records", s.Len())
}

// Dispatch applies a to the state and reports whether anything changed.
func (e *Engine) Dispatch(a Action) bool {
	next := Reduce(e.state, a, e.env())
	queryChanged := !next.Filter.Equal(e.state.Filter) || next.Sort != e.state.Sort
	changed := queryChanged || next.Page != e.state.Page || next.PageSize != e.state.PageSize
	if !changed {
		return false
	}
	if queryChanged {
		e.queryRev++
	}
	e.state = next
	if e.met != nil {
		e.met.dispatches.Inc()
	}
	return true
}

// Setters. Each is Dispatch with the matching action.
func (e *Engine) SetSearch(term string)          { e.Dispatch(SetSearch(term)) }
func (e *Engine) SetCategory(v string)           { e.Dispatch(Select(DimCategory, v)) }
func (e *Engine) SetCondition(v string)          { e.Dispatch(Select(DimCondition, v)) }
func (e *Engine) SetFuel(v string)               { e.Dispatch(Select(DimFuel, v)) }
func (e *Engine) SetTransmission(v string)       { e.Dispatch(Select(DimTransmission, v)) }
func (e *Engine) SetStatus(v string)             { e.Dispatch(Select(DimStatus, v)) }
func (e *Engine) ToggleBrand(v string)           { e.Dispatch(Toggle(DimBrand, v)) }
func (e *Engine) ToggleLocation(v string)        { e.Dispatch(Toggle(DimLocation, v)) }
func (e *Engine) ToggleFeature(v string)         { e.Dispatch(Toggle(DimFeature, v)) }
func (e *Engine) ToggleCondition(v string)       { e.Dispatch(Toggle(DimCondition, v)) }
func (e *Engine) ToggleFuel(v string)            { e.Dispatch(Toggle(DimFuel, v)) }
func (e *Engine) ToggleTransmission(v string)    { e.Dispatch(Toggle(DimTransmission, v)) }
func (e *Engine) SetPriceRange(lo, hi float64)   { e.Dispatch(SetRange(DimPrice, lo, hi)) }
func (e *Engine) SetYearRange(lo, hi float64)    { e.Dispatch(SetRange(DimYear, lo, hi)) }
func (e *Engine) SetMileageRange(lo, hi float64) { e.Dispatch(SetRange(DimMileage, lo, hi)) }
func (e *Engine) SetHasWarranty(on bool)         { e.Dispatch(SetFlag(DimWarranty, on)) }
func (e *Engine) SetFeatured(on bool)            { e.Dispatch(SetFlag(DimFeatured, on)) }
func (e *Engine) SetRecency(r Recency)           { e.Dispatch(SetRecency(r)) }
func (e *Engine) SetSort(s SortSpec)             { e.Dispatch(SetSort(s)) }
func (e *Engine) SetItemsPerPage(n int)          { e.Dispatch(SetPageSize(n)) }
func (e *Engine) SetPage(n int)                  { e.Dispatch(GoToPage(n)) }
func (e *Engine) ClearAll()                      { e.Dispatch(ClearAll()) }

func (e *Engine) records() []domain.Vehicle {
	if e.store == nil {
		return nil
	}
	return e.store.Records()
}

func (e *Engine) storeID() uint64 {
	if e.store == nil {
		return 0
	}
	return e.store.ID()
}

// key identifies the inputs of the current query. Recency windows depend on
// the evaluation time, so with one active the key includes the minute.
func (e *Engine) key() (memoKey, time.Time) {
	now := e.now()
	k := memoKey{store: e.storeID(), rev: e.queryRev}
	if e.state.Filter.Recency.Window() > 0 {
		k.at = now.Truncate(time.Minute)
	}
	return k, now
}

// Facets returns the options for each dimension. With FacetsFiltered each
// dimension's options come from the records matching every other active
// constraint; domain bounds always come from the whole store.
func (e *Engine) Facets() Facets {
	if e.profile.FacetSource != FacetsFiltered {
		return e.facets
	}
	k, now := e.key()
	if e.facetMemo.valid && e.facetMemo.key == k {
		return e.facetMemo.facets
	}
	records := e.records()
	out := Facets{
		Options: make(map[Dimension][]FacetValue, len(CategoricalDimensions)),
		Bounds:  e.facets.Bounds,
		Total:   e.facets.Total,
	}
	for _, d := range CategoricalDimensions {
		crit := compile(e.state.Filter, e.profile, e.facets.Bounds, now, d)
		out.Options[d] = deriveOptions(crit.Apply(records), d, e.profile.Collation)
	}
	e.facetMemo = facetMemo{key: k, valid: true, facets: out}
	return out
}

// Results returns every matching listing in display order.
func (e *Engine) Results(ctx context.Context) []domain.Vehicle {
	k, now := e.key()
	if e.memo.valid && e.memo.key == k {
		return e.memo.items
	}
	start := time.Now()
	items := e.results(ctx, evaluation{
		records: e.records(),
		state:   e.state,
		bounds:  e.facets.Bounds,
		now:     now,
	}).UnwrapOr(nil)
	if e.met != nil {
		e.met.evalSeconds.Since(start)
	}
	e.memo = resultMemo{key: k, valid: true, items: items}
	return items
}

// Page returns the current page. The stored page number is clamped to the
// result so it never points past the last page.
func (e *Engine) Page(ctx context.Context) Page {
	items := e.Results(ctx)
	p := e.paging(ctx, pageRequest{records: items, page: e.state.Page, size: e.state.PageSize}).UnwrapOr(Page{})
	e.state.Page = p.CurrentPage
	return p
}

// Chips returns the active constraints as removable chips.
func (e *Engine) Chips() []Chip {
	return ProjectChips(e.state.Filter, e.profile, e.facets.Bounds)
}

// RemoveChip applies the remove action of the chip with key. It reports
// false when no such chip is active.
func (e *Engine) RemoveChip(key string) bool {
	for _, c := range e.Chips() {
		if c.Key == key {
			e.Dispatch(c.Remove)
			return true
		}
	}
	return false
}

// View evaluates the screen.
func (e *Engine) View(ctx context.Context) View {
	page := e.Page(ctx)
	v := View{
		Screen:     e.profile.Name,
		Status:     e.status,
		State:      e.State(),
		SortParam:  e.state.Sort.Param(),
		Facets:     e.Facets(),
		Items:      page.Items,
		Pagination: page.Pagination,
		Chips:      e.Chips(),
	}
	if v.Items == nil {
		v.Items = []domain.Vehicle{}
	}
	if v.Chips == nil {
		v.Chips = []Chip{}
	}
	if e.err != nil {
		v.Error = e.err.Error()
	}
	if v.Status == StatusReady && page.TotalItems == 0 {
		v.Status = StatusEmpty
	}
	return v
}

type engineMetrics struct {
	evaluations  *metrics.Counter
	dispatches   *metrics.Counter
	loadFailures *metrics.Counter
	storeRecords *metrics.Gauge
	evalSeconds  *metrics.Histogram
}

func newEngineMetrics(reg *metrics.Registry, screen string) *engineMetrics {
	return &engineMetrics{
		evaluations:  reg.Counter(metrics.WithLabels("catalog_evaluations_total", "screen", screen), "Filter passes run"),
		dispatches:   reg.Counter(metrics.WithLabels("catalog_dispatches_total", "screen", screen), "State changes applied"),
		loadFailures: reg.Counter(metrics.WithLabels("catalog_load_failures_total", "screen", screen), "Snapshot loads that failed"),
		storeRecords: reg.Gauge(metrics.WithLabels("catalog_store_records", "screen", screen), "Listings in the current snapshot"),
		evalSeconds:  reg.Histogram(metrics.WithLabels("catalog_evaluation_seconds", "screen", screen), "Filter and sort latency", nil),
	}
}
