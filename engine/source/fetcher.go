package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
	"github.com/WessleyAI/wessley-marketplace/pkg/metrics"
	"github.com/WessleyAI/wessley-marketplace/pkg/resilience"
)

var (
	// ErrStale is returned by a fetch that was superseded by a newer one
	// before it completed. Its result has been discarded.
	ErrStale = errors.New("source: superseded by a newer fetch")
	// ErrNoQuery is returned by Retry before any fetch has been issued.
	ErrNoQuery = errors.New("source: no previous fetch to retry")
)

// Fetcher turns Loader results into catalog stores. Only the most recent
// fetch may deliver: starting a fetch cancels the one in flight, and a
// response that arrives after a newer fetch began is dropped.
type Fetcher struct {
	load    fn.Stage[Query, []domain.RawVehicle]
	breaker *resilience.Breaker
	log     *slog.Logger
	now     func() time.Time
	met     *fetchMetrics

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	last   *Query
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) FetcherOption {
	return func(f *Fetcher) { f.breaker = b }
}

// WithFetchLogger sets the logger used for loads and dropped records.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = l }
}

// WithFetchClock sets the clock used to validate model years.
func WithFetchClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// WithFetchMetrics registers fetch counters on reg.
func WithFetchMetrics(reg *metrics.Registry) FetcherOption {
	return func(f *Fetcher) { f.met = newFetchMetrics(reg) }
}

// NewFetcher creates a fetcher over l.
func NewFetcher(l Loader, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(f)
	}
	if f.breaker == nil {
		f.breaker = resilience.NewBreaker(resilience.BreakerOpts{
			OnStateChange: func(from, to resilience.State) {
				f.log.Warn("source: breaker state changed", "from", from, "to", to)
			},
		})
	}
	raw := func(ctx context.Context, q Query) fn.Result[[]domain.RawVehicle] {
		return fn.FromPair(l.Load(ctx, q))
	}
	f.load = fn.TracedStage("source.load",
		resilience.BreakerStage(f.breaker, raw),
		func(vs []domain.RawVehicle) int { return len(vs) })
	return f
}

// Breaker exposes the fetcher's circuit breaker.
func (f *Fetcher) Breaker() *resilience.Breaker { return f.breaker }

// begin supersedes any fetch in flight and returns the new generation.
func (f *Fetcher) begin(ctx context.Context, q Query) (context.Context, uint64, context.CancelFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	f.gen++
	f.cancel = cancel
	f.last = &q
	return ctx, f.gen, cancel
}

func (f *Fetcher) current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen == gen
}

// Fetch loads q and builds a store from it. Malformed records are dropped
// and reported, not treated as a failure.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (*catalog.Store, catalog.LoadReport, error) {
	st, rep, _, err := f.fetch(ctx, q)
	return st, rep, err
}

func (f *Fetcher) fetch(ctx context.Context, q Query) (*catalog.Store, catalog.LoadReport, uint64, error) {
	ctx, gen, cancel := f.begin(ctx, q)
	defer cancel()

	start := time.Now()
	raws, err := f.load(ctx, q).Unwrap()
	if f.met != nil {
		f.met.fetches.Inc()
		f.met.latency.Since(start)
	}
	if !f.current(gen) {
		if f.met != nil {
			f.met.stale.Inc()
		}
		return nil, catalog.LoadReport{}, gen, ErrStale
	}
	if err != nil {
		if f.met != nil {
			f.met.failures.Inc()
		}
		return nil, catalog.LoadReport{}, gen, fmt.Errorf("source: fetch: %w", err)
	}

	store, rep := catalog.LoadRaw(raws, f.now(), f.log)
	if f.met != nil {
		f.met.dropped.Add(int64(rep.DroppedCount()))
	}
	f.log.Info("source: fetched listings", "loaded", rep.Loaded, "dropped", rep.DroppedCount())
	return store, rep, gen, nil
}

// LastQuery returns the query of the most recent fetch.
func (f *Fetcher) LastQuery() (Query, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return Query{}, false
	}
	return *f.last, true
}

// Retry re-issues the most recent query.
func (f *Fetcher) Retry(ctx context.Context) (*catalog.Store, catalog.LoadReport, error) {
	q, ok := f.LastQuery()
	if !ok {
		return nil, catalog.LoadReport{}, ErrNoQuery
	}
	return f.Fetch(ctx, q)
}

// Sync fetches q into the session's engine: the engine shows loading while
// the fetch runs, then the new store or the error. A superseded fetch leaves
// the engine to the newer one and returns ErrStale.
func (f *Fetcher) Sync(ctx context.Context, s *catalog.Session, q Query) error {
	s.Update(func(e *catalog.Engine) { e.Loading() })
	store, _, gen, err := f.fetch(ctx, q)
	if errors.Is(err, ErrStale) {
		return err
	}
	stale := false
	s.Update(func(e *catalog.Engine) {
		if !f.current(gen) {
			stale = true
			return
		}
		if err != nil {
			e.Fail(err)
			return
		}
		e.SetStore(store)
	})
	if stale {
		return ErrStale
	}
	return err
}

// RetrySync re-issues the most recent query into s.
func (f *Fetcher) RetrySync(ctx context.Context, s *catalog.Session) error {
	q, ok := f.LastQuery()
	if !ok {
		return ErrNoQuery
	}
	return f.Sync(ctx, s, q)
}

type fetchMetrics struct {
	fetches  *metrics.Counter
	failures *metrics.Counter
	stale    *metrics.Counter
	dropped  *metrics.Counter
	latency  *metrics.Histogram
}

func newFetchMetrics(reg *metrics.Registry) *fetchMetrics {
	return &fetchMetrics{
		fetches:  reg.Counter("source_fetches_total", "Listing fetches completed"),
		failures: reg.Counter("source_fetch_failures_total", "Listing fetches that failed"),
		stale:    reg.Counter("source_stale_responses_total", "Responses discarded because a newer fetch began"),
		dropped:  reg.Counter("source_dropped_records_total", "Fetched records dropped as malformed"),
		latency:  reg.Histogram("source_fetch_seconds", "Listing fetch latency", nil),
	}
}
