// Package metrics is a small Prometheus-compatible registry for the catalog
// services. Series are identified by a name with optional labels baked in
// (see WithLabels) and rendered in the text exposition format.
package metrics

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are latency buckets in seconds, tuned for in-process
// filtering and remote page fetches.
var DefaultBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.val.Store(n) }
func (g *Gauge) Inc()         { g.val.Add(1) }
func (g *Gauge) Dec()         { g.val.Add(-1) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram counts observations into fixed upper-bound buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64 // per bucket, not cumulative
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *Histogram {
	b := slices.Clone(buckets)
	slices.Sort(b)
	return &Histogram{buckets: b, counts: make([]uint64, len(b))}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	if i, _ := slices.BinarySearch(h.buckets, v); i < len(h.buckets) {
		h.counts[i]++
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

// Count is the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) snapshot() (buckets []float64, cumulative []uint64, sum float64, count uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cumulative = make([]uint64, len(h.counts))
	var run uint64
	for i, c := range h.counts {
		run += c
		cumulative[i] = run
	}
	return h.buckets, cumulative, h.sum, h.count
}

const (
	typeCounter   = "counter"
	typeGauge     = "gauge"
	typeHistogram = "histogram"
)

// family is every labelled series sharing a base name.
type family struct {
	typ    string
	help   string
	series map[string]any // label set ("" or `k="v",...`) -> metric
}

// Registry holds named metrics. The zero value is not usable; call New.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	order    []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// lookup returns the series for name, creating it with mk. Registering the
// same base name under two types is a programming error and panics.
func lookup[M any](r *Registry, name, typ, help string, mk func() *M) *M {
	base, labels := splitName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[base]
	if !ok {
		f = &family{typ: typ, series: make(map[string]any)}
		r.families[base] = f
		r.order = append(r.order, base)
	}
	if f.typ != typ {
		panic(fmt.Sprintf("metrics: %s is a %s, not a %s", base, f.typ, typ))
	}
	if f.help == "" {
		f.help = help
	}
	if m, ok := f.series[labels]; ok {
		return m.(*M)
	}
	m := mk()
	f.series[labels] = m
	return m
}

// Counter returns the counter called name, creating it on first use.
func (r *Registry) Counter(name, help string) *Counter {
	return lookup(r, name, typeCounter, help, func() *Counter { return &Counter{} })
}

// Gauge returns the gauge called name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	return lookup(r, name, typeGauge, help, func() *Gauge { return &Gauge{} })
}

// Histogram returns the histogram called name, creating it on first use.
// Nil buckets means DefaultBuckets. Buckets are fixed at creation.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return lookup(r, name, typeHistogram, help, func() *Histogram { return newHistogram(buckets) })
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// WithLabels appends label pairs to a metric name:
// WithLabels("fetches_total", "screen", "admin") is `fetches_total{screen="admin"}`.
// An odd number of kvs returns name unchanged.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	pairs := make([]string, 0, len(kvs)/2)
	for i := 0; i < len(kvs); i += 2 {
		pairs = append(pairs, kvs[i]+`="`+labelEscaper.Replace(kvs[i+1])+`"`)
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func splitName(name string) (base, labels string) {
	i := strings.IndexByte(name, '{')
	if i == -1 || !strings.HasSuffix(name, "}") {
		return name, ""
	}
	return name[:i], name[i+1 : len(name)-1]
}

func braced(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// Render writes every family in registration order, series sorted by label.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, base := range r.order {
		f := r.families[base]
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, f.typ)
		for _, labels := range slices.Sorted(maps.Keys(f.series)) {
			switch m := f.series[labels].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s%s %d\n", base, braced(labels), m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s%s %d\n", base, braced(labels), m.Value())
			case *Histogram:
				writeHistogram(&b, base, labels, m)
			}
		}
	}
	return b.String()
}

func writeHistogram(b *strings.Builder, base, labels string, h *Histogram) {
	buckets, cumulative, sum, count := h.snapshot()
	extra := ""
	if labels != "" {
		extra = "," + labels
	}
	for i, le := range buckets {
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", base, le, extra, cumulative[i])
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, extra, count)
	fmt.Fprintf(b, "%s_sum%s %g\n", base, braced(labels), sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, braced(labels), count)
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, r.Render())
	})
}
