package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/source"
	"github.com/WessleyAI/wessley-marketplace/pkg/metrics"
	"github.com/WessleyAI/wessley-marketplace/pkg/mid"
)

// defaultScreen serves requests that name no screen.
const defaultScreen = "catalog"

// snapshot is the last load outcome. A failed refresh keeps the previous
// store so clients still see listings alongside the error.
type snapshot struct {
	store *catalog.Store
	err   error
}

type server struct {
	profiles map[string]catalog.Profile
	reg      *metrics.Registry
	log      *slog.Logger
	now      func() time.Time
	current  atomic.Pointer[snapshot]
}

func newServer(profiles map[string]catalog.Profile, reg *metrics.Registry, log *slog.Logger) *server {
	s := &server{profiles: profiles, reg: reg, log: log, now: time.Now}
	s.current.Store(&snapshot{})
	return s
}

func (s *server) setStore(st *catalog.Store) {
	s.current.Store(&snapshot{store: st})
	s.log.Info("catalog snapshot swapped", "records", st.Len())
}

func (s *server) setErr(err error) {
	for {
		old := s.current.Load()
		if s.current.CompareAndSwap(old, &snapshot{store: old.store, err: err}) {
			return
		}
	}
}

// refresh loads every listing the source offers.
func (s *server) refresh(ctx context.Context, f *source.Fetcher) {
	store, _, err := f.Fetch(ctx, source.Query{})
	switch {
	case errors.Is(err, source.ErrStale):
	case err != nil:
		s.log.Error("catalog refresh failed", "err", err)
		s.setErr(err)
	default:
		s.setStore(store)
	}
}

func (s *server) refreshEvery(ctx context.Context, f *source.Fetcher, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refresh(ctx, f)
		}
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, mid.Metrics(s.reg, pattern)(h))
	}
	handle("GET /api/health", s.handleHealth)
	handle("GET /api/screens", s.handleScreens)
	handle("GET /api/vehicles", s.handleVehicles)
	handle("GET /api/vehicles/{id}", s.handleVehicle)
	handle("GET /api/facets", s.handleFacets)
	mux.Handle("GET /metrics", s.reg.Handler())
	return mux
}

// engine builds a per-request engine for the screen named in the query.
func (s *server) engine(r *http.Request) (*catalog.Engine, error) {
	name := r.URL.Query().Get("screen")
	if name == "" {
		name = defaultScreen
	}
	p, ok := s.profiles[name]
	if !ok {
		return nil, &httpError{status: http.StatusNotFound, msg: "unknown screen " + name}
	}
	snap := s.current.Load()
	opts := []catalog.Option{
		catalog.WithLogger(s.log),
		catalog.WithClock(s.now),
		catalog.WithMetrics(s.reg),
	}
	if snap.store != nil {
		opts = append(opts, catalog.WithStore(snap.store))
	}
	e, err := catalog.New(p, opts...)
	if err != nil {
		return nil, err
	}
	if snap.err != nil {
		e.Fail(snap.err)
	}
	e.ApplyQuery(r.URL.Query())
	return e, nil
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var he *httpError
	if errors.As(err, &he) {
		writeJSON(w, he.status, map[string]string{"error": he.msg})
		return
	}
	s.log.Error("request failed", "path", r.URL.Path, "err", err, "request_id", mid.RequestIDFrom(r.Context()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// --- Handlers ---

type healthResponse struct {
	Status   string    `json:"status"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loadedAt,omitzero"`
	Error    string    `json:"error,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.current.Load()
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if snap.store != nil {
		resp.Records = snap.store.Len()
		resp.LoadedAt = snap.store.LoadedAt()
	}
	switch {
	case snap.err != nil:
		resp.Status, resp.Error = "degraded", snap.err.Error()
	case snap.store == nil:
		resp.Status, code = "loading", http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *server) handleScreens(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"screens": slices.Sorted(maps.Keys(s.profiles))})
}

func (s *server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View(r.Context()))
}

func (s *server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := s.current.Load()
	if snap.store != nil {
		if v, ok := snap.store.Get(id); ok {
			writeJSON(w, http.StatusOK, v)
			return
		}
	}
	s.fail(w, r, &httpError{status: http.StatusNotFound, msg: "vehicle " + id + " not found"})
}

func (s *server) handleFacets(w http.ResponseWriter, r *http.Request) {
	e, err := s.engine(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Facets())
}
