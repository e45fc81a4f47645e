package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
)

var storeSeq atomic.Uint64

// Store is an immutable snapshot of validated listings. Every store gets a
// fresh ID, which derived results are memoized on.
type Store struct {
	id      uint64
	records []domain.Vehicle
	loaded  time.Time
}

// DropReason records why a listing was rejected at load.
type DropReason struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (d DropReason) String() string {
	return fmt.Sprintf("#%d %s: %v", d.Index, d.ID, d.Err)
}

// LoadReport summarizes a load: how many listings were kept and which were
// dropped.
type LoadReport struct {
	Loaded  int          `json:"loaded"`
	Dropped []DropReason `json:"dropped,omitempty"`
}

// DroppedCount is the number of rejected listings.
func (r LoadReport) DroppedCount() int { return len(r.Dropped) }

// EmptyStore is a store with no listings.
func EmptyStore() *Store {
	return &Store{id: storeSeq.Add(1)}
}

// LoadRaw normalizes raw listings into a store. Malformed listings and
// repeated IDs are dropped and logged; the first listing with a given ID
// wins.
func LoadRaw(raws []domain.RawVehicle, now time.Time, log *slog.Logger) (*Store, LoadReport) {
	b := newStoreBuilder(len(raws), now, log)
	for i, raw := range raws {
		v, err := domain.Normalize(raw, now)
		if err != nil {
			b.drop(i, string(raw.ID), err)
			continue
		}
		b.add(i, v)
	}
	return b.build()
}

// NewStore validates already-typed listings into a store with the same
// drop rules as LoadRaw.
func NewStore(records []domain.Vehicle, now time.Time, log *slog.Logger) (*Store, LoadReport) {
	b := newStoreBuilder(len(records), now, log)
	for i, v := range records {
		if err := domain.ValidateVehicle(v, now); err != nil {
			b.drop(i, v.ID, err)
			continue
		}
		b.add(i, v)
	}
	return b.build()
}

type storeBuilder struct {
	log    *slog.Logger
	now    time.Time
	seen   map[string]bool
	out    []domain.Vehicle
	report LoadReport
}

func newStoreBuilder(n int, now time.Time, log *slog.Logger) *storeBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &storeBuilder{
		log:  log,
		now:  now,
		seen: make(map[string]bool, n),
		out:  make([]domain.Vehicle, 0, n),
	}
}

func (b *storeBuilder) add(i int, v domain.Vehicle) {
	if b.seen[v.ID] {
		b.drop(i, v.ID, domain.NewValidationError("id", v.ID, domain.ErrDuplicateID))
		return
	}
	b.seen[v.ID] = true
	b.out = append(b.out, v)
}

func (b *storeBuilder) drop(i int, id string, err error) {
	b.report.Dropped = append(b.report.Dropped, DropReason{Index: i, ID: id, Reason: err.Error(), Err: err})
	var ve *domain.ValidationError
	field := ""
	if errors.As(err, &ve) {
		field = ve.Field
	}
	b.log.Warn("catalog: dropped listing", "index", i, "id", id, "field", field, "err", err)
}

func (b *storeBuilder) build() (*Store, LoadReport) {
	b.report.Loaded = len(b.out)
	if n := len(b.report.Dropped); n > 0 {
		b.log.Info("catalog: store loaded", "loaded", b.report.Loaded, "dropped", n)
	}
	return &Store{id: storeSeq.Add(1), records: b.out, loaded: b.now}, b.report
}

// ID identifies this snapshot.
func (s *Store) ID() uint64 { return s.id }

// Len is the number of listings.
func (s *Store) Len() int { return len(s.records) }

// LoadedAt is the time the snapshot was built.
func (s *Store) LoadedAt() time.Time { return s.loaded }

// Records returns the listings in load order. Callers must not modify the
// returned slice.
func (s *Store) Records() []domain.Vehicle { return s.records }

// Get looks a listing up by ID.
func (s *Store) Get(id string) (domain.Vehicle, bool) {
	for _, v := range s.records {
		if v.ID == id {
			return v, true
		}
	}
	return domain.Vehicle{}, false
}
