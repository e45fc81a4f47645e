package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/domain"
	"github.com/WessleyAI/wessley-marketplace/pkg/natsutil"
)

// SnapshotSubject is the subject full catalog snapshots are published on.
const SnapshotSubject = "catalog.vehicles.snapshot"

// Snapshot is a complete listing set pushed to subscribers.
type Snapshot struct {
	ID          uuid.UUID        `json:"id"`
	Source      string           `json:"source"`
	PublishedAt time.Time        `json:"publishedAt"`
	Vehicles    []domain.Vehicle `json:"vehicles"`
}

// NewSnapshot stamps vs with a fresh ID and publication time.
func NewSnapshot(source string, vs []domain.Vehicle, now time.Time) Snapshot {
	return Snapshot{ID: uuid.New(), Source: source, PublishedAt: now.UTC(), Vehicles: vs}
}

// PublishSnapshot sends snap on subject.
func PublishSnapshot(ctx context.Context, nc *nats.Conn, subject string, snap Snapshot) error {
	if err := natsutil.Publish(ctx, nc, subject, snap); err != nil {
		return fmt.Errorf("source: publish snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// NATSFeed applies snapshots received on a subject. Snapshots published
// before the last applied one are ignored, so redelivery or reordering never
// rolls the catalog back.
type NATSFeed struct {
	sub   *nats.Subscription
	apply func(Snapshot, *catalog.Store)
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	applied time.Time
}

// FeedOption configures a NATSFeed.
type FeedOption func(*NATSFeed)

// WithFeedLogger sets the logger.
func WithFeedLogger(l *slog.Logger) FeedOption {
	return func(f *NATSFeed) { f.log = l }
}

// WithFeedClock sets the clock used to validate model years.
func WithFeedClock(now func() time.Time) FeedOption {
	return func(f *NATSFeed) { f.now = now }
}

// SubscribeSnapshots subscribes to subject and calls apply with a store
// built from each accepted snapshot. apply runs on the subscription's
// goroutine.
func SubscribeSnapshots(nc *nats.Conn, subject string, apply func(Snapshot, *catalog.Store), opts ...FeedOption) (*NATSFeed, error) {
	f := &NATSFeed{apply: apply, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(f)
	}
	sub, err := natsutil.Subscribe(nc, subject, f.handle, func(msg *nats.Msg, err error) {
		f.log.Warn("source: bad snapshot message", "subject", msg.Subject, "err", err)
	})
	if err != nil {
		return nil, fmt.Errorf("source: subscribe %s: %w", subject, err)
	}
	f.sub = sub
	return f, nil
}

func (f *NATSFeed) handle(_ context.Context, snap Snapshot) {
	f.mu.Lock()
	if !f.applied.IsZero() && snap.PublishedAt.Before(f.applied) {
		f.mu.Unlock()
		f.log.Info("source: ignoring older snapshot", "id", snap.ID, "published", snap.PublishedAt)
		return
	}
	f.applied = snap.PublishedAt
	f.mu.Unlock()

	store, rep := catalog.NewStore(snap.Vehicles, f.now(), f.log)
	f.log.Info("source: snapshot received", "id", snap.ID, "source", snap.Source,
		"loaded", rep.Loaded, "dropped", rep.DroppedCount())
	f.apply(snap, store)
}

// Close unsubscribes.
func (f *NATSFeed) Close() error {
	return f.sub.Unsubscribe()
}
