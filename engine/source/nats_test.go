package source

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/wessley-marketplace/engine/catalog"
	"github.com/WessleyAI/wessley-marketplace/engine/domain"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	require.True(t, srv.ReadyForConnections(3*time.Second), "nats not ready")
	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func listing(id string) domain.Vehicle {
	return domain.Vehicle{ID: id, Brand: "Mazda", Model: "3", Year: 2021, Price: 19000, Status: domain.StatusApproved}
}

func TestSnapshotFeed(t *testing.T) {
	nc := startTestNATS(t)

	got := make(chan *catalog.Store, 4)
	feed, err := SubscribeSnapshots(nc, SnapshotSubject, func(_ Snapshot, s *catalog.Store) { got <- s },
		WithFeedLogger(quietLogger()), WithFeedClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	defer feed.Close()
	require.NoError(t, nc.Flush())

	ctx := context.Background()
	newer := NewSnapshot("test", []domain.Vehicle{listing("a"), listing("b"), listing("a")}, testNow)
	older := NewSnapshot("test", []domain.Vehicle{listing("old")}, testNow.Add(-time.Minute))

	require.NoError(t, PublishSnapshot(ctx, nc, SnapshotSubject, newer))
	select {
	case s := <-got:
		assert.Equal(t, 2, s.Len(), "duplicate id is dropped")
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot not delivered")
	}

	require.NoError(t, PublishSnapshot(ctx, nc, SnapshotSubject, older))
	require.NoError(t, nc.Publish(SnapshotSubject, []byte("not json")))
	require.NoError(t, nc.Flush())
	select {
	case s := <-got:
		t.Fatalf("older snapshot applied: %d records", s.Len())
	case <-time.After(200 * time.Millisecond):
	}

	latest := NewSnapshot("test", []domain.Vehicle{listing("c")}, testNow.Add(time.Minute))
	require.NoError(t, PublishSnapshot(ctx, nc, SnapshotSubject, latest))
	select {
	case s := <-got:
		_, ok := s.Get("c")
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("latest snapshot not delivered")
	}
}
