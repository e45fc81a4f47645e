package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/WessleyAI/wessley-marketplace/pkg/debounce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c    *fakeClock
	at   time.Duration
	f    func()
	done bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && t.at <= c.now {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func newTestSession(t *testing.T) (*Session, *fakeClock, *[]View) {
	t.Helper()
	clock := &fakeClock{}
	var views []View
	s := NewSession(newTestEngine(t, CatalogProfile(), lotStore(t)), func(v View) {
		views = append(views, v)
	}, debounce.WithClock(clock))
	t.Cleanup(s.Close)
	return s, clock, &views
}

func TestSessionBurstEvaluatesOnce(t *testing.T) {
	s, clock, views := newTestSession(t)
	ctx := context.Background()
	s.View(ctx)

	var before int
	s.Do(func(e *Engine) { before = e.Evaluations() })

	for _, raw := range []string{"toy", "toyo", "toyota"} {
		s.Type(raw)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, "toyota", s.RawSearch())
	assert.Empty(t, *views, "nothing applied inside the quiet interval")

	clock.Advance(debounce.DefaultInterval)
	require.Len(t, *views, 1)
	assert.Equal(t, "toyota", (*views)[0].State.Filter.Search)
	assert.Equal(t, []string{"v1", "v5"}, ids((*views)[0].Items))

	s.Do(func(e *Engine) {
		assert.Equal(t, before+1, e.Evaluations())
	})

	clock.Advance(time.Second)
	assert.Len(t, *views, 1)
}

func TestSessionCloseDropsPendingSearch(t *testing.T) {
	s, clock, views := newTestSession(t)
	s.Type("ford")
	s.Close()
	clock.Advance(time.Second)

	assert.Empty(t, *views)
	assert.Empty(t, s.View(context.Background()).State.Filter.Search)
}

func TestSessionClearAllCancelsPendingSearch(t *testing.T) {
	s, clock, views := newTestSession(t)
	s.Dispatch(Toggle(DimBrand, "Ford"))
	s.Type("f-150")
	s.Dispatch(ClearAll())
	clock.Advance(time.Second)

	assert.Len(t, *views, 2)
	assert.Empty(t, s.View(context.Background()).Chips)
	assert.Empty(t, s.RawSearch(), "typed text is cleared with the filters")
}

func TestSessionSubmitAppliesImmediately(t *testing.T) {
	s, _, views := newTestSession(t)
	s.Type("tesla")
	s.Submit()

	require.Len(t, *views, 1)
	assert.Equal(t, []string{"v3"}, ids((*views)[0].Items))
}

func TestSessionDispatchReportsChange(t *testing.T) {
	s, _, views := newTestSession(t)
	assert.True(t, s.Dispatch(SetFlag(DimFeatured, true)))
	assert.False(t, s.Dispatch(SetFlag(DimFeatured, true)))
	assert.Len(t, *views, 1)
}
