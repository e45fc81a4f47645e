package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultOkErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	if v, err := r.Unwrap(); v != 42 || err != nil {
		t.Fatalf("unexpected unwrap %d %v", v, err)
	}

	e := Errf[int]("boom %d", 1)
	if e.IsOk() {
		t.Fatal("Errf should be err")
	}
	if e.UnwrapOr(7) != 7 {
		t.Fatal("UnwrapOr should return fallback")
	}
	if _, err := e.Unwrap(); err.Error() != "boom 1" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFromPair(t *testing.T) {
	if FromPair(1, errors.New("e")).IsOk() {
		t.Fatal("FromPair with error should be Err")
	}
	if !FromPair(1, nil).IsOk() {
		t.Fatal("FromPair without error should be Ok")
	}
}

func TestThenShortCircuits(t *testing.T) {
	called := false
	fail := Stage[int, int](func(context.Context, int) Result[int] { return Errf[int]("stop") })
	next := Stage[int, string](func(context.Context, int) Result[string] {
		called = true
		return Ok("never")
	})
	r := Then(fail, next)(context.Background(), 1)
	if r.IsOk() || called {
		t.Fatal("second stage must not run after a failure")
	}
}

func TestTracedStagePassesThrough(t *testing.T) {
	double := TracedStage("double", MapStage(func(v []int) []int {
		out := make([]int, 0, len(v)*2)
		out = append(out, v...)
		return append(out, v...)
	}), func(v []int) int { return len(v) })
	v, err := double(context.Background(), []int{1, 2}).Unwrap()
	if err != nil || len(v) != 4 {
		t.Fatalf("unexpected %v %v", v, err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	var retried []int
	r := Retry(context.Background(), RetryOpts{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		OnRetry:     func(a int, _ error) { retried = append(retried, a) },
	}, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Errf[string]("transient")
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" {
		t.Fatalf("expected done, got %q %v", v, err)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Fatalf("unexpected retry callbacks %v", retried)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	attempts := 0
	r := Retry(context.Background(), RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}, func(context.Context) Result[int] {
		attempts++
		return Err[int](permanent)
	})
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
	if _, err := r.Unwrap(); !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 3, InitialWait: time.Hour}, func(context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSliceHelpers(t *testing.T) {
	if got := Map([]int{1, 2}, func(v int) int { return v * 10 }); got[1] != 20 {
		t.Fatalf("Map: %v", got)
	}
	if got := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 }); len(got) != 2 || got[0] != 2 {
		t.Fatalf("Filter: %v", got)
	}
	got := FilterMap([]string{"a", "", "b"}, func(s string) (int, bool) { return len(s), s != "" })
	if len(got) != 2 {
		t.Fatalf("FilterMap: %v", got)
	}
	if u := Unique([]string{"b", "a", "b"}); len(u) != 2 || u[0] != "b" {
		t.Fatalf("Unique: %v", u)
	}
}
