package catalog

import (
	"context"
	"sync"

	"github.com/WessleyAI/wessley-marketplace/pkg/debounce"
)

// Session pairs an engine with a search debouncer. Keystrokes go to Type;
// the settled term reaches the engine once the input has been quiet for the
// debounce interval. All engine access goes through the session's lock
// because debounced deliveries arrive on a timer goroutine.
type Session struct {
	mu       sync.Mutex
	engine   *Engine
	search   *debounce.Debouncer
	onChange func(View)
}

// NewSession wraps e. onChange, if non-nil, receives a fresh view after
// every state change, with the session lock held.
func NewSession(e *Engine, onChange func(View), opts ...debounce.Option) *Session {
	s := &Session{engine: e, onChange: onChange}
	s.search = debounce.New(s.commitSearch, opts...)
	return s
}

func (s *Session) commitSearch(term string) {
	s.Dispatch(SetSearch(term))
}

// Type records raw search input. The raw text is visible immediately via
// RawSearch; filtering waits for the debounce.
func (s *Session) Type(raw string) { s.search.Input(raw) }

// Submit applies the typed search now, as when the user presses enter.
func (s *Session) Submit() { s.search.Flush() }

// RawSearch is the text as typed, which may be ahead of the applied term.
func (s *Session) RawSearch() string { return s.search.Raw() }

// Dispatch applies a and notifies onChange if the state changed. Clearing
// everything also drops any pending search and empties the typed text.
func (s *Session) Dispatch(a Action) bool {
	if a.Kind == ActClearAll {
		s.search.Reset()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.Dispatch(a) {
		return false
	}
	if s.onChange != nil {
		s.onChange(s.engine.View(context.Background()))
	}
	return true
}

// Do runs f with exclusive access to the engine.
func (s *Session) Do(f func(*Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.engine)
}

// Update runs f with exclusive access to the engine, then notifies
// onChange. Loaders use it to publish load status and new stores.
func (s *Session) Update(f func(*Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.engine)
	if s.onChange != nil {
		s.onChange(s.engine.View(context.Background()))
	}
}

// View evaluates the current screen.
func (s *Session) View(ctx context.Context) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.View(ctx)
}

// Close stops the debouncer. No search is applied after Close returns.
func (s *Session) Close() { s.search.Stop() }
