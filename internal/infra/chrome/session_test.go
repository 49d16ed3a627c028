package chrome

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"chromium-pdf/internal/domain"
)

// stubEngine builds a ready engine whose target factory counts teardowns
// instead of talking to a browser.
func stubEngine(cancels *int32) *Engine {
	return &Engine{
		ready:      true,
		browserCtx: context.Background(),
		newTarget: func(parent context.Context) (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(parent)
			return ctx, func() {
				atomic.AddInt32(cancels, 1)
				cancel()
			}
		},
	}
}

func TestWithSession_FailsWhenNotReady(t *testing.T) {
	e := NewEngine(testConfig())

	called := false
	err := e.WithSession(func(context.Context) error {
		called = true
		return nil
	})

	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if called {
		t.Fatalf("rendering function must not run without a ready engine")
	}
}

func TestWithSession_TeardownRunsExactlyOnceOnSuccess(t *testing.T) {
	var cancels int32
	e := stubEngine(&cancels)

	if err := e.WithSession(func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&cancels); got != 1 {
		t.Fatalf("expected exactly one teardown, got %d", got)
	}
}

func TestWithSession_TeardownRunsExactlyOnceOnError(t *testing.T) {
	var cancels int32
	e := stubEngine(&cancels)

	boom := errors.New("render exploded")
	err := e.WithSession(func(context.Context) error { return boom })

	if !errors.Is(err, boom) {
		t.Fatalf("expected rendering error to propagate, got %v", err)
	}
	if got := atomic.LoadInt32(&cancels); got != 1 {
		t.Fatalf("expected exactly one teardown, got %d", got)
	}
}

func TestWithSession_TeardownRunsOnPanic(t *testing.T) {
	var cancels int32
	e := stubEngine(&cancels)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = e.WithSession(func(context.Context) error { panic("boom") })
	}()

	if got := atomic.LoadInt32(&cancels); got != 1 {
		t.Fatalf("expected teardown to run on panic, got %d", got)
	}
}

func TestWithSession_SessionsAreDistinct(t *testing.T) {
	var cancels int32
	e := stubEngine(&cancels)

	seen := make(map[context.Context]bool)
	for i := 0; i < 3; i++ {
		_ = e.WithSession(func(tab context.Context) error {
			if seen[tab] {
				t.Fatalf("session context reused across requests")
			}
			seen[tab] = true
			return nil
		})
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct sessions, got %d", len(seen))
	}
	if got := atomic.LoadInt32(&cancels); got != 3 {
		t.Fatalf("expected one teardown per session, got %d", got)
	}
}
