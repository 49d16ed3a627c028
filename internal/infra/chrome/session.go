package chrome

import (
	"context"

	"chromium-pdf/internal/domain"
)

// WithSession runs fn inside a fresh isolated target (browsing context +
// page) derived from the running browser. The target is torn down on every
// exit path, including a panic inside fn; fn's error propagates after
// cleanup. No target is ever shared or reused between calls.
func (e *Engine) WithSession(fn func(tab context.Context) error) error {
	e.mu.Lock()
	ready := e.ready
	browserCtx := e.browserCtx
	newTarget := e.newTarget
	e.mu.Unlock()

	if !ready || browserCtx == nil {
		return domain.ErrNotReady
	}

	tab, cancel := newTarget(browserCtx)
	// cancel closes the page and then its browsing context; chromedp
	// reports teardown problems on its own channel, so they can never mask
	// fn's error.
	defer cancel()

	return fn(tab)
}
