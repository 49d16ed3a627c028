// Package render implements the per-request HTML-to-PDF pipeline on top of
// a running browser engine.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/domain"
	"chromium-pdf/internal/infra/logging"
)

const (
	// measureViewport pre-sizes the page large enough that content lays
	// out unconstrained before its bounds are measured.
	measureViewport = 3000

	// settleDelay grants async layout work a moment after the document
	// reports complete.
	settleDelay = 200 * time.Millisecond

	readyPollInterval = 50 * time.Millisecond
)

// measureScript prefers the .export-container marker element and falls
// back to the body's scrollable bounds.
const measureScript = `(() => {
	const container = document.querySelector('.export-container');
	if (container) {
		return {width: container.offsetWidth, height: container.offsetHeight};
	}
	const body = document.body;
	return {width: body.scrollWidth, height: body.scrollHeight};
})()`

// pinStyleScript neutralizes default browser chrome so the captured region
// matches the measured geometry exactly.
const pinStyleScript = `(() => {
	const style = document.createElement('style');
	style.textContent =
		'html, body { margin: 0 !important; padding: 0 !important; width: auto !important; height: auto !important; }' +
		' .export-container { position: absolute !important; top: 0 !important; left: 0 !important; margin: 0 !important; }';
	document.head.appendChild(style);
})()`

const fontsReadyScript = `document.fonts ? document.fonts.ready.then(() => true) : true`

// Engine is the slice of the browser engine the pipeline needs.
type Engine interface {
	Ready() bool
	WithSession(fn func(tab context.Context) error) error
}

// Stats is a point-in-time view of render admission for the stats endpoint.
type Stats struct {
	Ready    bool `json:"ready"`
	Capacity int  `json:"capacity"`
	InUse    int  `json:"in_use"`
}

// Service converts (HTML, options) into PDF bytes inside isolated engine
// sessions. A semaphore caps how many sessions run at once.
type Service struct {
	cfg     config.Config
	engine  Engine
	sem     chan struct{}
	timeout time.Duration
}

// New creates a render service bound to the given engine.
func New(cfg config.Config, engine Engine) *Service {
	return &Service{
		cfg:     cfg,
		engine:  engine,
		sem:     make(chan struct{}, cfg.PDF.MaxConcurrent),
		timeout: time.Duration(cfg.PDF.TimeoutSecs) * time.Second,
	}
}

// Ready reports whether the underlying engine can serve requests.
func (s *Service) Ready() bool { return s.engine.Ready() }

// Stats reports current admission usage.
func (s *Service) Stats() Stats {
	return Stats{Ready: s.engine.Ready(), Capacity: cap(s.sem), InUse: len(s.sem)}
}

// Render runs the full pipeline for one request. Timeouts surface as
// domain.ErrRenderTimeout, a stopped engine as domain.ErrNotReady, and any
// other pipeline failure as a domain.RenderError wrapping the cause.
func (s *Service) Render(ctx context.Context, req domain.RenderRequest) ([]byte, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, &domain.RenderError{Cause: fmt.Errorf("waiting for a render slot: %w", ctx.Err())}
	}

	opts := req.Options.WithDefaults()

	var pdf []byte
	err := s.engine.WithSession(func(tab context.Context) error {
		tabCtx, cancel := context.WithTimeout(tab, s.timeout)
		defer cancel()

		buf, err := s.capture(tabCtx, req.HTML, opts)
		pdf = buf
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotReady):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w (bound: %s)", domain.ErrRenderTimeout, s.timeout)
		default:
			return nil, &domain.RenderError{Cause: err}
		}
	}

	logging.Info("pdf rendered", "bytes", len(pdf), "fit_to_content", *opts.FitToContent)
	return pdf, nil
}

// capture is the in-session pipeline: load, measure, pin, capture.
func (s *Service) capture(ctx context.Context, html string, opts domain.RenderOptions) ([]byte, error) {
	d := translate(opts)

	var pdf []byte
	var geo *domain.Geometry

	tasks := []chromedp.Action{
		chromedp.EmulateViewport(measureViewport, measureViewport),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitForRenderReady(ctx, settleDelay)
		}),
	}

	if d.FitToContent {
		tasks = append(tasks,
			chromedp.ActionFunc(func(ctx context.Context) error {
				var g domain.Geometry
				if err := chromedp.Evaluate(measureScript, &g).Do(ctx); err != nil {
					return err
				}
				// An empty body measures 0x0; clamp so the capture still
				// produces a document.
				if g.Width < 1 {
					g.Width = 1
				}
				if g.Height < 1 {
					g.Height = 1
				}
				geo = &g
				return nil
			}),
			chromedp.Evaluate(pinStyleScript, nil),
			chromedp.ActionFunc(func(ctx context.Context) error {
				// Re-sizing to the measured bounds prevents reflow drift
				// between measurement and capture.
				return chromedp.EmulateViewport(geo.Width, geo.Height).Do(ctx)
			}),
		)
	}

	tasks = append(tasks,
		chromedp.Evaluate(fontsReadyScript, nil, awaitPromise),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params, err := printParams(d, geo, s.cfg.PDF.PaperSizes, s.cfg.PDF.DefaultPaper)
			if err != nil {
				return err
			}
			buf, _, err := params.Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)

	if err := chromedp.Run(ctx, tasks...); err != nil {
		return nil, err
	}
	return pdf, nil
}

// waitForRenderReady blocks until the document reports readyState complete,
// then grants the settle delay. The surrounding context deadline is the
// only upper bound.
func waitForRenderReady(ctx context.Context, settle time.Duration) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var state string
		if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
			return err
		}
		if state == "complete" {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
		return nil
	}
}

func awaitPromise(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
