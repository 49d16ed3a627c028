// Package chrome owns the headless Chromium process and hands out isolated
// per-request rendering targets.
package chrome

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/domain"
	"chromium-pdf/internal/infra/logging"
)

// Engine wraps the single long-lived browser process. It is constructed in
// main and passed by reference into the render path; there is at most one
// per process.
type Engine struct {
	cfg config.Config

	mu            sync.Mutex
	ready         bool
	profileDir    string
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// newTarget derives an isolated target from the browser context.
	// Swapped out in tests so session teardown can be observed without a
	// browser.
	newTarget func(parent context.Context) (context.Context, context.CancelFunc)
}

// NewEngine creates a stopped engine. Call Start before rendering.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{
		cfg: cfg,
		newTarget: func(parent context.Context) (context.Context, context.CancelFunc) {
			return chromedp.NewContext(parent)
		},
	}
}

// Start launches the headless browser. Calling it on a running engine logs
// a warning and returns nil instead of double-launching.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		logging.Warn("render engine already started")
		return nil
	}

	logging.Info("starting render engine")

	dir, err := createProfileDir(e.cfg)
	if err != nil {
		return &domain.LaunchError{Cause: err}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(e.cfg, dir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the process launch so a broken binary
	// fails here instead of on the first request.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.Warn("failed to remove profile dir", "dir", dir, "error", rmErr.Error())
		}
		return &domain.LaunchError{Cause: err}
	}

	e.profileDir = dir
	e.allocCancel = allocCancel
	e.browserCtx = browserCtx
	e.browserCancel = browserCancel
	e.ready = true

	logging.Info("render engine started", "profile_dir", dir)
	return nil
}

// Stop closes the browser and releases its resources. Safe to call when
// never started and safe to call twice; cleanup problems are logged, not
// returned.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready && e.browserCancel == nil {
		return
	}

	logging.Info("stopping render engine")

	if e.browserCancel != nil {
		e.browserCancel()
		e.browserCancel = nil
	}
	if e.allocCancel != nil {
		e.allocCancel()
		e.allocCancel = nil
	}
	if e.profileDir != "" {
		if err := os.RemoveAll(e.profileDir); err != nil {
			logging.Warn("failed to remove profile dir", "dir", e.profileDir, "error", err.Error())
		}
		e.profileDir = ""
	}

	e.browserCtx = nil
	e.ready = false

	logging.Info("render engine stopped")
}

// Ready reports whether requests may currently be served.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// createProfileDir creates a throwaway user-data directory, under the
// configured base when one is set.
func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		dir, err := os.MkdirTemp("", "chromium-pdf-profile-*")
		if err != nil {
			return "", fmt.Errorf("cannot create temp profile dir: %w", err)
		}
		return dir, nil
	}
	if err := os.MkdirAll(base, 0o750); err != nil {
		return "", fmt.Errorf("cannot create profile base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "profile-*")
	if err != nil {
		return "", fmt.Errorf("cannot create profile dir under %s: %w", base, err)
	}
	return dir, nil
}

// allocatorOptions builds the exec allocator flags. Software rendering is
// forced to avoid Vulkan/ANGLE issues in minimal container environments.
func allocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}
