package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/domain"
	"chromium-pdf/internal/infra/chrome"
)

// findBrowser locates a usable Chromium binary; tests that need a real
// browser skip when none is installed.
func findBrowser() string {
	if v := os.Getenv("CHROME_BIN"); v != "" {
		return v
	}
	candidates := []string{
		"google-chrome", "google-chrome-stable",
		"chromium", "chromium-browser",
		"headless-shell", "chrome",
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func browserConfig(t *testing.T) config.Config {
	t.Helper()
	path := findBrowser()
	if path == "" {
		t.Skip("no chromium binary available")
	}

	var cfg config.Config
	cfg.PDF.ChromePath = path
	cfg.PDF.ChromeNoSandbox = true
	cfg.PDF.UserDataDir = t.TempDir()
	cfg.PDF.TimeoutSecs = 60
	cfg.PDF.MaxConcurrent = 2
	cfg.PDF.DefaultPaper = "A4"
	cfg.PDF.PaperSizes = testPapers()
	return cfg
}

func TestRenderEndToEnd_ProducesPDFMagic(t *testing.T) {
	cfg := browserConfig(t)

	engine := chrome.NewEngine(cfg)
	if engine.Ready() {
		t.Fatalf("engine must not be ready before start")
	}
	if err := engine.Start(); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	defer engine.Stop()

	if !engine.Ready() {
		t.Fatalf("engine must be ready after start")
	}

	s := New(cfg, engine)

	pdf, err := s.Render(context.Background(), domain.RenderRequest{
		HTML: `<html><body><div class="export-container"><h1>hello world</h1></div></body></html>`,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected PDF magic header, got %q", pdf[:min(len(pdf), 8)])
	}
}

func TestRenderEndToEnd_EmptyBodyStillRenders(t *testing.T) {
	cfg := browserConfig(t)

	engine := chrome.NewEngine(cfg)
	if err := engine.Start(); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	defer engine.Stop()

	s := New(cfg, engine)

	pdf, err := s.Render(context.Background(), domain.RenderRequest{
		HTML: "<html><body></body></html>",
	})
	if err != nil {
		t.Fatalf("render of empty body: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected non-empty bytes for an empty document")
	}
}

func TestRenderEndToEnd_LifecycleTransitions(t *testing.T) {
	cfg := browserConfig(t)

	engine := chrome.NewEngine(cfg)
	if err := engine.Start(); err != nil {
		t.Fatalf("engine start: %v", err)
	}

	// Idempotent start: a second call must warn and no-op.
	if err := engine.Start(); err != nil {
		t.Fatalf("second start must no-op, got %v", err)
	}

	engine.Stop()
	if engine.Ready() {
		t.Fatalf("engine must not be ready after stop")
	}
	engine.Stop()
	if engine.Ready() {
		t.Fatalf("double stop must leave the engine not ready")
	}

	s := New(cfg, engine)
	_, err := s.Render(context.Background(), domain.RenderRequest{HTML: "<html>late</html>"})
	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady after stop, got %v", err)
	}
}
