package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/http/server"
	"chromium-pdf/internal/infra/chrome"
	"chromium-pdf/internal/infra/logging"
	"chromium-pdf/internal/infra/tokens"
	"chromium-pdf/internal/render"
)

func main() {
	cfg := config.Load()
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}

	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	var rdb *redis.Client
	if cfg.Cache.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.PDFCacheDB,
		})
	}

	// The engine handle is the one long-lived resource: started once here,
	// stopped once after the server drains.
	engine := chrome.NewEngine(cfg)
	if err := engine.Start(); err != nil {
		logging.Error("failed to start render engine", "error", err.Error())
		os.Exit(1)
	}

	renderer := render.New(cfg, engine)

	idleConnsClosed := make(chan struct{})
	if cfg.Auth.Postgres.Host != "" {
		if err := tokens.LoadFromPostgres(cfg.Auth.Postgres); err != nil {
			logging.Error("failed to load api tokens", "error", err.Error())
		}
		go tokens.RefreshPeriodically(cfg.Auth.Postgres, time.Minute, idleConnsClosed)
	}

	app := server.New(server.Deps{Config: cfg, Renderer: renderer, Redis: rdb})

	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed

	engine.Stop()
}

// startServer starts the Fiber app and listens for shutdown signals.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("server error", "error", err.Error())
		}
	}()

	// Listen for OS termination signals.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("shutdown signal received, closing server...")

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("server forced to shutdown", "error", err.Error())
	}

	close(idleConnsClosed)
	logging.Info("server stopped cleanly")
}
