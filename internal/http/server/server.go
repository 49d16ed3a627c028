// Package server assembles the Fiber application.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/http/handlers"
	"chromium-pdf/internal/http/middleware"
	"chromium-pdf/internal/infra/logging"
)

// Deps are the explicit dependencies of the HTTP layer. The renderer is
// built around the long-lived engine handle in main and handed in here
// instead of being reached through globals.
type Deps struct {
	Config   config.Config
	Renderer handlers.Renderer
	Redis    *redis.Client
}

// New creates and configures the Fiber app.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             d.Config.Limits.MaxHTMLBytes + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, d.Config)

	h := handlers.NewPDFHandler(d.Config, d.Renderer, d.Redis)
	app.Get("/health", handlers.HandleHealth(d.Config))
	app.Post("/pdf", h.HandleConversion)
	app.Get("/stats", h.HandleStats)

	// Ensure all responses, including 404s, return JSON.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}
