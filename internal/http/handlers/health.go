package handlers

import (
	"github.com/gofiber/fiber/v2"

	"chromium-pdf/internal/config"
)

// HandleHealth answers the health probe without touching the render core.
func HandleHealth(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": cfg.App.Name,
		})
	}
}
