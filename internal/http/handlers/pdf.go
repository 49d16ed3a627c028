// Package handlers contains the HTTP entry points for PDF conversion.
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"chromium-pdf/internal/config"
	"chromium-pdf/internal/domain"
	"chromium-pdf/internal/infra/logging"
	"chromium-pdf/internal/render"
)

// Renderer is the slice of the render service the HTTP layer depends on.
type Renderer interface {
	Render(ctx context.Context, req domain.RenderRequest) ([]byte, error)
	Ready() bool
	Stats() render.Stats
}

// PDFHandler serves the conversion and stats endpoints.
type PDFHandler struct {
	Config   config.Config
	Renderer Renderer
	Redis    *redis.Client
}

// NewPDFHandler creates a handler bound to a renderer and optional cache.
func NewPDFHandler(cfg config.Config, r Renderer, rdb *redis.Client) *PDFHandler {
	return &PDFHandler{Config: cfg, Renderer: r, Redis: rdb}
}

type pdfRequestBody struct {
	HTML    string                `json:"html"`
	Options *domain.RenderOptions `json:"options"`
}

// HandleConversion renders the posted HTML into a PDF, serving a cached
// copy when one exists.
func (h *PDFHandler) HandleConversion(c *fiber.Ctx) error {
	var body pdfRequestBody
	if err := c.BodyParser(&body); err != nil {
		return validationError(c, "body", "request body must be a JSON object")
	}
	if strings.TrimSpace(body.HTML) == "" {
		return validationError(c, "html", "html field cannot be empty")
	}
	if len(body.HTML) > h.Config.Limits.MaxHTMLBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("HTML input exceeds %d bytes", h.Config.Limits.MaxHTMLBytes))
	}

	req := domain.RenderRequest{HTML: body.HTML}
	if body.Options != nil {
		req.Options = *body.Options
	}

	cacheKey := computePDFCacheKey(req)
	if h.cacheEnabled() {
		if cached, err := h.getCachedPDF(c, cacheKey); err == nil && cached != nil {
			return c.Send(cached)
		}
	}

	pdf, err := h.Renderer.Render(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRenderTimeout):
			logging.Error("pdf generation timed out", "timeout_secs", h.Config.PDF.TimeoutSecs, "error", err.Error())
			return fiber.NewError(fiber.StatusGatewayTimeout, "PDF generation timed out - HTML too large or complex")
		case errors.Is(err, domain.ErrNotReady):
			logging.Error("render requested before engine start", "error", err.Error())
			return fiber.NewError(fiber.StatusServiceUnavailable, "render engine not ready")
		default:
			logging.Error("pdf generation failed", "error", err.Error())
			return fiber.NewError(fiber.StatusInternalServerError, "PDF generation failed")
		}
	}

	if len(pdf) > h.Config.Limits.MaxPDFBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}

	if h.cacheEnabled() {
		h.setCachedPDF(c, cacheKey, pdf)
	}

	logging.Info("pdf generated", "bytes", len(pdf), "request_id", c.Get("X-Request-ID"))

	setPDFHeaders(c)
	return c.Send(pdf)
}

// HandleStats exposes render admission stats (capacity / in_use / ready).
func (h *PDFHandler) HandleStats(c *fiber.Ctx) error {
	s := h.Renderer.Stats()
	return c.JSON(fiber.Map{
		"ready":        s.Ready,
		"capacity":     s.Capacity,
		"in_use":       s.InUse,
		"timeout_secs": h.Config.PDF.TimeoutSecs,
	})
}

func (h *PDFHandler) cacheEnabled() bool {
	return h.Redis != nil && h.Config.Cache.PDFCacheEnabled
}

func setPDFHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", "inline; filename=document.pdf")
}

func validationError(c *fiber.Ctx, field, msg string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"detail": []fiber.Map{
			{"field": field, "message": msg},
		},
	})
}

// computePDFCacheKey hashes the HTML together with the effective options so
// different option sets never collide.
func computePDFCacheKey(req domain.RenderRequest) string {
	h := sha256.New()
	h.Write([]byte(req.HTML))
	if enc, err := json.Marshal(req.Options.WithDefaults()); err == nil {
		h.Write(enc)
	}
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}

func (h *PDFHandler) getCachedPDF(c *fiber.Ctx, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(c.Context(), time.Second)
	defer cancel()

	cached, err := h.Redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logging.Warn("redis read failed", "error", err.Error())
		return nil, err
	}

	logging.Info("pdf cache hit", "key", key)
	setPDFHeaders(c)
	return cached, nil
}

func (h *PDFHandler) setCachedPDF(c *fiber.Ctx, key string, data []byte) {
	ctx, cancel := context.WithTimeout(c.Context(), time.Second)
	defer cancel()

	ttl := h.Config.Cache.PDFCacheTTL.Std()
	if ttl <= 0 {
		ttl = time.Minute
	}

	if err := h.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
		logging.Warn("redis write failed", "error", err.Error())
	}
}
