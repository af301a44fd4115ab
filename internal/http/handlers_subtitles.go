package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"snatch/internal/config"
	"snatch/internal/media"
)

// subtitlesHandler lists the subtitle languages available for a URL.
func subtitlesHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	val := c.Locals("subtitler")
	subtitler, ok := val.(media.Subtitler)
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(SubtitlesResponse{
			Success: false,
			Error:   "subtitle lookup is not available",
		})
	}

	var req SubtitlesRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(SubtitlesResponse{
			Success: false,
			Error:   "url is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), time.Duration(cfg.Worker.ResolveTimeoutMs)*time.Millisecond)
	defer cancel()

	subs, err := subtitler.ListSubtitles(ctx, req.URL)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(SubtitlesResponse{
			Success: false,
			Error:   "failed to list subtitles",
		})
	}

	return c.JSON(SubtitlesResponse{Success: true, Subtitles: subs})
}

// downloadSubtitlesHandler fetches one language's subtitle track into
// the downloads dir without downloading the media.
func downloadSubtitlesHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	val := c.Locals("subtitler")
	subtitler, ok := val.(media.Subtitler)
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(DownloadSubtitlesResponse{
			Success: false,
			Error:   "subtitle lookup is not available",
		})
	}

	var req DownloadSubtitlesRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" || req.Lang == "" {
		return c.Status(fiber.StatusBadRequest).JSON(DownloadSubtitlesResponse{
			Success: false,
			Error:   "url and lang are required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), time.Duration(cfg.Worker.ResolveTimeoutMs)*time.Millisecond)
	defer cancel()

	name, err := subtitler.FetchSubtitles(ctx, req.URL, req.Lang)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(DownloadSubtitlesResponse{
			Success: false,
			Error:   "subtitle not found",
		})
	}

	return c.JSON(DownloadSubtitlesResponse{
		Success:     true,
		File:        name,
		DownloadURL: "/file/" + name,
	})
}
