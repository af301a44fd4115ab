package http

import (
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"snatch/internal/config"
)

// fileHandler streams a completed job's artifact. Names containing
// path-escaping sequences are rejected before touching the filesystem.
func fileHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || !safeFilename(name) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Error:   "invalid filename",
		})
	}

	path := filepath.Join(cfg.Downloads.Dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Error:   "not found",
		})
	}

	// FormatMediaType quotes and escapes the name; titles may contain
	// anything yt-dlp lets through.
	c.Set(fiber.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return c.SendFile(path)
}

// safeFilename rejects anything that could escape the downloads dir.
func safeFilename(name string) bool {
	if name == "" {
		return false
	}
	for _, seq := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, seq) {
			return false
		}
	}
	return true
}
