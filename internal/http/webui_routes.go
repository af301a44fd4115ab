package http

import (
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	webui "snatch/frontend"
)

func registerWebUIRoutes(app *fiber.App) {
	if !webui.Enabled() {
		return
	}

	distFS, err := fs.Sub(webui.FS(), "dist")
	if err != nil {
		return
	}

	indexHTML, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		return
	}

	serveIndex := func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache")
		c.Type("html", "utf-8")
		return c.Send(indexHTML)
	}

	app.Get("/", serveIndex)

	app.Get("/*", func(c *fiber.Ctx) error {
		requestPath := c.Path()

		// Don't hijack API routes; let Fiber return a proper 404 for
		// unknown endpoints.
		switch {
		case strings.HasPrefix(requestPath, "/queue"),
			strings.HasPrefix(requestPath, "/stream"),
			strings.HasPrefix(requestPath, "/file/"),
			requestPath == "/video-info",
			requestPath == "/expand",
			requestPath == "/subtitles",
			requestPath == "/download-subtitles",
			requestPath == "/healthz",
			requestPath == "/metrics":
			return fiber.ErrNotFound
		}

		cleaned := path.Clean(requestPath)
		cleaned = strings.TrimPrefix(cleaned, "/")

		if cleaned == "" || cleaned == "." {
			return serveIndex(c)
		}

		ext := filepath.Ext(cleaned)
		if ext == "" {
			return serveIndex(c)
		}

		payload, err := fs.ReadFile(distFS, cleaned)
		if err != nil {
			return fiber.ErrNotFound
		}

		if ct := mime.TypeByExtension(ext); ct != "" {
			c.Set("Content-Type", ct)
		} else {
			c.Type(ext)
		}

		return c.Send(payload)
	})
}
