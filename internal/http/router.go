package http

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"snatch/internal/config"
	"snatch/internal/events"
	"snatch/internal/media"
	"snatch/internal/metrics"
	"snatch/internal/queue"
	"snatch/internal/store"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

// Deps bundles everything the handlers reach through fiber locals.
type Deps struct {
	Store     *store.Store
	Queue     *queue.Manager
	Bus       *events.Bus
	Resolver  media.Resolver
	Expander  media.Expander
	Subtitler media.Subtitler
}

func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Inject config and collaborators into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", deps.Store)
		c.Locals("queue", deps.Queue)
		c.Locals("bus", deps.Bus)
		if deps.Resolver != nil {
			c.Locals("resolver", deps.Resolver)
		}
		if deps.Expander != nil {
			c.Locals("expander", deps.Expander)
		}
		if deps.Subtitler != nil {
			c.Locals("subtitler", deps.Subtitler)
		}
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check Redis connectivity and downloads dir.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		downloadsStatus := "ok"
		if _, err := os.Stat(cfg.Downloads.Dir); err != nil {
			downloadsStatus = "error"
		}

		status := "ok"
		if redisStatus == "error" || downloadsStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status":    status,
			"redis":     redisStatus,
			"downloads": downloadsStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	registerRoutes(app, rateMw)
	registerWebUIRoutes(app)

	return &Server{
		app:    app,
		config: cfg,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func registerRoutes(app *fiber.App, rateMw fiber.Handler) {
	app.Post("/queue", rateMw, enqueueHandler)
	app.Get("/queue", rateMw, queueListHandler)
	app.Delete("/queue/completed", rateMw, clearCompletedHandler)
	app.Get("/queue/:id", rateMw, queueStatusHandler)
	app.Get("/stream", streamHandler)
	app.Get("/file/:name", fileHandler)
	app.Post("/video-info", rateMw, videoInfoHandler)
	app.Post("/expand", rateMw, expandHandler)
	app.Post("/subtitles", rateMw, subtitlesHandler)
	app.Post("/download-subtitles", rateMw, downloadSubtitlesHandler)
}
