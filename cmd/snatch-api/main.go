package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"snatch/internal/config"
	"snatch/internal/events"
	server "snatch/internal/http"
	"snatch/internal/jobs"
	"snatch/internal/media"
	"snatch/internal/queue"
	"snatch/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	if err := os.MkdirAll(cfg.Downloads.Dir, 0o755); err != nil {
		log.Fatalf("create downloads dir failed: %v", err)
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	st := store.New(store.Options{
		AllowedFormats:   cfg.Limits.Formats,
		AllowedQualities: cfg.Limits.Qualities,
		AllowedHosts:     cfg.Limits.AllowedHosts,
	})
	bus := events.NewBus(cfg.Events.SubscriberBuffer)
	qm := queue.NewManager(st, bus, logger)

	tool := media.NewTool("", cfg.Downloads.Dir, logger)
	expander := media.NewPlaylistExpander(cfg.Limits.MaxPlaylistItems)

	rootCtx := context.Background()

	startWorker := func() {
		runner := jobs.NewRunner(cfg, st, bus, tool, tool, logger)
		go runner.Start(rootCtx)
		jobs.StartSweeper(rootCtx, cfg, st, logger)
	}

	deps := server.Deps{
		Store:     st,
		Queue:     qm,
		Bus:       bus,
		Resolver:  tool,
		Expander:  expander,
		Subtitler: tool,
	}

	switch *role {
	case "api":
		// API-only: jobs are enqueued but not executed here.
		s := server.NewServer(cfg, deps, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: execute jobs and block.
		startWorker()
		select {}
	case "all":
		// Default: run both API and worker in one process.
		startWorker()
		s := server.NewServer(cfg, deps, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}
