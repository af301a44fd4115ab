// Package jobs contains the worker pool that executes queued downloads
// and the retention sweeper that removes expired ones.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"snatch/internal/config"
	"snatch/internal/events"
	"snatch/internal/media"
	"snatch/internal/metrics"
	"snatch/internal/model"
	"snatch/internal/store"
)

// Runner polls the store for due queued jobs and executes them on a
// bounded pool of worker slots. It encapsulates the claim/lease
// discipline, the retry policy, and constraint enforcement.
type Runner struct {
	cfg      *config.Config
	store    *store.Store
	bus      *events.Bus
	resolver media.Resolver
	executor media.Executor
	logger   *slog.Logger
}

func NewRunner(cfg *config.Config, st *store.Store, bus *events.Bus, resolver media.Resolver, executor media.Executor, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    st,
		bus:      bus,
		resolver: resolver,
		executor: executor,
		logger:   logger,
	}
}

// Start runs the dispatch loop in the current goroutine until the
// context is cancelled. Callers typically run this in its own
// goroutine and keep the process alive.
func (r *Runner) Start(ctx context.Context) {
	pollInterval := time.Duration(r.cfg.Worker.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	poolSize := r.cfg.Worker.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}

	sem := make(chan struct{}, poolSize)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Fill free slots with due jobs, oldest first. Claim moves the
		// job to running atomically, so no job is ever handed to two
		// workers.
		for len(sem) < poolSize {
			job, ok := r.store.Claim(time.Now())
			if !ok {
				break
			}
			sem <- struct{}{}
			go func(job model.Job) {
				defer func() { <-sem }()
				r.execute(ctx, job)
			}(job)
		}
	}
}

// execute runs one leased job to a terminal state or a retry
// re-enqueue. It blocks only inside collaborator calls, never while
// holding store locks.
func (r *Runner) execute(ctx context.Context, job model.Job) {
	logger := r.logger.With("job_id", job.ID, "url", job.URL)
	logger.Info("job started", "attempt", job.RetryCount+1)

	resolveCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Worker.ResolveTimeoutMs)*time.Millisecond)
	info, err := r.resolver.Resolve(resolveCtx, job.URL)
	cancel()
	if err != nil {
		r.handleFailure(job, err, logger)
		return
	}

	if err := r.checkConstraints(info); err != nil {
		r.handleFailure(job, err, logger)
		return
	}

	if _, err := r.store.Update(job.ID, func(j *model.Job) {
		j.Title = info.Title
	}); err != nil {
		logger.Warn("job vanished before download", "err", err)
		return
	}

	lastPublished := job.Progress
	onProgress := func(pct int) {
		// Throttle to whole-percent increments to bound event volume.
		if pct <= lastPublished {
			return
		}
		lastPublished = pct

		updated, err := r.store.Update(job.ID, func(j *model.Job) {
			if pct > j.Progress {
				j.Progress = pct
			}
		})
		if err != nil {
			return
		}
		r.bus.Publish(events.Event{
			Type:  events.TypeJobProgress,
			JobID: job.ID.String(),
			Data:  map[string]any{"progress": updated.Progress, "title": updated.Title},
		})
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Worker.DownloadTimeoutMs)*time.Millisecond)
	artifact, err := r.executor.Run(runCtx, media.DownloadRequest{
		URL:         job.URL,
		Format:      job.Format,
		Quality:     job.Quality,
		IncludeSubs: job.IncludeSubs,
		SubsLangs:   job.SubsLangs,
	}, onProgress)
	cancel()
	if err != nil {
		r.handleFailure(job, err, logger)
		return
	}

	done, err := r.store.Update(job.ID, func(j *model.Job) {
		j.Status = model.StatusCompleted
		j.Progress = 100
		j.ArtifactName = artifact
	})
	if err != nil {
		logger.Warn("completed job vanished from store", "err", err)
		return
	}

	metrics.RecordJobFinished(string(model.StatusCompleted))
	r.bus.Publish(events.Event{
		Type:  events.TypeJobDone,
		JobID: job.ID.String(),
		Data:  map[string]any{"filename": done.ArtifactName, "title": done.Title},
	})
	logger.Info("job completed", "artifact", artifact)
}

// checkConstraints enforces the duration and size ceilings against the
// resolved metadata. Violations are terminal and never retried.
func (r *Runner) checkConstraints(info *model.VideoInfo) error {
	limits := r.cfg.Limits
	if limits.MaxDurationSeconds > 0 && info.DurationSeconds > limits.MaxDurationSeconds {
		return media.Constraint(fmt.Sprintf("duration %ds exceeds limit of %ds",
			info.DurationSeconds, limits.MaxDurationSeconds))
	}
	if limits.MaxFileSizeBytes > 0 && info.SizeEstimateBytes > limits.MaxFileSizeBytes {
		return media.Constraint(fmt.Sprintf("estimated size %d bytes exceeds limit of %d bytes",
			info.SizeEstimateBytes, limits.MaxFileSizeBytes))
	}
	return nil
}

// handleFailure applies the retry policy. Transient failures re-enqueue
// the job with exponential backoff until maxRetries is exhausted;
// permanent and constraint failures go terminal immediately.
func (r *Runner) handleFailure(job model.Job, execErr error, logger *slog.Logger) {
	class := media.ClassOf(execErr)
	message := fmt.Sprintf("%s: %v", class, execErr)

	if class != media.ClassTransient {
		r.fail(job, message, logger)
		return
	}

	maxRetries := r.cfg.Worker.MaxRetries
	var retryCount int
	exhausted := false

	updated, err := r.store.Update(job.ID, func(j *model.Job) {
		j.RetryCount++
		retryCount = j.RetryCount
		if retryCount >= maxRetries {
			exhausted = true
			j.Status = model.StatusFailed
			j.Error = message
			return
		}
		j.Status = model.StatusQueued
		j.NotBefore = time.Now().Add(r.backoff(retryCount))
	})
	if err != nil {
		logger.Warn("failed job vanished from store", "err", err)
		return
	}

	metrics.RecordJobRetry()
	r.bus.Publish(events.Event{
		Type:  events.TypeJobRetry,
		JobID: job.ID.String(),
		Data:  map[string]any{"retry_count": retryCount, "error": message},
	})

	if exhausted {
		metrics.RecordJobFinished(string(model.StatusFailed))
		r.bus.Publish(events.Event{
			Type:  events.TypeJobFailed,
			JobID: job.ID.String(),
			Data:  map[string]any{"error": updated.Error, "retry_count": retryCount},
		})
		logger.Warn("job failed, retries exhausted", "retries", retryCount, "err", message)
		return
	}

	logger.Info("job re-enqueued", "retry_count", retryCount, "not_before", updated.NotBefore, "err", message)
}

// fail moves the job to terminal failed with no retry.
func (r *Runner) fail(job model.Job, message string, logger *slog.Logger) {
	updated, err := r.store.Update(job.ID, func(j *model.Job) {
		j.Status = model.StatusFailed
		j.Error = message
	})
	if err != nil {
		logger.Warn("failed job vanished from store", "err", err)
		return
	}

	metrics.RecordJobFinished(string(model.StatusFailed))
	r.bus.Publish(events.Event{
		Type:  events.TypeJobFailed,
		JobID: job.ID.String(),
		Data:  map[string]any{"error": updated.Error, "retry_count": updated.RetryCount},
	})
	logger.Warn("job failed", "err", message)
}

// backoff doubles per retry: base, 2*base, 4*base, ...
func (r *Runner) backoff(retryCount int) time.Duration {
	base := time.Duration(r.cfg.Worker.RetryBackoffMs) * time.Millisecond
	if base <= 0 {
		base = 2 * time.Second
	}
	return base << (retryCount - 1)
}
