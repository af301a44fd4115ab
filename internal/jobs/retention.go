package jobs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"snatch/internal/config"
	"snatch/internal/metrics"
	"snatch/internal/model"
	"snatch/internal/store"
)

// SweepStats captures what one retention pass removed.
type SweepStats struct {
	JobsDeleted      int64 `json:"jobsDeleted"`
	ArtifactsDeleted int64 `json:"artifactsDeleted"`
}

// StartSweeper launches the retention loop in its own goroutine. It
// runs independently of the worker pool and stops with the context.
func StartSweeper(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) {
	if !cfg.Retention.Enabled {
		return
	}

	go func() {
		interval := time.Duration(cfg.Retention.SweepIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = 30 * time.Minute
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := SweepExpired(cfg, st, logger)
				if stats.JobsDeleted > 0 || stats.ArtifactsDeleted > 0 {
					logger.Info("retention sweep",
						"jobs_deleted", stats.JobsDeleted,
						"artifacts_deleted", stats.ArtifactsDeleted)
				}
			}
		}
	}()
}

// SweepExpired deletes artifacts and records of terminal jobs whose
// last update is older than the retention window. Deletion failures are
// logged and never abort the pass.
func SweepExpired(cfg *config.Config, st *store.Store, logger *slog.Logger) SweepStats {
	return sweepExpiredAt(time.Now().UTC(), cfg, st, logger)
}

func sweepExpiredAt(now time.Time, cfg *config.Config, st *store.Store, logger *slog.Logger) SweepStats {
	var stats SweepStats
	cutoff := now.Add(-time.Duration(cfg.Retention.WindowHours) * time.Hour)

	for _, job := range st.List(model.JobFilter{}) {
		if !job.Status.IsTerminal() || job.UpdatedAt.After(cutoff) {
			continue
		}

		if job.ArtifactName != "" {
			path := filepath.Join(cfg.Downloads.Dir, job.ArtifactName)
			switch err := os.Remove(path); {
			case err == nil:
				stats.ArtifactsDeleted++
			case os.IsNotExist(err):
				// Already gone; still safe to drop the record.
			default:
				logger.Warn("artifact delete failed, keeping job for next pass",
					"job_id", job.ID, "artifact", job.ArtifactName, "err", err)
				continue
			}
		}

		if err := st.Delete(job.ID); err != nil {
			// Cleared concurrently, or raced back out of terminal state.
			logger.Warn("job record delete failed", "job_id", job.ID, "err", err)
			continue
		}
		stats.JobsDeleted++
	}

	metrics.RecordRetentionJobs(stats.JobsDeleted)
	metrics.RecordRetentionArtifacts(stats.ArtifactsDeleted)
	return stats
}
