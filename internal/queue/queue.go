// Package queue is the public orchestration API over the job store and
// event bus: enqueue, query, clear.
package queue

import (
	"log/slog"

	"github.com/google/uuid"

	"snatch/internal/events"
	"snatch/internal/metrics"
	"snatch/internal/model"
	"snatch/internal/store"
)

// ItemError reports why one item of a batch enqueue was rejected.
type ItemError struct {
	Index int
	Err   error
}

// Manager validates and records new jobs, then leaves execution to the
// worker pool, which claims queued jobs straight from the store.
type Manager struct {
	store  *store.Store
	bus    *events.Bus
	logger *slog.Logger
}

func NewManager(st *store.Store, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{store: st, bus: bus, logger: logger}
}

// Enqueue creates a job per valid spec and publishes job_enqueued for
// each. The batch is not atomic: invalid items are reported per-index
// and the rest proceed. The announcement is published before the job
// becomes claimable, so job_enqueued always precedes worker events.
func (m *Manager) Enqueue(specs []model.JobSpec) ([]model.Job, []ItemError) {
	var created []model.Job
	var rejected []ItemError

	for i, spec := range specs {
		job, err := m.store.CreateAnnounced(normalize(spec), func(job model.Job) {
			metrics.RecordJobEnqueued()
			m.bus.Publish(events.Event{
				Type:  events.TypeJobEnqueued,
				JobID: job.ID.String(),
				Data:  map[string]any{"url": job.URL, "format": job.Format, "quality": job.Quality},
			})
		})
		if err != nil {
			rejected = append(rejected, ItemError{Index: i, Err: err})
			continue
		}

		if m.logger != nil {
			m.logger.Info("job enqueued", "job_id", job.ID, "url", job.URL, "format", job.Format)
		}
		created = append(created, job)
	}

	return created, rejected
}

// Status returns the current job record or store.ErrNotFound.
func (m *Manager) Status(id uuid.UUID) (model.Job, error) {
	return m.store.Get(id)
}

// List returns every job ordered by creation time, for dashboards.
func (m *Manager) List() []model.Job {
	return m.store.List(model.JobFilter{})
}

// ClearCompleted drops all terminal job records. Artifacts on disk are
// untouched; the retention sweeper owns those.
func (m *Manager) ClearCompleted() int {
	n := m.store.ClearCompleted()
	if n > 0 && m.logger != nil {
		m.logger.Info("cleared terminal jobs", "count", n)
	}
	return n
}

// normalize fills the historical defaults for omitted fields before
// validation.
func normalize(spec model.JobSpec) model.JobSpec {
	if spec.Format == "" {
		spec.Format = "mp4"
	}
	if spec.Quality == "" {
		spec.Quality = "best"
	}
	return spec
}
