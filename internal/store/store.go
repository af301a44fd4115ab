package store

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"snatch/internal/model"
)

// ErrNotFound is returned when a job id does not exist (any more).
var ErrNotFound = errors.New("job not found")

// ErrNotTerminal is returned when deleting a job that is still queued
// or running.
var ErrNotTerminal = errors.New("job is not in a terminal state")

// ErrInvalidSpec wraps all enqueue validation failures.
var ErrInvalidSpec = errors.New("invalid job spec")

// Options controls spec validation at create time.
type Options struct {
	AllowedFormats   []string
	AllowedQualities []string
	// AllowedHosts restricts source URLs by hostname suffix. Empty
	// means any http(s) host is accepted.
	AllowedHosts []string
}

// Store is the concurrency-safe, in-memory source of truth for jobs.
// All accessors copy job values in and out; callers never observe a
// partially updated record.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*record
	seq  uint64
	opts Options
}

// record pairs a job with its insertion sequence so List and Claim stay
// deterministic even when CreatedAt timestamps collide.
type record struct {
	job model.Job
	seq uint64
}

// New creates an empty store with the given validation options.
func New(opts Options) *Store {
	return &Store{
		jobs: make(map[uuid.UUID]*record),
		opts: opts,
	}
}

// Create validates the spec and allocates a new queued job with a fresh
// id. The returned job is a copy.
func (s *Store) Create(spec model.JobSpec) (model.Job, error) {
	return s.CreateAnnounced(spec, nil)
}

// CreateAnnounced is Create with an announcement hook: announce runs on
// the validated job before it becomes visible to Claim, so the caller's
// enqueue notification always precedes any worker event for the job.
func (s *Store) CreateAnnounced(spec model.JobSpec, announce func(model.Job)) (model.Job, error) {
	if err := s.validate(spec); err != nil {
		return model.Job{}, err
	}

	now := time.Now().UTC()
	job := model.Job{
		ID:          uuid.New(),
		URL:         spec.URL,
		Format:      spec.Format,
		Quality:     spec.Quality,
		IncludeSubs: spec.IncludeSubs,
		SubsLangs:   append([]string(nil), spec.SubsLangs...),
		Status:      model.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if announce != nil {
		announce(job)
	}

	s.mu.Lock()
	s.seq++
	s.jobs[job.ID] = &record{job: job, seq: s.seq}
	s.mu.Unlock()

	return job, nil
}

// Get returns a copy of the job or ErrNotFound.
func (s *Store) Get(id uuid.UUID) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return rec.job, nil
}

// List returns jobs matching the filter ordered by creation time
// ascending (insertion order breaks ties). Jobs are copied out under
// the lock; the result is a consistent snapshot.
func (s *Store) List(filter model.JobFilter) []model.Job {
	s.mu.RLock()
	recs := make([]record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if filter.Status != "" && rec.job.Status != filter.Status {
			continue
		}
		recs = append(recs, *rec)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]model.Job, len(recs))
	for i, rec := range recs {
		out[i] = rec.job
	}
	return out
}

// Update atomically applies the mutator to the job and bumps UpdatedAt.
// Returns the updated copy, or ErrNotFound if the job was swept.
func (s *Store) Update(id uuid.UUID, mutate func(*model.Job)) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	mutate(&rec.job)
	rec.job.UpdatedAt = time.Now().UTC()
	return rec.job, nil
}

// Delete removes a terminal job. Queued and running jobs are protected;
// only the sweeper and clear operations call this.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !rec.job.Status.IsTerminal() {
		return ErrNotTerminal
	}
	delete(s.jobs, id)
	return nil
}

// Claim atomically picks the oldest queued job whose NotBefore has
// elapsed and transitions it to running, granting the caller the
// exclusive execution lease. ok is false when nothing is due.
func (s *Store) Claim(now time.Time) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *record
	for _, rec := range s.jobs {
		if rec.job.Status != model.StatusQueued {
			continue
		}
		if rec.job.NotBefore.After(now) {
			continue
		}
		if oldest == nil || rec.seq < oldest.seq {
			oldest = rec
		}
	}
	if oldest == nil {
		return model.Job{}, false
	}

	oldest.job.Status = model.StatusRunning
	oldest.job.UpdatedAt = now.UTC()
	return oldest.job, true
}

// ClearCompleted deletes every terminal job and reports how many were
// removed. On-disk artifacts are left for the retention sweeper.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, rec := range s.jobs {
		if rec.job.Status.IsTerminal() {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

func (s *Store) validate(spec model.JobSpec) error {
	if strings.TrimSpace(spec.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidSpec)
	}
	u, err := url.Parse(spec.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be a valid http(s) URL", ErrInvalidSpec)
	}
	if len(s.opts.AllowedHosts) > 0 && !hostAllowed(u.Hostname(), s.opts.AllowedHosts) {
		return fmt.Errorf("%w: host %q is not supported", ErrInvalidSpec, u.Hostname())
	}
	if !contains(s.opts.AllowedFormats, spec.Format) {
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidSpec, spec.Format)
	}
	if !contains(s.opts.AllowedQualities, spec.Quality) {
		return fmt.Errorf("%w: unsupported quality %q", ErrInvalidSpec, spec.Quality)
	}
	return nil
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, a := range allowed {
		a = strings.ToLower(a)
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
