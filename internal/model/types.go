package model

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a download job. Transitions
// only move forward; terminal states never regress.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transitions can occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobSpec is the caller-supplied description of a download request.
type JobSpec struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`

	// IncludeSubs asks the download to also write subtitle files,
	// limited to SubsLangs when non-empty.
	IncludeSubs bool     `json:"include_subs,omitempty"`
	SubsLangs   []string `json:"subs_langs,omitempty"`
}

// Job is a single queued unit of download/conversion work. ID, URL,
// Format and Quality are immutable after enqueue; the execution fields
// (Status, Progress, Title, ArtifactName, Error, RetryCount, NotBefore)
// are mutated only by the worker holding the job's lease.
type Job struct {
	ID           uuid.UUID
	URL          string
	Format       string
	Quality      string
	IncludeSubs  bool
	SubsLangs    []string
	Status       Status
	Progress     int
	Title        string
	ArtifactName string
	Error        string
	RetryCount   int

	// NotBefore defers execution of a re-enqueued job until the retry
	// backoff has elapsed. Zero means runnable immediately.
	NotBefore time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobFilter narrows List results. Zero values match everything.
type JobFilter struct {
	Status Status
}

// VideoInfo is the metadata resolved for a source URL before download.
type VideoInfo struct {
	Title              string   `json:"title"`
	DurationSeconds    int64    `json:"duration"`
	SizeEstimateBytes  int64    `json:"size_estimate"`
	ThumbnailURL       string   `json:"thumbnail_url,omitempty"`
	Channel            string   `json:"channel_name,omitempty"`
	AvailableQualities []string `json:"available_qualities,omitempty"`
}

// PlaylistEntry is one item of an expanded playlist or channel URL.
type PlaylistEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SubtitleAvailability says how a subtitle track for one language can
// be obtained: uploaded by the creator, machine-generated, or both.
type SubtitleAvailability struct {
	Manual    bool `json:"manual,omitempty"`
	Automatic bool `json:"automatic,omitempty"`
}
