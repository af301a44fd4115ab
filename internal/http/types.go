package http

import (
	"time"

	"snatch/internal/model"
)

// JobView is the wire representation of a job.
type JobView struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Format     string    `json:"format"`
	Quality    string    `json:"quality"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Title      string    `json:"title,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Error      string    `json:"error,omitempty"`
}

func jobView(job model.Job) JobView {
	return JobView{
		ID:         job.ID.String(),
		URL:        job.URL,
		Format:     job.Format,
		Quality:    job.Quality,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Title:      job.Title,
		Filename:   job.ArtifactName,
		RetryCount: job.RetryCount,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		Error:      job.Error,
	}
}

// EnqueueItem is one requested download in a batch.
type EnqueueItem struct {
	URL         string   `json:"url"`
	Format      string   `json:"format,omitempty"`
	Quality     string   `json:"quality,omitempty"`
	IncludeSubs bool     `json:"include_subs,omitempty"`
	SubsLangs   []string `json:"subs_langs,omitempty"`
}

// EnqueueRequest accepts either a batch of items or the historical
// single-URL form, optionally expanding a playlist URL into one job per
// entry.
type EnqueueRequest struct {
	Items          []EnqueueItem `json:"items,omitempty"`
	URL            string        `json:"url,omitempty"`
	Format         string        `json:"format,omitempty"`
	Quality        string        `json:"quality,omitempty"`
	IncludeSubs    bool          `json:"include_subs,omitempty"`
	SubsLangs      []string      `json:"subs_langs,omitempty"`
	ExpandPlaylist bool          `json:"expand_playlist,omitempty"`
}

// ItemErrorView reports a rejected batch item by its index.
type ItemErrorView struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type EnqueueResponse struct {
	Success bool            `json:"success"`
	JobIDs  []string        `json:"job_ids,omitempty"`
	Errors  []ItemErrorView `json:"errors,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

type JobResponse struct {
	Success bool     `json:"success"`
	Job     *JobView `json:"job,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type ClearResponse struct {
	Success bool `json:"success"`
	Cleared int  `json:"cleared"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type VideoInfoRequest struct {
	URL string `json:"url"`
}

type VideoInfoResponse struct {
	Success bool             `json:"success"`
	Data    *model.VideoInfo `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type ExpandRequest struct {
	URL string `json:"url"`
}

type SubtitlesRequest struct {
	URL string `json:"url"`
}

type SubtitlesResponse struct {
	Success   bool                                  `json:"success"`
	Subtitles map[string]model.SubtitleAvailability `json:"subtitles,omitempty"`
	Error     string                                `json:"error,omitempty"`
}

type DownloadSubtitlesRequest struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}

type DownloadSubtitlesResponse struct {
	Success     bool   `json:"success"`
	File        string `json:"file,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ExpandResponse struct {
	Success bool                  `json:"success"`
	Entries []model.PlaylistEntry `json:"entries,omitempty"`
	Error   string                `json:"error,omitempty"`
}
