// Package media wraps the external extraction/conversion tooling behind
// narrow interfaces so the worker pool never depends on how media is
// actually fetched.
package media

import (
	"context"

	"snatch/internal/model"
)

// Resolver resolves source metadata before a download starts. The
// worker uses the result for the job title and for duration/size
// ceiling checks.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*model.VideoInfo, error)
}

// DownloadRequest describes one download/conversion to execute.
type DownloadRequest struct {
	URL     string
	Format  string
	Quality string

	// IncludeSubs also writes subtitle tracks next to the media file,
	// limited to SubsLangs when non-empty.
	IncludeSubs bool
	SubsLangs   []string
}

// Executor performs one download/conversion, reporting progress as an
// integer percentage via the callback. It returns the artifact file
// name (relative to the downloads directory) on success.
type Executor interface {
	Run(ctx context.Context, req DownloadRequest, progress func(int)) (string, error)
}

// Expander turns a playlist or channel URL into its individual entries.
type Expander interface {
	Expand(ctx context.Context, url string) ([]model.PlaylistEntry, error)
}

// Subtitler lists and fetches subtitle tracks without downloading the
// media itself.
type Subtitler interface {
	ListSubtitles(ctx context.Context, url string) (map[string]model.SubtitleAvailability, error)
	FetchSubtitles(ctx context.Context, url, lang string) (string, error)
}
