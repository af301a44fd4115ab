package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"snatch/internal/model"
)

const defaultExpandTimeout = 60 * time.Second

// PlaylistExpander lists the entries of a playlist URL through the
// ytdlp library, capped at maxItems.
type PlaylistExpander struct {
	timeout  time.Duration
	maxItems int
}

// NewPlaylistExpander creates an expander returning at most maxItems
// entries per playlist.
func NewPlaylistExpander(maxItems int) *PlaylistExpander {
	if maxItems <= 0 {
		maxItems = 200
	}
	return &PlaylistExpander{
		timeout:  defaultExpandTimeout,
		maxItems: maxItems,
	}
}

// Expand resolves the playlist's individual video entries.
func (e *PlaylistExpander) Expand(ctx context.Context, rawURL string) ([]model.PlaylistEntry, error) {
	playlistID := extractPlaylistID(rawURL)
	if playlistID == "" {
		return nil, Permanent(fmt.Sprintf("no playlist id in URL %q", rawURL), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, Transient("list playlist items", err)
	}

	entries := make([]model.PlaylistEntry, 0, len(items))
	for _, it := range items {
		if len(entries) >= e.maxItems {
			break
		}
		entries = append(entries, model.PlaylistEntry{
			Title: it.Title,
			URL:   fmt.Sprintf("https://www.youtube.com/watch?v=%s", it.VideoID),
		})
	}
	return entries, nil
}

// extractPlaylistID pulls the list= parameter out of a playlist URL.
func extractPlaylistID(rawURL string) string {
	const param = "list="
	i := strings.Index(rawURL, param)
	if i < 0 {
		return ""
	}
	id := rawURL[i+len(param):]
	if j := strings.IndexByte(id, '&'); j >= 0 {
		id = id[:j]
	}
	return id
}

var _ Expander = (*PlaylistExpander)(nil)
