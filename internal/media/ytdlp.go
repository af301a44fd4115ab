package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"snatch/internal/model"
)

// Tool drives the yt-dlp binary. Metadata resolution and downloads are
// separate invocations so the duration/size ceilings can be enforced
// before any bytes move.
type Tool struct {
	binary      string
	downloadDir string
	logger      *slog.Logger
}

// NewTool creates a Tool writing artifacts into downloadDir. An empty
// binary falls back to "yt-dlp" on PATH.
func NewTool(binary, downloadDir string, logger *slog.Logger) *Tool {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Tool{binary: binary, downloadDir: downloadDir, logger: logger}
}

// probeInfo is the subset of yt-dlp --dump-json output we consume.
type probeInfo struct {
	Title          string `json:"title"`
	Duration       int64  `json:"duration"`
	Filesize       int64  `json:"filesize"`
	FilesizeApprox int64  `json:"filesize_approx"`
	Thumbnail      string `json:"thumbnail"`
	Channel        string `json:"channel"`
	Formats        []struct {
		Height int    `json:"height"`
		Vcodec string `json:"vcodec"`
	} `json:"formats"`
	Subtitles         map[string]json.RawMessage `json:"subtitles"`
	AutomaticCaptions map[string]json.RawMessage `json:"automatic_captions"`
}

// Resolve fetches metadata without downloading.
func (t *Tool) Resolve(ctx context.Context, url string) (*model.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, t.binary,
		"--dump-json",
		"--no-warnings",
		"--skip-download",
		url,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, classifyToolFailure(err, stderr.String())
	}

	var info probeInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, Transient("unparsable metadata output", err)
	}

	size := info.Filesize
	if size == 0 {
		size = info.FilesizeApprox
	}

	return &model.VideoInfo{
		Title:              info.Title,
		DurationSeconds:    info.Duration,
		SizeEstimateBytes:  size,
		ThumbnailURL:       info.Thumbnail,
		Channel:            info.Channel,
		AvailableQualities: availableHeights(info),
	}, nil
}

func availableHeights(info probeInfo) []string {
	seen := map[int]struct{}{}
	var heights []int
	for _, f := range info.Formats {
		if f.Vcodec == "none" || f.Height == 0 {
			continue
		}
		if _, ok := seen[f.Height]; ok {
			continue
		}
		seen[f.Height] = struct{}{}
		heights = append(heights, f.Height)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))

	out := make([]string, 0, len(heights))
	for _, h := range heights {
		out = append(out, strconv.Itoa(h))
	}
	return out
}

// Run downloads into an isolated temp dir and moves the artifact into
// the downloads dir on success, so partial downloads never land next to
// completed ones.
func (t *Tool) Run(ctx context.Context, req DownloadRequest, progress func(int)) (string, error) {
	tempDir, err := os.MkdirTemp("", "snatch-job-*")
	if err != nil {
		return "", Transient("create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	args := []string{
		"-o", filepath.Join(tempDir, "%(title)s.%(ext)s"),
		"--newline",
		"--no-warnings",
		"--no-playlist",
	}
	if req.Format == "mp3" {
		args = append(args, "-f", "bestaudio/best", "-x", "--audio-format", "mp3")
	} else {
		args = append(args, "-f", formatSelector(req.Quality), "--merge-output-format", "mp4")
	}
	args = append(args, subtitleArgs(req)...)
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, t.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", Transient("attach stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return "", Transient("start tool", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if pct, ok := parseProgress(scanner.Text()); ok && progress != nil {
			progress(pct)
		}
	}

	if err := cmd.Wait(); err != nil {
		return "", classifyToolFailure(err, stderr.String())
	}

	name, err := t.collectArtifact(tempDir)
	if err != nil {
		return "", err
	}
	if progress != nil {
		progress(100)
	}
	return name, nil
}

// ListSubtitles reports which subtitle languages exist for the URL and
// whether each is creator-uploaded, machine-generated, or both.
func (t *Tool) ListSubtitles(ctx context.Context, url string) (map[string]model.SubtitleAvailability, error) {
	cmd := exec.CommandContext(ctx, t.binary,
		"--dump-json",
		"--no-warnings",
		"--skip-download",
		url,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, classifyToolFailure(err, stderr.String())
	}

	var info probeInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, Transient("unparsable metadata output", err)
	}
	return availableSubtitles(info), nil
}

func availableSubtitles(info probeInfo) map[string]model.SubtitleAvailability {
	subs := make(map[string]model.SubtitleAvailability)
	for lang := range info.Subtitles {
		subs[lang] = model.SubtitleAvailability{Manual: true}
	}
	for lang := range info.AutomaticCaptions {
		entry := subs[lang]
		entry.Automatic = true
		subs[lang] = entry
	}
	return subs
}

// FetchSubtitles writes the subtitle track for one language into the
// downloads dir without fetching the media, returning the file name.
func (t *Tool) FetchSubtitles(ctx context.Context, url, lang string) (string, error) {
	tempDir, err := os.MkdirTemp("", "snatch-subs-*")
	if err != nil {
		return "", Transient("create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	cmd := exec.CommandContext(ctx, t.binary,
		"-o", filepath.Join(tempDir, "%(title)s.%(ext)s"),
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--sub-langs", lang,
		url,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", classifyToolFailure(err, stderr.String())
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return "", Transient("read temp dir", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".vtt") && !strings.HasSuffix(name, ".srt") {
			continue
		}
		if err := t.moveToDownloads(filepath.Join(tempDir, name), name); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", Permanent(fmt.Sprintf("no %s subtitle track was written", lang), nil)
}

// subtitleArgs translates the optional subtitle request into yt-dlp
// flags alongside the media download.
func subtitleArgs(req DownloadRequest) []string {
	if !req.IncludeSubs {
		return nil
	}
	args := []string{"--write-subs", "--write-auto-subs"}
	if len(req.SubsLangs) > 0 {
		args = append(args, "--sub-langs", strings.Join(req.SubsLangs, ","))
	}
	return args
}

// quality ceilings for mp4 downloads; anything else falls through to
// best available.
var qualitySelectors = map[string]string{
	"1080": "bestvideo[height<=1080]+bestaudio/best[height<=1080]",
	"720":  "bestvideo[height<=720]+bestaudio/best[height<=720]",
	"360":  "bestvideo[height<=360]+bestaudio/best[height<=360]",
	"best": "bestvideo+bestaudio/best",
}

func formatSelector(quality string) string {
	if sel, ok := qualitySelectors[quality]; ok {
		return sel
	}
	return qualitySelectors["best"]
}

// parseProgress extracts the percentage from yt-dlp --newline output,
// e.g. "[download]  42.5% of 10.00MiB at 1.00MiB/s ETA 00:05".
func parseProgress(line string) (int, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	fields := strings.Fields(line)
	for _, f := range fields[1:] {
		if !strings.HasSuffix(f, "%") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
		if err != nil {
			return 0, false
		}
		pct := int(v)
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return pct, true
	}
	return 0, false
}

// collectArtifact moves everything the tool wrote out of the temp dir
// and returns the media file's base name. Companion files (subtitle
// tracks) move along with it; leftover fragments are skipped.
func (t *Tool) collectArtifact(tempDir string) (string, error) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return "", Transient("read temp dir", err)
	}

	var name string
	var size int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if err := t.moveToDownloads(filepath.Join(tempDir, entry.Name()), entry.Name()); err != nil {
			return "", err
		}
		// The largest file is the media; merge leftovers and subtitle
		// tracks are smaller.
		if name == "" || info.Size() > size {
			name = entry.Name()
			size = info.Size()
		}
	}
	if name == "" {
		return "", Permanent("tool produced no output file", nil)
	}

	if t.logger != nil {
		t.logger.Info("artifact stored", "name", name, "bytes", size)
	}
	return name, nil
}

// moveToDownloads renames src into the downloads dir, falling back to a
// copy when the temp dir sits on another filesystem.
func (t *Tool) moveToDownloads(src, name string) error {
	if err := os.MkdirAll(t.downloadDir, 0o755); err != nil {
		return Transient("create downloads dir", err)
	}
	dst := filepath.Join(t.downloadDir, name)
	if err := os.Rename(src, dst); err != nil {
		if err := copyFile(src, dst); err != nil {
			return Transient("move artifact", err)
		}
		os.Remove(src)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Ensure Tool satisfies the collaborator interfaces.
var (
	_ Resolver  = (*Tool)(nil)
	_ Executor  = (*Tool)(nil)
	_ Subtitler = (*Tool)(nil)
)
