package http

import (
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"video.mp4", true},
		{"My Song (live).mp3", true},
		{"", false},
		{"../secret", false},
		{"a/b.mp4", false},
		{"a\\b.mp4", false},
		{"evil\x00.mp4", false},
	}

	for _, tc := range cases {
		if got := safeFilename(tc.name); got != tc.ok {
			t.Fatalf("safeFilename(%q) = %v, want %v", tc.name, got, tc.ok)
		}
	}
}

func TestFileDownload(t *testing.T) {
	app, _, cfg := newTestApp(t)

	if err := os.WriteFile(filepath.Join(cfg.Downloads.Dir, "clip.mp4"), []byte("video-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/clip.mp4", nil), -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil || mediaType != "attachment" || params["filename"] != "clip.mp4" {
		t.Fatalf("unexpected Content-Disposition: %q (err %v)", resp.Header.Get("Content-Disposition"), err)
	}
	payload, _ := io.ReadAll(resp.Body)
	if string(payload) != "video-bytes" {
		t.Fatalf("unexpected body: %q", payload)
	}
}

func TestFileDownloadEscapesQuotedFilename(t *testing.T) {
	app, _, cfg := newTestApp(t)

	// yt-dlp titles can contain quotes; the disposition header must
	// still parse with the exact name round-tripped.
	name := `My "Best" Clip.mp4`
	if err := os.WriteFile(filepath.Join(cfg.Downloads.Dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/"+url.PathEscape(name), nil), -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("disposition header does not parse: %q (%v)", resp.Header.Get("Content-Disposition"), err)
	}
	if mediaType != "attachment" || params["filename"] != name {
		t.Fatalf("filename did not round-trip: %+v", params)
	}
}

func TestFileDownloadRejectsPathEscape(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/%2e%2e%2fsecret", nil), -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for traversal attempt, got %d", resp.StatusCode)
	}
}

func TestFileDownloadUnknownFile(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/missing.mp4", nil), -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown file, got %d", resp.StatusCode)
	}
}
