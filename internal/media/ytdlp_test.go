package media

import (
	"encoding/json"
	"testing"
)

func TestParseProgress(t *testing.T) {
	cases := []struct {
		line string
		pct  int
		ok   bool
	}{
		{"[download]  42.5% of 10.00MiB at 1.00MiB/s ETA 00:05", 42, true},
		{"[download] 100% of 10.00MiB in 00:12", 100, true},
		{"[download]   0.1% of ~250.00MiB at 512.00KiB/s", 0, true},
		{"[download] Destination: /tmp/video.mp4", 0, false},
		{"[info] Downloading format 137", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		pct, ok := parseProgress(tc.line)
		if ok != tc.ok || pct != tc.pct {
			t.Fatalf("parseProgress(%q) = %d, %v; want %d, %v", tc.line, pct, ok, tc.pct, tc.ok)
		}
	}
}

func TestFormatSelector(t *testing.T) {
	if got := formatSelector("720"); got != "bestvideo[height<=720]+bestaudio/best[height<=720]" {
		t.Fatalf("unexpected selector for 720: %s", got)
	}
	// Unknown qualities fall through to best.
	if formatSelector("4k") != formatSelector("best") {
		t.Fatal("unknown quality should fall back to the best selector")
	}
}

func TestAvailableSubtitles(t *testing.T) {
	raw := json.RawMessage(`[]`)
	info := probeInfo{
		Subtitles:         map[string]json.RawMessage{"en": raw, "de": raw},
		AutomaticCaptions: map[string]json.RawMessage{"en": raw, "fr": raw},
	}

	subs := availableSubtitles(info)
	if len(subs) != 3 {
		t.Fatalf("expected 3 languages, got %v", subs)
	}
	if en := subs["en"]; !en.Manual || !en.Automatic {
		t.Fatalf("en should be manual and automatic, got %+v", en)
	}
	if de := subs["de"]; !de.Manual || de.Automatic {
		t.Fatalf("de should be manual only, got %+v", de)
	}
	if fr := subs["fr"]; fr.Manual || !fr.Automatic {
		t.Fatalf("fr should be automatic only, got %+v", fr)
	}
}

func TestSubtitleArgs(t *testing.T) {
	if args := subtitleArgs(DownloadRequest{}); args != nil {
		t.Fatalf("expected no args without include_subs, got %v", args)
	}

	args := subtitleArgs(DownloadRequest{IncludeSubs: true})
	if len(args) != 2 || args[0] != "--write-subs" || args[1] != "--write-auto-subs" {
		t.Fatalf("unexpected args: %v", args)
	}

	args = subtitleArgs(DownloadRequest{IncludeSubs: true, SubsLangs: []string{"en", "de"}})
	if len(args) != 4 || args[2] != "--sub-langs" || args[3] != "en,de" {
		t.Fatalf("unexpected args with langs: %v", args)
	}
}

func TestAvailableHeights(t *testing.T) {
	info := probeInfo{
		Formats: []struct {
			Height int    `json:"height"`
			Vcodec string `json:"vcodec"`
		}{
			{Height: 720, Vcodec: "avc1"},
			{Height: 1080, Vcodec: "avc1"},
			{Height: 720, Vcodec: "vp9"},
			{Height: 0, Vcodec: "avc1"},
			{Height: 360, Vcodec: "none"},
		},
	}

	got := availableHeights(info)
	want := []string{"1080", "720"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
