package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"snatch/internal/config"
	"snatch/internal/events"
	"snatch/internal/media"
	"snatch/internal/model"
	"snatch/internal/queue"
	"snatch/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Store, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		Downloads: config.DownloadsConfig{Dir: t.TempDir()},
		Worker:    config.WorkerConfig{ResolveTimeoutMs: 1000},
	}
	st := store.New(store.Options{
		AllowedFormats:   []string{"mp4", "mp3"},
		AllowedQualities: []string{"best", "720"},
	})
	bus := events.NewBus(16)
	qm := queue.NewManager(st, bus, nil)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("queue", qm)
		c.Locals("bus", bus)
		return c.Next()
	})

	noop := func(c *fiber.Ctx) error { return c.Next() }
	registerRoutes(app, noop)

	return app, st, cfg
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestEnqueueBatch(t *testing.T) {
	app, st, _ := newTestApp(t)

	resp := postJSON(t, app, "/queue", EnqueueRequest{
		Items: []EnqueueItem{
			{URL: "https://example.com/a", Format: "mp4", Quality: "best"},
			{URL: "not a url"},
			{URL: "https://example.com/b", Format: "mp3"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	body := decode[EnqueueResponse](t, resp)
	if !body.Success || len(body.JobIDs) != 2 {
		t.Fatalf("expected 2 job ids, got %+v", body)
	}
	if len(body.Errors) != 1 || body.Errors[0].Index != 1 {
		t.Fatalf("expected rejection at index 1, got %+v", body.Errors)
	}

	if got := len(st.List(model.JobFilter{})); got != 2 {
		t.Fatalf("expected 2 jobs persisted, got %d", got)
	}
}

func TestEnqueueSingleURLForm(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := postJSON(t, app, "/queue", map[string]string{"url": "https://example.com/v"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	body := decode[EnqueueResponse](t, resp)
	if len(body.JobIDs) != 1 {
		t.Fatalf("expected 1 job id, got %+v", body)
	}
}

func TestEnqueueRejectsInvalidBodies(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", resp.StatusCode)
	}

	// Empty request: nothing to enqueue.
	resp = postJSON(t, app, "/queue", EnqueueRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty request, got %d", resp.StatusCode)
	}

	// All items invalid: 400 with per-item errors.
	resp = postJSON(t, app, "/queue", EnqueueRequest{
		Items: []EnqueueItem{{URL: ""}, {URL: "ftp://example.com/v"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 when no item is valid, got %d", resp.StatusCode)
	}
	body := decode[EnqueueResponse](t, resp)
	if len(body.Errors) != 2 {
		t.Fatalf("expected 2 item errors, got %+v", body)
	}
}

func TestQueueListAndStatus(t *testing.T) {
	app, st, _ := newTestApp(t)

	job, err := st.Create(model.JobSpec{URL: "https://example.com/v", Format: "mp4", Quality: "best"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/queue", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	list := decode[QueueListResponse](t, resp)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != job.ID.String() {
		t.Fatalf("unexpected list: %+v", list)
	}

	req = httptest.NewRequest(http.MethodGet, "/queue/"+job.ID.String(), nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	detail := decode[JobResponse](t, resp)
	if detail.Job == nil || detail.Job.Status != string(model.StatusQueued) {
		t.Fatalf("unexpected job detail: %+v", detail)
	}
}

func TestQueueStatusErrors(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/queue/not-a-uuid", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/queue/"+uuid.New().String(), nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.StatusCode)
	}
}

func TestClearCompletedEndpoint(t *testing.T) {
	app, st, _ := newTestApp(t)

	job, _ := st.Create(model.JobSpec{URL: "https://example.com/v", Format: "mp4", Quality: "best"})
	st.Update(job.ID, func(j *model.Job) { j.Status = model.StatusCompleted })

	req := httptest.NewRequest(http.MethodDelete, "/queue/completed", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[ClearResponse](t, resp)
	if body.Cleared != 1 {
		t.Fatalf("expected 1 cleared, got %+v", body)
	}
}

type stubResolver struct {
	info *model.VideoInfo
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, url string) (*model.VideoInfo, error) {
	return s.info, s.err
}

func TestVideoInfoEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	// No resolver wired: 503.
	resp := postJSON(t, app, "/video-info", VideoInfoRequest{URL: "https://example.com/v"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without resolver, got %d", resp.StatusCode)
	}
}

func TestVideoInfoWithResolver(t *testing.T) {
	app, _, _ := newTestApp(t)

	var resolver media.Resolver = &stubResolver{info: &model.VideoInfo{Title: "clip", DurationSeconds: 60}}
	app.Post("/video-info-stub", func(c *fiber.Ctx) error {
		c.Locals("resolver", resolver)
		return videoInfoHandler(c)
	})

	resp := postJSON(t, app, "/video-info-stub", VideoInfoRequest{URL: "https://example.com/v"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[VideoInfoResponse](t, resp)
	if body.Data == nil || body.Data.Title != "clip" {
		t.Fatalf("unexpected video info: %+v", body)
	}
}
