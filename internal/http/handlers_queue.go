package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"snatch/internal/config"
	"snatch/internal/media"
	"snatch/internal/model"
	"snatch/internal/queue"
	"snatch/internal/store"
)

// enqueueHandler accepts a batch of download requests. Invalid items
// are rejected individually; valid ones are created and reported back
// as job ids.
func enqueueHandler(c *fiber.Ctx) error {
	qm := c.Locals("queue").(*queue.Manager)

	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(EnqueueResponse{
			Success: false,
			Error:   "invalid JSON body",
		})
	}

	items := req.Items
	if len(items) == 0 && req.URL != "" {
		// Historical single-URL form.
		items = []EnqueueItem{{
			URL:         req.URL,
			Format:      req.Format,
			Quality:     req.Quality,
			IncludeSubs: req.IncludeSubs,
			SubsLangs:   req.SubsLangs,
		}}
	}
	if len(items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(EnqueueResponse{
			Success: false,
			Error:   "no items to enqueue",
		})
	}

	if req.ExpandPlaylist {
		expanded, err := expandItems(c, items)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(EnqueueResponse{
				Success: false,
				Error:   err.Error(),
			})
		}
		items = expanded
	}

	specs := make([]model.JobSpec, len(items))
	for i, item := range items {
		specs[i] = model.JobSpec{
			URL:         item.URL,
			Format:      item.Format,
			Quality:     item.Quality,
			IncludeSubs: item.IncludeSubs,
			SubsLangs:   item.SubsLangs,
		}
	}

	created, rejected := qm.Enqueue(specs)

	itemErrors := make([]ItemErrorView, 0, len(rejected))
	for _, re := range rejected {
		itemErrors = append(itemErrors, ItemErrorView{Index: re.Index, Error: re.Err.Error()})
	}

	if len(created) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(EnqueueResponse{
			Success: false,
			Error:   "no valid items to enqueue",
			Errors:  itemErrors,
		})
	}

	jobIDs := make([]string, len(created))
	for i, job := range created {
		jobIDs[i] = job.ID.String()
	}

	return c.Status(fiber.StatusCreated).JSON(EnqueueResponse{
		Success: true,
		JobIDs:  jobIDs,
		Errors:  itemErrors,
	})
}

// expandItems replaces each playlist item with one item per entry,
// inheriting format/quality from the playlist item.
func expandItems(c *fiber.Ctx, items []EnqueueItem) ([]EnqueueItem, error) {
	val := c.Locals("expander")
	expander, ok := val.(media.Expander)
	if !ok {
		return nil, errors.New("playlist expansion is not available")
	}

	var out []EnqueueItem
	for _, item := range items {
		entries, err := expander.Expand(c.Context(), item.URL)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			out = append(out, EnqueueItem{
				URL:         entry.URL,
				Format:      item.Format,
				Quality:     item.Quality,
				IncludeSubs: item.IncludeSubs,
				SubsLangs:   item.SubsLangs,
			})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no entries found in playlist")
	}
	return out, nil
}

// queueListHandler returns every job in creation order.
func queueListHandler(c *fiber.Ctx) error {
	qm := c.Locals("queue").(*queue.Manager)

	jobs := qm.List()
	views := make([]JobView, len(jobs))
	for i, job := range jobs {
		views[i] = jobView(job)
	}

	return c.JSON(QueueListResponse{Jobs: views})
}

// queueStatusHandler returns one job by id.
func queueStatusHandler(c *fiber.Ctx) error {
	qm := c.Locals("queue").(*queue.Manager)

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(JobResponse{
			Success: false,
			Error:   "invalid job id",
		})
	}

	job, err := qm.Status(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(JobResponse{
				Success: false,
				Error:   "not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(JobResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	view := jobView(job)
	return c.JSON(JobResponse{Success: true, Job: &view})
}

// clearCompletedHandler removes all terminal jobs from the store.
func clearCompletedHandler(c *fiber.Ctx) error {
	qm := c.Locals("queue").(*queue.Manager)
	return c.JSON(ClearResponse{Success: true, Cleared: qm.ClearCompleted()})
}

// videoInfoHandler resolves metadata for a URL without enqueueing.
func videoInfoHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	val := c.Locals("resolver")
	resolver, ok := val.(media.Resolver)
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(VideoInfoResponse{
			Success: false,
			Error:   "metadata resolution is not available",
		})
	}

	var req VideoInfoRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(VideoInfoResponse{
			Success: false,
			Error:   "url is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), time.Duration(cfg.Worker.ResolveTimeoutMs)*time.Millisecond)
	defer cancel()

	info, err := resolver.Resolve(ctx, req.URL)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(VideoInfoResponse{
			Success: false,
			Error:   "video unavailable",
		})
	}

	return c.JSON(VideoInfoResponse{Success: true, Data: info})
}

// expandHandler lists the entries of a playlist URL.
func expandHandler(c *fiber.Ctx) error {
	val := c.Locals("expander")
	expander, ok := val.(media.Expander)
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ExpandResponse{
			Success: false,
			Error:   "playlist expansion is not available",
		})
	}

	var req ExpandRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ExpandResponse{
			Success: false,
			Error:   "url is required",
		})
	}

	entries, err := expander.Expand(c.Context(), req.URL)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ExpandResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.JSON(ExpandResponse{Success: true, Entries: entries})
}
