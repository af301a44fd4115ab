package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the queue service.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsEnqueuedTotal int64
	jobsFinishedTotal = make(map[string]int64)
	jobRetriesTotal   int64

	eventsPublishedTotal = make(map[string]int64)
	eventsDroppedTotal   int64

	retentionJobsDeleted      int64
	retentionArtifactsDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJobEnqueued increments the counter of accepted jobs.
func RecordJobEnqueued() {
	mu.Lock()
	defer mu.Unlock()
	jobsEnqueuedTotal++
}

// RecordJobFinished increments the terminal counter for the given
// outcome ("completed" or "failed").
func RecordJobFinished(outcome string) {
	mu.Lock()
	defer mu.Unlock()
	jobsFinishedTotal[outcome]++
}

// RecordJobRetry increments the counter of retry re-enqueues.
func RecordJobRetry() {
	mu.Lock()
	defer mu.Unlock()
	jobRetriesTotal++
}

// RecordEventPublished increments the per-type event counter.
func RecordEventPublished(eventType string) {
	mu.Lock()
	defer mu.Unlock()
	eventsPublishedTotal[eventType]++
}

// RecordEventDropped increments the counter of events dropped for slow
// subscribers.
func RecordEventDropped() {
	mu.Lock()
	defer mu.Unlock()
	eventsDroppedTotal++
}

// RecordRetentionJobs increments the counter of job records deleted by
// the retention sweeper.
func RecordRetentionJobs(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted += deleted
}

// RecordRetentionArtifacts increments the counter of artifact files
// deleted by the retention sweeper.
func RecordRetentionArtifacts(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionArtifactsDeleted += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP snatch_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE snatch_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "snatch_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP snatch_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE snatch_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP snatch_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE snatch_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		fmt.Fprintf(&b, "snatch_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "snatch_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	// Job lifecycle metrics
	b.WriteString("# HELP snatch_jobs_enqueued_total Total jobs accepted into the queue\n")
	b.WriteString("# TYPE snatch_jobs_enqueued_total counter\n")
	fmt.Fprintf(&b, "snatch_jobs_enqueued_total %d\n", jobsEnqueuedTotal)

	b.WriteString("# HELP snatch_jobs_finished_total Total jobs reaching a terminal state\n")
	b.WriteString("# TYPE snatch_jobs_finished_total counter\n")

	var outcomes []string
	for o := range jobsFinishedTotal {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(&b, "snatch_jobs_finished_total{outcome=\"%s\"} %d\n", o, jobsFinishedTotal[o])
	}

	b.WriteString("# HELP snatch_job_retries_total Total retry re-enqueues\n")
	b.WriteString("# TYPE snatch_job_retries_total counter\n")
	fmt.Fprintf(&b, "snatch_job_retries_total %d\n", jobRetriesTotal)

	// Event bus metrics
	b.WriteString("# HELP snatch_events_published_total Total events published by type\n")
	b.WriteString("# TYPE snatch_events_published_total counter\n")

	var eventTypes []string
	for t := range eventsPublishedTotal {
		eventTypes = append(eventTypes, t)
	}
	sort.Strings(eventTypes)
	for _, t := range eventTypes {
		fmt.Fprintf(&b, "snatch_events_published_total{type=\"%s\"} %d\n", t, eventsPublishedTotal[t])
	}

	b.WriteString("# HELP snatch_events_dropped_total Total events dropped for slow subscribers\n")
	b.WriteString("# TYPE snatch_events_dropped_total counter\n")
	fmt.Fprintf(&b, "snatch_events_dropped_total %d\n", eventsDroppedTotal)

	// Retention metrics
	b.WriteString("# HELP snatch_retention_jobs_deleted_total Total job records deleted by retention\n")
	b.WriteString("# TYPE snatch_retention_jobs_deleted_total counter\n")
	fmt.Fprintf(&b, "snatch_retention_jobs_deleted_total %d\n", retentionJobsDeleted)

	b.WriteString("# HELP snatch_retention_artifacts_deleted_total Total artifact files deleted by retention\n")
	b.WriteString("# TYPE snatch_retention_artifacts_deleted_total counter\n")
	fmt.Fprintf(&b, "snatch_retention_artifacts_deleted_total %d\n", retentionArtifactsDeleted)

	return b.String()
}
