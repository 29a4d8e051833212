// Package metrics exposes Prometheus instrumentation for crawling, transcript
// enrichment, ranking and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Crawl metrics
	CrawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soup_crawls_total",
			Help: "Total number of source crawls by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: "profile", "feed"
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soup_crawl_duration_seconds",
			Help:    "Duration of a single source crawl in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ContentMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soup_content_mutations_total",
			Help: "Total number of content item inserts, updates and deletes",
		},
		[]string{"operation"}, // "insert", "update", "delete"
	)

	ItemsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soup_items_filtered_total",
			Help: "Total number of feed items excluded by source filters or the long-form policy",
		},
	)

	// Transcript metrics
	TranscriptLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soup_transcript_lookups_total",
			Help: "Total number of transcript lookups by outcome",
		},
		[]string{"outcome"}, // "found", "missing"
	)

	// Ranking metrics
	ServeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soup_serve_requests_total",
			Help: "Total number of ranking requests by inferred behavior and intent",
		},
		[]string{"behavior", "intent"},
	)

	ServeThinCoverage = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soup_serve_thin_coverage_total",
			Help: "Total number of ranking requests that returned thin coverage",
		},
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soup_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// Task queue metrics
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soup_tasks_total",
			Help: "Total number of executed scheduler tasks by type and outcome",
		},
		[]string{"type", "outcome"}, // outcome: "completed", "failed"
	)

	TaskQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soup_task_queue_depth",
			Help: "Current number of tasks waiting in the queue",
		},
	)
)

func RecordCrawl(kind, status string, duration time.Duration) {
	CrawlsTotal.WithLabelValues(kind, status).Inc()
	CrawlDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordMutations(inserted, updated, deleted int) {
	if inserted > 0 {
		ContentMutations.WithLabelValues("insert").Add(float64(inserted))
	}
	if updated > 0 {
		ContentMutations.WithLabelValues("update").Add(float64(updated))
	}
	if deleted > 0 {
		ContentMutations.WithLabelValues("delete").Add(float64(deleted))
	}
}

func RecordTranscriptLookup(found bool) {
	if found {
		TranscriptLookups.WithLabelValues("found").Inc()
		return
	}
	TranscriptLookups.WithLabelValues("missing").Inc()
}

func RecordServe(behavior, intent string, thin bool) {
	ServeRequests.WithLabelValues(behavior, intent).Inc()
	if thin {
		ServeThinCoverage.Inc()
	}
}

func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}

func RecordTask(taskType string, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	TasksTotal.WithLabelValues(taskType, outcome).Inc()
}
