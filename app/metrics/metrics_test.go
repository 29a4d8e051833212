package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCrawl(t *testing.T) {
	before := testutil.ToFloat64(CrawlsTotal.WithLabelValues("feed", "unchanged"))

	RecordCrawl("feed", "unchanged", 20*time.Millisecond)
	RecordCrawl("feed", "unchanged", 30*time.Millisecond)

	after := testutil.ToFloat64(CrawlsTotal.WithLabelValues("feed", "unchanged"))
	if after-before != 2 {
		t.Errorf("Expected 2 recorded crawls, got %v", after-before)
	}
}

func TestRecordMutations(t *testing.T) {
	insertBefore := testutil.ToFloat64(ContentMutations.WithLabelValues("insert"))
	deleteBefore := testutil.ToFloat64(ContentMutations.WithLabelValues("delete"))

	RecordMutations(3, 0, 1)

	if got := testutil.ToFloat64(ContentMutations.WithLabelValues("insert")) - insertBefore; got != 3 {
		t.Errorf("Expected 3 inserts, got %v", got)
	}
	if got := testutil.ToFloat64(ContentMutations.WithLabelValues("delete")) - deleteBefore; got != 1 {
		t.Errorf("Expected 1 delete, got %v", got)
	}
}

func TestRecordTask(t *testing.T) {
	completedBefore := testutil.ToFloat64(TasksTotal.WithLabelValues("scheduled_index", "completed"))
	failedBefore := testutil.ToFloat64(TasksTotal.WithLabelValues("scheduled_index", "failed"))

	RecordTask("scheduled_index", nil)
	RecordTask("scheduled_index", errors.New("boom"))

	if got := testutil.ToFloat64(TasksTotal.WithLabelValues("scheduled_index", "completed")) - completedBefore; got != 1 {
		t.Errorf("Expected 1 completed task, got %v", got)
	}
	if got := testutil.ToFloat64(TasksTotal.WithLabelValues("scheduled_index", "failed")) - failedBefore; got != 1 {
		t.Errorf("Expected 1 failed task, got %v", got)
	}
}

func TestRecordServe(t *testing.T) {
	thinBefore := testutil.ToFloat64(ServeThinCoverage)

	RecordServe("listen", "latest", true)
	RecordServe("read", "general", false)

	if got := testutil.ToFloat64(ServeThinCoverage) - thinBefore; got != 1 {
		t.Errorf("Expected 1 thin coverage count, got %v", got)
	}
}
