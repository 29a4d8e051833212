package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/ingest"
	"github.com/lysyi3m/rss-soup/app/transcript"
)

type mockIndexer struct {
	mu        sync.Mutex
	running   atomic.Int32
	overlap   atomic.Bool
	profiles  []string
	consumers []string
	limits    []int
	scheduled int
	delay     time.Duration
	status    database.CrawlStatus
}

func (m *mockIndexer) enter() {
	if m.running.Add(1) > 1 {
		m.overlap.Store(true)
	}
	time.Sleep(m.delay)
}

func (m *mockIndexer) leave() {
	m.running.Add(-1)
}

func (m *mockIndexer) IndexProfileSource(ctx context.Context, siteURL string) ingest.IndexResult {
	m.enter()
	defer m.leave()

	m.mu.Lock()
	m.profiles = append(m.profiles, siteURL)
	m.mu.Unlock()

	status := m.status
	if status == "" {
		status = database.CrawlStatusSuccess
	}
	result := ingest.IndexResult{SourceURL: siteURL, Status: status}
	if status == database.CrawlStatusFailed {
		result.Error = "network error: HTTP 503"
	}
	return result
}

func (m *mockIndexer) IndexSources(ctx context.Context, consumer string, limit int) (*ingest.SourcesResult, error) {
	m.enter()
	defer m.leave()

	m.mu.Lock()
	m.consumers = append(m.consumers, consumer)
	m.limits = append(m.limits, limit)
	m.mu.Unlock()

	return &ingest.SourcesResult{Consumer: consumer, FeedsIndexed: 2, ItemsIndexed: 5}, nil
}

func (m *mockIndexer) RunScheduledIndex(ctx context.Context) ([]ingest.IndexResult, error) {
	m.enter()
	defer m.leave()

	m.mu.Lock()
	m.scheduled++
	m.mu.Unlock()

	return []ingest.IndexResult{{Status: database.CrawlStatusSuccess}, {Status: database.CrawlStatusUnchanged}}, nil
}

type mockEnricher struct {
	limits []int
}

func (m *mockEnricher) Run(ctx context.Context, limit int) (transcript.EnrichResult, error) {
	m.limits = append(m.limits, limit)
	return transcript.EnrichResult{Checked: 3, Found: 1}, nil
}

// blockingTask holds the worker until release is closed.
type blockingTask struct {
	Task
	started chan struct{}
	release chan struct{}
}

func newBlockingTask() *blockingTask {
	return &blockingTask{
		Task:    NewTask(TaskTypeScheduledIndex, "block"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (t *blockingTask) Execute(ctx context.Context) error {
	close(t.started)
	<-t.release
	return nil
}

func startScheduler(t *testing.T, indexer Indexer, enricher Enricher) *Scheduler {
	t.Helper()

	s := NewScheduler(indexer, enricher, Options{LimitPerFeed: 20, TranscriptBatch: 10})
	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestRunTask_IndexProfile(t *testing.T) {
	indexer := &mockIndexer{}
	s := startScheduler(t, indexer, nil)

	task := NewIndexProfileTask("https://alice.me3.app", indexer)
	if err := s.RunTask(context.Background(), task); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if task.Result.Status != database.CrawlStatusSuccess {
		t.Errorf("Expected success result, got %s", task.Result.Status)
	}
	if len(indexer.profiles) != 1 || indexer.profiles[0] != "https://alice.me3.app" {
		t.Errorf("Expected profile to be indexed once, got %v", indexer.profiles)
	}
	if task.StartedAt == nil {
		t.Error("Expected task start time to be recorded")
	}
}

func TestRunTask_FailedCrawl(t *testing.T) {
	indexer := &mockIndexer{status: database.CrawlStatusFailed}
	s := startScheduler(t, indexer, nil)

	task := NewIndexProfileTask("https://down.example.com", indexer)
	err := s.RunTask(context.Background(), task)
	if !errors.Is(err, ErrCrawlFailed) || !strings.Contains(err.Error(), "network error: HTTP 503") {
		t.Errorf("Expected crawl error to surface, got %v", err)
	}
	if task.Result.Status != database.CrawlStatusFailed {
		t.Errorf("Expected failed result, got %s", task.Result.Status)
	}
	if len(indexer.profiles) != 1 {
		t.Errorf("Expected exactly one attempt without retry, got %d", len(indexer.profiles))
	}
}

func TestRefreshSources(t *testing.T) {
	indexer := &mockIndexer{}
	s := startScheduler(t, indexer, nil)

	if err := s.RefreshSources(context.Background(), "alice"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(indexer.consumers) != 1 || indexer.consumers[0] != "alice" {
		t.Errorf("Expected sources of alice to be indexed, got %v", indexer.consumers)
	}
	if indexer.limits[0] != 20 {
		t.Errorf("Expected limit per feed 20, got %d", indexer.limits[0])
	}
}

func TestScheduler_SequentialExecution(t *testing.T) {
	indexer := &mockIndexer{delay: 5 * time.Millisecond}
	s := startScheduler(t, indexer, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.RunTask(context.Background(), NewIndexProfileTask("https://alice.me3.app", indexer))
		}()
		go func() {
			defer wg.Done()
			s.RunTask(context.Background(), NewScheduledIndexTask(indexer))
		}()
	}
	wg.Wait()

	if indexer.overlap.Load() {
		t.Error("Expected crawls never to overlap")
	}
	if len(indexer.profiles) != 5 || indexer.scheduled != 5 {
		t.Errorf("Expected 5 profile and 5 scheduled crawls, got %d and %d", len(indexer.profiles), indexer.scheduled)
	}
}

func TestEnqueueScheduledTasks(t *testing.T) {
	indexer := &mockIndexer{}
	enricher := &mockEnricher{}
	s := startScheduler(t, indexer, enricher)

	s.enqueueScheduledTasks()

	// Both tasks are ahead of this one in the queue.
	if err := s.RunTask(context.Background(), NewIndexSourcesTask("bob", 5, indexer)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if indexer.scheduled != 1 {
		t.Errorf("Expected one scheduled index pass, got %d", indexer.scheduled)
	}
	if len(enricher.limits) != 1 || enricher.limits[0] != 10 {
		t.Errorf("Expected one transcript pass with batch 10, got %v", enricher.limits)
	}
}

func TestEnqueueTask_QueueFull(t *testing.T) {
	s := startScheduler(t, &mockIndexer{}, nil)

	blocker := newBlockingTask()
	if err := s.EnqueueTask(blocker); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	<-blocker.started
	defer close(blocker.release)

	for i := range queueSize {
		if err := s.EnqueueTask(NewScheduledIndexTask(&mockIndexer{})); err != nil {
			t.Fatalf("Unexpected error at %d: %v", i, err)
		}
	}

	if err := s.EnqueueTask(NewScheduledIndexTask(&mockIndexer{})); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestRunTask_ContextCancelled(t *testing.T) {
	s := startScheduler(t, &mockIndexer{}, nil)

	blocker := newBlockingTask()
	if err := s.EnqueueTask(blocker); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	<-blocker.started
	defer close(blocker.release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.RunTask(ctx, NewScheduledIndexTask(&mockIndexer{}))
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrTaskPending) {
		t.Errorf("Expected pending deadline exceeded, got %v", err)
	}
}

func TestRunTask_DeadlineWhileRunning(t *testing.T) {
	s := startScheduler(t, &mockIndexer{}, nil)

	blocker := newBlockingTask()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- s.RunTask(ctx, blocker) }()

	<-blocker.started
	err := <-errc
	if !errors.Is(err, ErrTaskPending) {
		t.Errorf("Expected ErrTaskPending while the task runs, got %v", err)
	}

	close(blocker.release)

	// The worker is free again once the abandoned task returns.
	if err := s.RunTask(context.Background(), NewIndexSourcesTask("bob", 5, &mockIndexer{})); err != nil {
		t.Errorf("Unexpected error after abandoned task: %v", err)
	}
}

func TestOptions_TaskTimeout(t *testing.T) {
	tests := []struct {
		opts     Options
		expected time.Duration
	}{
		{Options{}, 5 * time.Minute},
		{Options{BatchSize: 5}, 5 * time.Minute},
		{Options{BatchSize: 50, TranscriptBatch: 25}, 25 * time.Minute},
		{Options{BatchSize: 10, TranscriptBatch: 100}, 50 * time.Minute},
	}

	for _, tt := range tests {
		if got := tt.opts.TaskTimeout(); got != tt.expected {
			t.Errorf("TaskTimeout(%+v): expected %v, got %v", tt.opts, tt.expected, got)
		}
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&mockIndexer{}, nil, Options{Schedule: "not a schedule"})
	if err := s.Start(); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestEnqueueTask_AfterStop(t *testing.T) {
	s := NewScheduler(&mockIndexer{}, nil, Options{})
	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	s.Stop()

	if err := s.EnqueueTask(NewScheduledIndexTask(&mockIndexer{})); err == nil {
		t.Error("Expected error when enqueueing after stop")
	}
}
