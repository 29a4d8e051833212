package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/rss-soup/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize = 300

	minTaskTimeout = 5 * time.Minute
	// perSourceTimeout covers one fetch plus its writes. Batch tasks get one
	// per publisher or transcript in the batch.
	perSourceTimeout = 30 * time.Second
)

var (
	ErrQueueFull = errors.New("task queue is full")
	// ErrTaskPending is returned by RunTask when the caller stopped waiting
	// before the worker finished. The task's result must not be read.
	ErrTaskPending = errors.New("task is still pending")
)

type Options struct {
	Schedule        string
	BatchSize       int
	LimitPerFeed    int
	TranscriptBatch int
}

// TaskTimeout is the deadline of a single task, scaled to the largest batch.
func (o Options) TaskTimeout() time.Duration {
	batch := max(o.BatchSize, o.TranscriptBatch)
	return max(minTaskTimeout, time.Duration(batch)*perSourceTimeout)
}

type queuedTask struct {
	task TaskInterface
	done chan error
}

// Scheduler runs every crawl on one worker goroutine, so no two crawls ever
// overlap. The cron schedule and on-demand requests share the same queue.
type Scheduler struct {
	indexer   Indexer
	enricher  Enricher
	opts      Options
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan queuedTask
}

func NewScheduler(indexer Indexer, enricher Enricher, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		indexer:   indexer,
		enricher:  enricher,
		opts:      opts,
		cron:      cron.New(),
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan queuedTask, queueSize),
	}
}

func (s *Scheduler) Start() error {
	if s.opts.Schedule != "" {
		if _, err := s.cron.AddFunc(s.opts.Schedule, s.enqueueScheduledTasks); err != nil {
			return fmt.Errorf("failed to parse schedule %q: %w", s.opts.Schedule, err)
		}
	}

	s.wg.Add(1)
	go s.worker()

	s.cron.Start()

	slog.Debug("Scheduler started", "schedule", s.opts.Schedule)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	return s.enqueue(queuedTask{task: task})
}

// RunTask enqueues task and blocks until the worker has executed it. The
// task's result fields may only be read when the returned error is not
// ErrTaskPending; the worker hands the task back through the done channel.
func (s *Scheduler) RunTask(ctx context.Context, task TaskInterface) error {
	done := make(chan error, 1)
	if err := s.enqueue(queuedTask{task: task, done: done}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTaskPending, ctx.Err())
	case <-s.ctx.Done():
		return fmt.Errorf("%w: %w", ErrTaskPending, s.ctx.Err())
	}
}

// RefreshSources crawls the sources of consumer and waits for the result.
func (s *Scheduler) RefreshSources(ctx context.Context, consumer string) error {
	return s.RunTask(ctx, NewIndexSourcesTask(consumer, s.opts.LimitPerFeed, s.indexer))
}

func (s *Scheduler) enqueue(queued queuedTask) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- queued:
		metrics.TaskQueueDepth.Set(float64(len(s.taskQueue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) enqueueScheduledTasks() {
	if err := s.EnqueueTask(NewScheduledIndexTask(s.indexer)); err != nil {
		slog.Warn("Failed to enqueue ScheduledIndexTask", "error", err)
	}

	if s.enricher == nil {
		return
	}
	if err := s.EnqueueTask(NewEnrichTranscriptsTask(s.opts.TranscriptBatch, s.enricher)); err != nil {
		slog.Warn("Failed to enqueue EnrichTranscriptsTask", "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case queued := <-s.taskQueue:
			metrics.TaskQueueDepth.Set(float64(len(s.taskQueue)))
			err := s.executeTask(queued.task)
			if queued.done != nil {
				queued.done <- err
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// executeTask runs task once. Failures are not retried; the next scheduled
// pass picks the source up again.
func (s *Scheduler) executeTask(task TaskInterface) error {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.opts.TaskTimeout())
	defer cancel()

	err := task.Execute(taskCtx)
	metrics.RecordTask(string(task.GetType()), err)

	if err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(),
			"target", task.GetTarget(), "duration", task.GetDuration(), "error", err)
	}

	return err
}
