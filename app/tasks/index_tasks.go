package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/ingest"
)

const scheduledTarget = "batch"

// ErrCrawlFailed marks a crawl that ran to completion with a failed status.
// The task result is complete and describes the failure.
var ErrCrawlFailed = errors.New("crawl failed")

type IndexProfileTask struct {
	Task
	indexer Indexer
	Result  ingest.IndexResult
}

func NewIndexProfileTask(siteURL string, indexer Indexer) *IndexProfileTask {
	return &IndexProfileTask{
		Task:    NewTask(TaskTypeIndexProfile, siteURL),
		indexer: indexer,
	}
}

// Execute reports a failed crawl as an error so the task outcome matches the
// crawl log entry.
func (t *IndexProfileTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.Result = t.indexer.IndexProfileSource(ctx, t.Target)

	slog.Info("Task completed",
		"type", t.GetType(),
		"site", t.Target,
		"duration", t.GetDuration(),
		"status", t.Result.Status,
		"new", t.Result.PostsNew,
		"updated", t.Result.PostsUpdated)

	if t.Result.Status == database.CrawlStatusFailed {
		return fmt.Errorf("%w: %s", ErrCrawlFailed, t.Result.Error)
	}
	return nil
}

type IndexSourcesTask struct {
	Task
	indexer Indexer
	limit   int
	Result  *ingest.SourcesResult
}

func NewIndexSourcesTask(consumer string, limit int, indexer Indexer) *IndexSourcesTask {
	return &IndexSourcesTask{
		Task:    NewTask(TaskTypeIndexSources, consumer),
		indexer: indexer,
		limit:   limit,
	}
}

func (t *IndexSourcesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.indexer.IndexSources(ctx, t.Target, t.limit)
	t.Result = result
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"consumer", t.Target,
		"duration", t.GetDuration(),
		"feeds", result.FeedsIndexed,
		"items", result.ItemsIndexed)

	return nil
}

type ScheduledIndexTask struct {
	Task
	indexer Indexer
	Results []ingest.IndexResult
}

func NewScheduledIndexTask(indexer Indexer) *ScheduledIndexTask {
	return &ScheduledIndexTask{
		Task:    NewTask(TaskTypeScheduledIndex, scheduledTarget),
		indexer: indexer,
	}
}

func (t *ScheduledIndexTask) Execute(ctx context.Context) error {
	results, err := t.indexer.RunScheduledIndex(ctx)
	t.Results = results
	if err != nil {
		return err
	}

	counts := make(map[database.CrawlStatus]int)
	for _, result := range results {
		counts[result.Status]++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"publishers", len(results),
		"success", counts[database.CrawlStatusSuccess],
		"unchanged", counts[database.CrawlStatusUnchanged],
		"failed", counts[database.CrawlStatusFailed])

	return nil
}
