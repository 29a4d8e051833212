package tasks

import (
	"context"

	"github.com/lysyi3m/rss-soup/app/ingest"
	"github.com/lysyi3m/rss-soup/app/transcript"
)

// TaskSchedulerInterface is what the API and MCP layers use to hand work to
// the single crawl worker.
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	EnqueueTask(task TaskInterface) error
	RunTask(ctx context.Context, task TaskInterface) error
}

type Indexer interface {
	IndexProfileSource(ctx context.Context, siteURL string) ingest.IndexResult
	IndexSources(ctx context.Context, consumer string, limit int) (*ingest.SourcesResult, error)
	RunScheduledIndex(ctx context.Context) ([]ingest.IndexResult, error)
}

type Enricher interface {
	Run(ctx context.Context, limit int) (transcript.EnrichResult, error)
}
