package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/rss-soup/app/transcript"
)

type EnrichTranscriptsTask struct {
	Task
	enricher Enricher
	limit    int
	Result   transcript.EnrichResult
}

func NewEnrichTranscriptsTask(limit int, enricher Enricher) *EnrichTranscriptsTask {
	return &EnrichTranscriptsTask{
		Task:     NewTask(TaskTypeEnrichTranscripts, scheduledTarget),
		enricher: enricher,
		limit:    limit,
	}
}

func (t *EnrichTranscriptsTask) Execute(ctx context.Context) error {
	result, err := t.enricher.Run(ctx, t.limit)
	t.Result = result
	if err != nil {
		return err
	}

	if result.Checked == 0 {
		slog.Debug("No videos need transcripts")
		return nil
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"checked", result.Checked,
		"found", result.Found)

	return nil
}
