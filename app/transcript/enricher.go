package transcript

import (
	"cmp"
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/metrics"
)

const RecheckInterval = 24 * time.Hour

type Fetcher interface {
	Fetch(ctx context.Context, videoID string) *Transcript
}

// Enricher attaches transcripts to stored video items outside the crawl path.
type Enricher struct {
	content database.ContentRepository
	client  Fetcher
	now     func() time.Time
}

func NewEnricher(content database.ContentRepository, client Fetcher, clock func() time.Time) *Enricher {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Enricher{content: content, client: client, now: clock}
}

type EnrichResult struct {
	Checked int `json:"checked"`
	Found   int `json:"found"`
}

// Run looks up transcripts for up to limit video items that have none and were
// not checked within RecheckInterval. Every checked item gets its check time
// stored, found or not.
func (e *Enricher) Run(ctx context.Context, limit int) (EnrichResult, error) {
	var result EnrichResult

	items, err := e.content.GetItemsForTranscript(limit, e.now().Add(-RecheckInterval))
	if err != nil {
		return result, err
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var found *Transcript
		if videoID := ExtractVideoID(cmp.Or(item.MediaURL, item.ContentURL)); videoID != "" {
			found = e.client.Fetch(ctx, videoID)
		}

		text, language := "", ""
		if found != nil {
			text, language = found.Text, found.Language
			result.Found++
		}

		if err := e.content.UpdateTranscript(item.ID, text, language, e.now()); err != nil {
			return result, err
		}

		result.Checked++
		metrics.RecordTranscriptLookup(found != nil)
	}

	if result.Checked > 0 {
		slog.Info("Transcripts enriched", "checked", result.Checked, "found", result.Found)
	}

	return result, nil
}
