// Package ingest turns fetched profile and feed documents into publisher and
// content rows, recording every crawl in the crawl log.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/metrics"
	"github.com/lysyi3m/rss-soup/app/source"
	"github.com/lysyi3m/rss-soup/app/trust"
)

type DocumentFetcher interface {
	FetchProfileDocument(ctx context.Context, siteURL string) (*source.ProfileResult, error)
	FetchFeedDocument(ctx context.Context, feedURL string) ([]byte, error)
}

type Indexer struct {
	publishers    database.PublisherRepository
	content       database.ContentRepository
	crawlLog      database.CrawlLogRepository
	subscriptions database.SubscriptionRepository
	fetcher       DocumentFetcher
	sources       *feed.SourceCache
	parser        *feed.Parser
	filterer      *feed.Filterer

	batchSize       int
	limitPerFeed    int
	platformDomains []string
	now             func() time.Time
}

func NewIndexer(
	publishers database.PublisherRepository,
	content database.ContentRepository,
	crawlLog database.CrawlLogRepository,
	subscriptions database.SubscriptionRepository,
	fetcher DocumentFetcher,
	sources *feed.SourceCache,
	opts Options,
) *Indexer {
	ix := &Indexer{
		publishers:      publishers,
		content:         content,
		crawlLog:        crawlLog,
		subscriptions:   subscriptions,
		fetcher:         fetcher,
		sources:         sources,
		parser:          feed.NewParser(),
		filterer:        feed.NewFilterer(),
		batchSize:       opts.BatchSize,
		limitPerFeed:    opts.LimitPerFeed,
		platformDomains: opts.PlatformDomains,
		now:             opts.Clock,
	}

	if ix.batchSize <= 0 {
		ix.batchSize = DefaultBatchSize
	}
	if ix.limitPerFeed <= 0 {
		ix.limitPerFeed = DefaultLimitPerFeed
	}
	if len(ix.platformDomains) == 0 {
		ix.platformDomains = trust.DefaultPlatformDomains
	}
	if ix.now == nil {
		ix.now = func() time.Time { return time.Now().UTC() }
	}

	return ix
}

// RunScheduledIndex crawls the publishers that were indexed longest ago, one
// at a time. A failed publisher is recorded and the batch moves on.
func (ix *Indexer) RunScheduledIndex(ctx context.Context) ([]IndexResult, error) {
	publishers, err := ix.publishers.GetPublishersDueForIndex(ix.batchSize)
	if err != nil {
		return nil, err
	}

	results := make([]IndexResult, 0, len(publishers))
	for _, p := range publishers {
		select {
		case <-ctx.Done():
			slog.Warn("Scheduled index interrupted", "indexed", len(results), "remaining", len(publishers)-len(results))
			return results, ctx.Err()
		default:
		}

		var result IndexResult
		switch p.SourceKind {
		case database.SourceKindFeed:
			result = ix.IndexFeedSource(ctx, ix.descriptorFor(p), ix.limitPerFeed)
		default:
			result = ix.IndexProfileSource(ctx, p.SiteURL)
		}

		results = append(results, result)
	}

	slog.Info("Scheduled index completed", "publishers", len(results))
	return results, nil
}

// descriptorFor prefers the configured source table entry and falls back to
// what was stored for the publisher.
func (ix *Indexer) descriptorFor(p database.Publisher) feed.SourceDescriptor {
	if ix.sources != nil {
		if descriptor, ok := ix.sources.FindSource(p.SiteURL); ok {
			return descriptor
		}
	}

	sourceType := feed.SourceType(p.SourceType)
	if !sourceType.Valid() {
		sourceType = feed.SourceTypeArticle
	}
	return feed.SourceDescriptor{FeedURL: p.SiteURL, Type: sourceType}
}

// syncItem inserts candidate when absent and updates it only when a tracked
// field differs from the stored row.
func (ix *Indexer) syncItem(candidate *database.ContentItem, counts *syncCounts) error {
	existing, err := ix.content.GetContentBySlug(candidate.PublisherID, candidate.Slug)
	if err != nil {
		return err
	}

	if existing == nil {
		if err := ix.content.InsertContent(candidate); err != nil {
			return err
		}
		counts.inserted++
		return nil
	}

	if !contentChanged(existing, candidate) {
		return nil
	}

	candidate.ID = existing.ID
	if err := ix.content.UpdateContent(candidate); err != nil {
		return err
	}
	counts.updated++
	return nil
}

func contentChanged(existing, candidate *database.ContentItem) bool {
	return existing.Title != candidate.Title ||
		existing.Excerpt != candidate.Excerpt ||
		existing.ContentType != candidate.ContentType ||
		existing.ContentURL != candidate.ContentURL ||
		existing.MediaURL != candidate.MediaURL ||
		existing.MediaThumbnail != candidate.MediaThumbnail ||
		existing.MediaDuration != candidate.MediaDuration ||
		!sameTime(existing.PublishedAt, candidate.PublishedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// refreshPublisher recomputes the stored aggregates and the trust score.
func (ix *Indexer) refreshPublisher(publisherID, domainURL string, verified bool) error {
	postCount, lastPublished, err := ix.content.GetContentStats(publisherID)
	if err != nil {
		return err
	}

	if err := ix.publishers.UpdateAggregates(publisherID, postCount, lastPublished); err != nil {
		return err
	}

	publisher, err := ix.publishers.GetPublisher(publisherID)
	if err != nil {
		return err
	}

	subscribers, err := ix.subscriptions.CountActiveSubscribers(publisherID)
	if err != nil {
		return err
	}

	signals := trust.Signals{
		HasCustomDomain: trust.HasCustomDomain(domainURL, ix.platformDomains),
		PostCount:       postCount,
		SubscriberCount: subscribers,
		Verified:        verified,
	}
	if publisher != nil {
		signals.HistoryMonths = trust.HistoryMonths(publisher.FirstSeenAt, ix.now())
	}

	return ix.publishers.UpdateTrust(publisherID, trust.Calculate(signals), signals)
}

// finish writes the crawl log entry for result and records metrics.
func (ix *Indexer) finish(kind database.SourceKind, result IndexResult, start time.Time) IndexResult {
	result.DurationMs = ix.now().Sub(start).Milliseconds()

	entry := &database.CrawlLogEntry{
		SourceURL:    result.SourceURL,
		Status:       result.Status,
		PostsFound:   result.PostsFound,
		PostsNew:     result.PostsNew,
		PostsUpdated: result.PostsUpdated,
		PostsRemoved: result.PostsRemoved,
		Error:        result.Error,
		DurationMs:   result.DurationMs,
		CrawledAt:    ix.now(),
	}
	if result.PublisherID != "" {
		publisherID := result.PublisherID
		entry.PublisherID = &publisherID
	}

	if err := ix.crawlLog.AppendCrawlLog(entry); err != nil {
		slog.Error("Failed to append crawl log", "source", result.SourceURL, "error", err)
	}

	metrics.RecordCrawl(string(kind), string(result.Status), time.Duration(result.DurationMs)*time.Millisecond)
	metrics.RecordMutations(result.PostsNew, result.PostsUpdated, result.PostsRemoved)

	switch result.Status {
	case database.CrawlStatusFailed:
		slog.Warn("Source crawl failed", "kind", kind, "source", result.SourceURL, "error", result.Error)
	default:
		slog.Info("Source crawled", "kind", kind, "source", result.SourceURL, "status", result.Status,
			"found", result.PostsFound, "new", result.PostsNew, "updated", result.PostsUpdated,
			"removed", result.PostsRemoved, "duration_ms", result.DurationMs)
	}

	return result
}

func (ix *Indexer) fail(kind database.SourceKind, result IndexResult, start time.Time, err error) IndexResult {
	result.Status = database.CrawlStatusFailed
	result.Error = err.Error()
	return ix.finish(kind, result, start)
}

// unchanged records a crawl whose document fingerprint matched the stored one.
// Only last_indexed_at moves so the batch order keeps rotating.
func (ix *Indexer) unchanged(kind database.SourceKind, result IndexResult, start time.Time) IndexResult {
	if err := ix.publishers.TouchIndexed(result.PublisherID, ix.now()); err != nil {
		slog.Warn("Failed to touch publisher", "publisher", result.PublisherID, "error", err)
	}
	result.Status = database.CrawlStatusUnchanged
	return ix.finish(kind, result, start)
}
