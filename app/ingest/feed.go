package ingest

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/metrics"
	"github.com/lysyi3m/rss-soup/app/source"
)

// IndexFeedSource crawls one RSS or Atom feed and syncs its first limit items.
func (ix *Indexer) IndexFeedSource(ctx context.Context, descriptor feed.SourceDescriptor, limit int) IndexResult {
	start := ix.now()
	feedURL := strings.TrimSpace(descriptor.FeedURL)
	result := IndexResult{SourceURL: feedURL}
	kind := database.SourceKindFeed

	if !descriptor.Type.Valid() {
		descriptor.Type = feed.SourceTypeArticle
	}
	if limit <= 0 {
		limit = ix.limitPerFeed
	}

	existing, err := ix.publishers.GetPublisherBySiteURL(feedURL)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}
	if existing != nil {
		result.PublisherID = existing.ID
	}

	raw, err := ix.fetcher.FetchFeedDocument(ctx, feedURL)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}
	hash, err := feedFingerprint(raw, descriptor, limit)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}

	parsed, err := ix.parser.Run(raw)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}

	items := parsed.Items
	if len(items) > limit {
		items = items[:limit]
	}
	result.PostsFound = len(items)

	if existing != nil && existing.ContentHash == hash {
		return ix.unchanged(kind, result, start)
	}

	publisher, err := feedPublisher(descriptor, parsed, existing)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}
	publisher.FirstSeenAt = ix.now()
	publisher.LastIndexedAt = ptrTime(ix.now())

	publisherID, err := ix.publishers.UpsertPublisher(publisher)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}
	result.PublisherID = publisherID

	var counts syncCounts
	for _, item := range items {
		slug := feed.ItemSlug(item.ID, item.Title, item.Link)

		if excluded, reason := ix.filterer.Run(item, descriptor); excluded {
			metrics.ItemsFiltered.Inc()
			slog.Debug("Item filtered", "source", feedURL, "title", item.Title, "reason", reason)

			removed, err := ix.content.DeleteContentBySlug(publisherID, slug)
			if err != nil {
				return ix.fail(kind, result, start, fmt.Errorf("failed to remove filtered item %s: %w", slug, err))
			}
			if removed {
				counts.removed++
			}
			continue
		}

		candidate := feedItem(publisherID, slug, descriptor.Type, item)
		if err := ix.syncItem(candidate, &counts); err != nil {
			return ix.fail(kind, result, start, fmt.Errorf("failed to sync item %s: %w", slug, err))
		}
	}

	result.PostsNew = counts.inserted
	result.PostsUpdated = counts.updated
	result.PostsRemoved = counts.removed

	domainURL := cmp.Or(source.NormalizeURL(descriptor.SiteURL), parsed.Link, feedURL)
	if err := ix.refreshPublisher(publisherID, domainURL, false); err != nil {
		return ix.fail(kind, result, start, fmt.Errorf("failed to refresh publisher: %w", err))
	}
	if err := ix.publishers.UpdateContentHash(publisherID, hash); err != nil {
		return ix.fail(kind, result, start, err)
	}

	result.Status = database.CrawlStatusSuccess
	return ix.finish(kind, result, start)
}

type feedLinks struct {
	RSS        string  `json:"rss"`
	Website    *string `json:"website"`
	SourceType string  `json:"sourceType"`
}

// feedFingerprint hashes the document together with the settings it was
// synced under, so a new limit or filter list re-syncs an unchanged feed.
func feedFingerprint(raw []byte, descriptor feed.SourceDescriptor, limit int) (string, error) {
	settings, err := json.Marshal(struct {
		Type    feed.SourceType
		Name    string
		SiteURL string
		Filters []feed.SourceFilter
		Limit   int
	}{descriptor.Type, descriptor.Name, descriptor.SiteURL, descriptor.Filters, limit})
	if err != nil {
		return "", fmt.Errorf("failed to encode feed settings: %w", err)
	}

	document := make([]byte, 0, len(raw)+len(settings)+1)
	document = append(document, raw...)
	document = append(document, 0)
	document = append(document, settings...)
	return source.Fingerprint(document), nil
}

// feedPublisher keeps the previously stored content hash. The new one is
// recorded only once the items are synced.
func feedPublisher(descriptor feed.SourceDescriptor, parsed *feed.Feed, existing *database.Publisher) (*database.Publisher, error) {
	feedURL := strings.TrimSpace(descriptor.FeedURL)

	handle := feed.PublisherHandle(parsed.Title, feedURL)
	var previousHash string
	if existing != nil {
		previousHash = existing.ContentHash
		if existing.Handle != "" {
			handle = existing.Handle
		}
	}

	links := feedLinks{RSS: feedURL, SourceType: string(descriptor.Type)}
	if website := cmp.Or(source.NormalizeURL(descriptor.SiteURL), parsed.Link); website != "" {
		links.Website = &website
	}

	encoded, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("failed to encode publisher links: %w", err)
	}

	return &database.Publisher{
		SiteURL:      feedURL,
		SourceKind:   database.SourceKindFeed,
		SourceType:   string(descriptor.Type),
		Handle:       handle,
		Name:         cmp.Or(descriptor.Name, parsed.Title, handle),
		Bio:          feedPublisherBio,
		Avatar:       parsed.Image,
		Links:        string(encoded),
		ContentTypes: []string{string(descriptor.Type)},
		ContentHash:  previousHash,
	}, nil
}

func feedItem(publisherID, slug string, sourceType feed.SourceType, item feed.Item) *database.ContentItem {
	excerpt := feed.BuildExcerpt(item.Description)

	thumbnail := item.Thumbnail
	if thumbnail == "" && feed.IsLikelyImageURL(item.EnclosureURL) {
		thumbnail = item.EnclosureURL
	}

	return &database.ContentItem{
		PublisherID:    publisherID,
		Slug:           slug,
		Title:          item.Title,
		Excerpt:        excerpt,
		ContentType:    string(sourceType),
		ContentURL:     item.Link,
		MediaURL:       mediaURL(sourceType, item),
		MediaDuration:  item.DurationSeconds,
		MediaThumbnail: thumbnail,
		PublishedAt:    item.Published,
		Topics:         feed.ClassifyTopics(item.Title, excerpt),
	}
}

// mediaURL picks the playable URL for the source type. Articles have none.
func mediaURL(sourceType feed.SourceType, item feed.Item) string {
	switch sourceType {
	case feed.SourceTypeAudio:
		return cmp.Or(item.EnclosureURL, item.Link)
	case feed.SourceTypeVideo:
		return cmp.Or(item.Link, item.EnclosureURL)
	default:
		return ""
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
