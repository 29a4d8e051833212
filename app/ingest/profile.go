package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/source"
)

// IndexProfileSource crawls <site>/me.json and syncs its posts.
func (ix *Indexer) IndexProfileSource(ctx context.Context, siteURL string) IndexResult {
	start := ix.now()
	siteURL = source.NormalizeURL(siteURL)
	result := IndexResult{SourceURL: siteURL}
	kind := database.SourceKindProfile

	doc, err := ix.fetcher.FetchProfileDocument(ctx, siteURL)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}

	profile := doc.Profile
	result.PostsFound = len(profile.Posts)

	existing, err := ix.publishers.GetPublisherBySiteURL(siteURL)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}

	if existing != nil && existing.ContentHash == doc.Hash {
		result.PublisherID = existing.ID
		return ix.unchanged(kind, result, start)
	}

	publisher := profilePublisher(siteURL, doc, existing)
	publisher.FirstSeenAt = ix.now()
	publisher.LastIndexedAt = ptrTime(ix.now())

	publisherID, err := ix.publishers.UpsertPublisher(publisher)
	if err != nil {
		return ix.fail(kind, result, start, err)
	}
	result.PublisherID = publisherID

	var counts syncCounts
	for _, post := range profile.Posts {
		if strings.TrimSpace(post.Slug) == "" {
			slog.Debug("Skipping profile post without slug", "source", siteURL, "title", post.Title)
			continue
		}

		item := profileItem(publisherID, siteURL, post)
		if err := ix.syncItem(item, &counts); err != nil {
			result.PostsNew, result.PostsUpdated = counts.inserted, counts.updated
			return ix.fail(kind, result, start, fmt.Errorf("failed to sync post %s: %w", post.Slug, err))
		}
	}

	result.PostsNew = counts.inserted
	result.PostsUpdated = counts.updated

	verified := profile.Verification != nil && profile.Verification.Verified
	if err := ix.refreshPublisher(publisherID, siteURL, verified); err != nil {
		return ix.fail(kind, result, start, fmt.Errorf("failed to refresh publisher: %w", err))
	}
	if err := ix.publishers.UpdateContentHash(publisherID, doc.Hash); err != nil {
		return ix.fail(kind, result, start, err)
	}

	result.Status = database.CrawlStatusSuccess
	return ix.finish(kind, result, start)
}

func profilePublisher(siteURL string, doc *source.ProfileResult, existing *database.Publisher) *database.Publisher {
	profile := doc.Profile

	var previousHash string
	if existing != nil {
		previousHash = existing.ContentHash
	}

	links := "{}"
	if len(profile.Links) > 0 {
		links = string(profile.Links)
	}

	publisher := &database.Publisher{
		SiteURL:      siteURL,
		SourceKind:   database.SourceKindProfile,
		SourceType:   string(feed.SourceTypeArticle),
		Handle:       feed.ProfileHandle(profile.Handle, profile.Name),
		Name:         profile.Name,
		Bio:          profile.Bio,
		Location:     profile.Location,
		Avatar:       profile.Avatar,
		Banner:       profile.Banner,
		Links:        links,
		ContentTypes: []string{string(feed.SourceTypeArticle)},
		ContentHash:  previousHash,
	}

	if profile.Verification != nil {
		publisher.Verified = profile.Verification.Verified
		publisher.VerifiedAt = feed.ParseTimestamp(profile.Verification.VerifiedAt)
	}

	if profile.Intents != nil && profile.Intents.Subscribe != nil {
		subscribe := profile.Intents.Subscribe
		publisher.Subscribe = database.SubscribeIntent{
			Enabled:     subscribe.Enabled,
			Title:       subscribe.Title,
			Description: subscribe.Description,
			Frequency:   subscribe.Frequency,
		}
	}

	return publisher
}

func profileItem(publisherID, siteURL string, post source.ProfilePost) *database.ContentItem {
	return &database.ContentItem{
		PublisherID: publisherID,
		Slug:        post.Slug,
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		ContentType: string(feed.SourceTypeArticle),
		ContentURL:  siteURL + "/blog/" + post.Slug,
		FilePath:    post.File,
		PublishedAt: feed.ParseTimestamp(post.PublishedAt),
		Topics:      feed.ClassifyTopics(post.Title, post.Excerpt),
	}
}
