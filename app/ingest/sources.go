package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-soup/app/database"
)

// IndexSources crawls every source configured for consumer, one after another,
// and subscribes the consumer to each publisher that was resolved.
func (ix *Indexer) IndexSources(ctx context.Context, consumer string, limit int) (*SourcesResult, error) {
	if ix.sources == nil {
		return nil, errors.New("no source table configured")
	}

	result := &SourcesResult{
		Consumer:     consumer,
		PublisherIDs: []string{},
		Results:      []IndexResult{},
	}

	descriptors := ix.sources.GetSources(consumer)
	if len(descriptors) == 0 {
		slog.Info("No sources configured", "consumer", consumer)
		return result, nil
	}

	for _, descriptor := range descriptors {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		indexed := ix.IndexFeedSource(ctx, descriptor, limit)
		result.Results = append(result.Results, indexed)

		if indexed.Status == database.CrawlStatusFailed || indexed.PublisherID == "" {
			continue
		}

		result.FeedsIndexed++
		result.ItemsIndexed += indexed.PostsNew + indexed.PostsUpdated
		result.PublisherIDs = append(result.PublisherIDs, indexed.PublisherID)
	}

	if err := ix.ensureSubscriptions(consumer, result.PublisherIDs); err != nil {
		return result, err
	}

	slog.Info("Consumer sources indexed", "consumer", consumer,
		"feeds", result.FeedsIndexed, "items", result.ItemsIndexed, "sources", len(descriptors))

	return result, nil
}

func (ix *Indexer) ensureSubscriptions(consumer string, publisherIDs []string) error {
	key := SubscriberKey(consumer)

	for _, publisherID := range publisherIDs {
		err := ix.subscriptions.EnsureSubscription(&database.Subscription{
			SubscriberKey: key,
			Consumer:      consumer,
			PublisherID:   publisherID,
			Source:        subscriptionSource,
			SubscribedAt:  ix.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe %s to %s: %w", consumer, publisherID, err)
		}
	}

	return nil
}

// SubscriberKey is the stable subscriber identity derived from a consumer handle.
func SubscriberKey(consumer string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace("handle:" + consumer))))
	return hex.EncodeToString(hash[:])
}
