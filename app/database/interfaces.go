package database

import (
	"time"

	"github.com/lysyi3m/rss-soup/app/trust"
)

type PublisherRepository interface {
	GetPublisher(id string) (*Publisher, error)
	GetPublisherBySiteURL(siteURL string) (*Publisher, error)
	GetPublisherByHandle(handle string) (*Publisher, error)
	GetPublisherByName(name string) (*Publisher, error)
	GetPublisherCount() (int, error)
	ListPublishers(limit, offset int) ([]Publisher, error)
	GetPublishersDueForIndex(limit int) ([]Publisher, error)
	SearchPublishers(search PublisherSearch) ([]Publisher, error)

	UpsertPublisher(publisher *Publisher) (string, error)
	TouchIndexed(publisherID string, indexedAt time.Time) error
	UpdateContentHash(publisherID, hash string) error
	UpdateAggregates(publisherID string, postCount int, lastPublishedAt *time.Time) error
	UpdateTrust(publisherID string, score float64, signals trust.Signals) error
	SetEnabled(publisherID string, enabled bool) error
}

type ContentRepository interface {
	GetContentBySlug(publisherID, slug string) (*ContentItem, error)
	GetContentCount() (int, error)
	GetContentStats(publisherID string) (int, *time.Time, error)

	InsertContent(item *ContentItem) error
	UpdateContent(item *ContentItem) error
	DeleteContentBySlug(publisherID, slug string) (bool, error)

	ListCandidates(filter CandidateFilter) ([]Candidate, error)
	SearchContent(search ContentSearch) ([]Candidate, error)
	CountContent(search ContentSearch) (int, error)
	GetTrending(since time.Time, minTrust float64, limit int) ([]Candidate, error)

	GetItemsForTranscript(limit int, checkedBefore time.Time) ([]ContentItem, error)
	UpdateTranscript(itemID, text, language string, checkedAt time.Time) error
}

// CrawlLogRepository only appends. Entries are never updated or deleted.
type CrawlLogRepository interface {
	AppendCrawlLog(entry *CrawlLogEntry) error
	ListCrawlLog(publisherID string, limit int) ([]CrawlLogEntry, error)
	GetCrawlStatusCounts() (map[CrawlStatus]int, error)
}

type SubscriptionRepository interface {
	EnsureSubscription(subscription *Subscription) error
	CountActiveSubscribers(publisherID string) (int, error)
	ListConsumerPublisherIDs(consumer string) ([]string, error)
}

type StatsRepository interface {
	GetGraphStats() (*GraphStats, error)
}
