package database

import (
	"time"

	"github.com/lysyi3m/rss-soup/app/trust"
)

type SourceKind string

const (
	SourceKindProfile SourceKind = "profile"
	SourceKindFeed    SourceKind = "feed"
)

type CrawlStatus string

const (
	CrawlStatusSuccess   CrawlStatus = "success"
	CrawlStatusUnchanged CrawlStatus = "unchanged"
	CrawlStatusFailed    CrawlStatus = "failed"
)

type Publisher struct {
	ID              string
	SiteURL         string     // Profile site URL, or the feed URL for feed sources
	SourceKind      SourceKind // Selects the indexing path in scheduled batches
	SourceType      string     // article, video or audio for feed sources
	Handle          string
	Name            string
	Bio             string
	Location        string
	Avatar          string
	Banner          string
	Links           string   // JSON document as published by the source
	ContentTypes    []string // Stored as a JSON array
	ContentHash     string   // Fingerprint of the last-seen source document
	PostCount       int
	LastPublishedAt *time.Time
	TrustScore      float64
	TrustSignals    trust.Signals
	Verified        bool
	VerifiedAt      *time.Time
	Subscribe       SubscribeIntent
	Enabled         bool
	FirstSeenAt     time.Time // Set on insert only
	LastIndexedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SubscribeIntent struct {
	Enabled     bool
	Title       string
	Description string
	Frequency   string
}

type ContentItem struct {
	ID                  string
	PublisherID         string
	Slug                string // Unique within a publisher
	Title               string
	Excerpt             string
	ContentType         string
	ContentURL          string
	FilePath            string
	MediaURL            string
	MediaDuration       int // Seconds, 0 when unknown
	MediaThumbnail      string
	PublishedAt         *time.Time
	Topics              []string
	TranscriptText      string
	TranscriptLanguage  string
	TranscriptCheckedAt *time.Time
	IndexedAt           time.Time
	UpdatedAt           time.Time
}

type CrawlLogEntry struct {
	ID           string
	PublisherID  *string // nil when the publisher could not be resolved
	SourceURL    string
	Status       CrawlStatus
	ContentHash  string
	PostsFound   int
	PostsNew     int
	PostsUpdated int
	PostsRemoved int
	Error        string
	DurationMs   int64
	CrawledAt    time.Time
}

type Subscription struct {
	ID             string
	SubscriberKey  string
	Consumer       string
	PublisherID    string
	Source         string
	SubscribedAt   time.Time
	UnsubscribedAt *time.Time
}

// Candidate is a stored content item joined with the publisher fields the
// recommender reads.
type Candidate struct {
	Item            ContentItem
	PublisherName   string
	PublisherHandle string
	TrustScore      float64
}

type CandidateFilter struct {
	Consumer string     // Restrict to publishers the consumer is subscribed to
	Since    *time.Time // Only items published at or after Since (undated items are kept)
	Limit    int
}

// ContentSearch selects stored items for the read API. Unlike
// CandidateFilter, Since drops undated items.
type ContentSearch struct {
	Query       string // Substring of the title or excerpt
	Topic       string
	ContentType string
	PublisherID string
	Subscriber  string // Consumer handle or subscriber key
	Since       *time.Time
	Limit       int
	Offset      int
}

type PublisherOrder string

const (
	PublisherOrderTrust  PublisherOrder = "trust"
	PublisherOrderRecent PublisherOrder = "recent"
	PublisherOrderPosts  PublisherOrder = "posts"
)

type PublisherSearch struct {
	Query   string // Substring of the handle or name
	Topic   string // Publishers with at least one item on the topic
	OrderBy PublisherOrder
	Limit   int
	Offset  int
}

type GraphStats struct {
	Publishers    int
	Content       int
	Subscriptions int // Active only
	Topics        int // Distinct topics across stored items
	LastCrawledAt *time.Time
}
