package ingest

import (
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
)

// IndexResult is the outcome of one crawl. It mirrors the crawl log entry
// written for the same crawl.
type IndexResult struct {
	SourceURL    string               `json:"sourceUrl"`
	PublisherID  string               `json:"publisherId,omitempty"`
	Status       database.CrawlStatus `json:"status"`
	PostsFound   int                  `json:"postsFound"`
	PostsNew     int                  `json:"postsNew"`
	PostsUpdated int                  `json:"postsUpdated"`
	PostsRemoved int                  `json:"postsRemoved"`
	Error        string               `json:"error,omitempty"`
	DurationMs   int64                `json:"durationMs"`
}

type SourcesResult struct {
	Consumer     string        `json:"consumer"`
	FeedsIndexed int           `json:"feedsIndexed"`
	ItemsIndexed int           `json:"itemsIndexed"`
	PublisherIDs []string      `json:"publisherIds"`
	Results      []IndexResult `json:"results"`
}

type Options struct {
	BatchSize       int
	LimitPerFeed    int
	PlatformDomains []string
	Clock           func() time.Time
}

const (
	DefaultBatchSize    = 50
	DefaultLimitPerFeed = 20

	feedPublisherBio   = "Imported from RSS"
	subscriptionSource = "source_table"
)

type syncCounts struct {
	inserted int
	updated  int
	removed  int
}
