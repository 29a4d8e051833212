package api

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/graph"
	"github.com/lysyi3m/rss-soup/app/recommend"
	"github.com/lysyi3m/rss-soup/app/tasks"
	"github.com/lysyi3m/rss-soup/app/trust"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []database.Candidate) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Recommender interface {
	Serve(ctx context.Context, req recommend.ServeRequest) (*recommend.Result, error)
}

var _ Recommender = (*recommend.Service)(nil)

type Discoverer interface {
	Run(ctx context.Context, pageURL, title string) []feed.SourceCandidate
}

var _ Discoverer = (*feed.Discoverer)(nil)

// GraphReader answers the read queries over the content graph.
type GraphReader interface {
	SearchContent(q graph.ContentQuery) ([]graph.ContentView, error)
	SearchCreators(q graph.CreatorQuery) ([]graph.CreatorView, error)
	Profile(idOrHandle string) (*graph.Profile, error)
	LatestFrom(name, contentType string, limit int) (*graph.Profile, error)
	Feed(subscriber string, q graph.FeedQuery) (*graph.FeedPage, error)
	MySoup(handle string, q graph.FeedQuery) (*graph.MySoup, error)
	Trending(days, limit int) ([]graph.ContentView, error)
	Stats() (*graph.Stats, error)
}

var _ GraphReader = (*graph.Service)(nil)

type Handler struct {
	publisherRepo database.PublisherRepository
	contentRepo   database.ContentRepository
	crawlLogRepo  database.CrawlLogRepository
	sourceCache   *feed.SourceCache
	indexer       tasks.Indexer
	scheduler     tasks.TaskSchedulerInterface
	recommender   Recommender
	discoverer    Discoverer
	generator     GeneratorInterface
	graph         GraphReader
	limitPerFeed  int
	version       string
}

type IndexProfileRequest struct {
	SiteURL string `json:"siteUrl" binding:"required"`
}

type DiscoverRequest struct {
	URL   string `json:"url" binding:"required"`
	Title string `json:"title"`
}

type PublisherView struct {
	ID              string        `json:"id"`
	SiteURL         string        `json:"siteUrl"`
	SourceKind      string        `json:"sourceKind"`
	SourceType      string        `json:"sourceType,omitempty"`
	Handle          string        `json:"handle"`
	Name            string        `json:"name"`
	Avatar          string        `json:"avatar,omitempty"`
	ContentTypes    []string      `json:"contentTypes"`
	PostCount       int           `json:"postCount"`
	LastPublishedAt *time.Time    `json:"lastPublishedAt"`
	TrustScore      float64       `json:"trustScore"`
	TrustLevel      trust.Level   `json:"trustLevel"`
	TrustSignals    trust.Signals `json:"trustSignals"`
	Verified        bool          `json:"verified"`
	Enabled         bool          `json:"enabled"`
	FirstSeenAt     time.Time     `json:"firstSeenAt"`
	LastIndexedAt   *time.Time    `json:"lastIndexedAt"`
}

func newPublisherView(p database.Publisher) PublisherView {
	return PublisherView{
		ID:              p.ID,
		SiteURL:         p.SiteURL,
		SourceKind:      string(p.SourceKind),
		SourceType:      p.SourceType,
		Handle:          p.Handle,
		Name:            p.Name,
		Avatar:          p.Avatar,
		ContentTypes:    p.ContentTypes,
		PostCount:       p.PostCount,
		LastPublishedAt: p.LastPublishedAt,
		TrustScore:      p.TrustScore,
		TrustLevel:      trust.LevelFor(p.TrustScore),
		TrustSignals:    p.TrustSignals,
		Verified:        p.Verified,
		Enabled:         p.Enabled,
		FirstSeenAt:     p.FirstSeenAt,
		LastIndexedAt:   p.LastIndexedAt,
	}
}

type CrawlLogView struct {
	PublisherID  *string `json:"publisherId"`
	SourceURL    string  `json:"sourceUrl"`
	Status       string  `json:"status"`
	PostsFound   int     `json:"postsFound"`
	PostsNew     int     `json:"postsNew"`
	PostsUpdated int     `json:"postsUpdated"`
	PostsRemoved int     `json:"postsRemoved"`
	Error        string  `json:"error,omitempty"`
	DurationMs   int64   `json:"durationMs"`
	CrawledAt    string  `json:"crawledAt"`
}

func newCrawlLogView(e database.CrawlLogEntry) CrawlLogView {
	return CrawlLogView{
		PublisherID:  e.PublisherID,
		SourceURL:    e.SourceURL,
		Status:       string(e.Status),
		PostsFound:   e.PostsFound,
		PostsNew:     e.PostsNew,
		PostsUpdated: e.PostsUpdated,
		PostsRemoved: e.PostsRemoved,
		Error:        e.Error,
		DurationMs:   e.DurationMs,
		CrawledAt:    e.CrawledAt.In(time.Local).Format(time.RFC3339),
	}
}
