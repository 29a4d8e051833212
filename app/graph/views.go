package graph

import (
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/trust"
)

type CreatorView struct {
	ID              string         `json:"id"`
	Handle          string         `json:"handle"`
	Name            string         `json:"name"`
	Bio             string         `json:"bio,omitempty"`
	Location        string         `json:"location,omitempty"`
	Avatar          string         `json:"avatar,omitempty"`
	SiteURL         string         `json:"siteUrl"`
	ContentTypes    []string       `json:"contentTypes"`
	PostCount       int            `json:"postCount"`
	TrustScore      float64        `json:"trustScore"`
	TrustLevel      trust.Level    `json:"trustLevel"`
	Verified        bool           `json:"verified"`
	LastPublishedAt *time.Time     `json:"lastPublishedAt"`
	Subscribe       *SubscribeView `json:"subscribe,omitempty"`
}

type SubscribeView struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
}

type ContentView struct {
	ID            string     `json:"id"`
	CreatorID     string     `json:"creatorId"`
	CreatorHandle string     `json:"creatorHandle"`
	CreatorName   string     `json:"creatorName"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt,omitempty"`
	ContentType   string     `json:"contentType"`
	ContentURL    string     `json:"contentUrl,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt"`
	Topics        []string   `json:"topics"`
	Media         *MediaView `json:"media,omitempty"`
	HasTranscript bool       `json:"hasTranscript,omitempty"`
}

type MediaView struct {
	URL       string `json:"url"`
	Duration  int    `json:"duration,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Profile struct {
	Creator CreatorView   `json:"creator"`
	Content []ContentView `json:"content"`
}

type FeedPage struct {
	Items []ContentView `json:"items"`
	Total int           `json:"total"`
	Since *time.Time    `json:"since"`
}

type MySoup struct {
	Handle      string        `json:"handle"`
	DisplayName string        `json:"displayName"`
	Sources     []SoupSource  `json:"sources"`
	Items       []ContentView `json:"items"`
	Total       int           `json:"total"`
	Since       *time.Time    `json:"since"`
}

// SoupSource is a configured feed with the publisher it was indexed as, when
// it has been indexed.
type SoupSource struct {
	FeedURL   string          `json:"feedUrl"`
	Type      feed.SourceType `json:"type"`
	Name      string          `json:"name,omitempty"`
	CreatorID string          `json:"creatorId,omitempty"`
}

type Stats struct {
	Creators      int        `json:"creators"`
	Content       int        `json:"content"`
	Subscriptions int        `json:"subscriptions"`
	Topics        int        `json:"topics"`
	LastCrawledAt *time.Time `json:"lastCrawledAt"`
}

func newCreatorView(p database.Publisher) CreatorView {
	view := CreatorView{
		ID:              p.ID,
		Handle:          p.Handle,
		Name:            p.Name,
		Bio:             p.Bio,
		Location:        p.Location,
		Avatar:          p.Avatar,
		SiteURL:         p.SiteURL,
		ContentTypes:    nonNil(p.ContentTypes),
		PostCount:       p.PostCount,
		TrustScore:      p.TrustScore,
		TrustLevel:      trust.LevelFor(p.TrustScore),
		Verified:        p.Verified,
		LastPublishedAt: p.LastPublishedAt,
	}

	if p.Subscribe.Enabled {
		view.Subscribe = &SubscribeView{
			Title:       p.Subscribe.Title,
			Description: p.Subscribe.Description,
			Frequency:   p.Subscribe.Frequency,
		}
	}

	return view
}

func newContentView(c database.Candidate) ContentView {
	item := c.Item
	view := ContentView{
		ID:            item.ID,
		CreatorID:     item.PublisherID,
		CreatorHandle: c.PublisherHandle,
		CreatorName:   c.PublisherName,
		Slug:          item.Slug,
		Title:         item.Title,
		Excerpt:       item.Excerpt,
		ContentType:   item.ContentType,
		ContentURL:    item.ContentURL,
		PublishedAt:   item.PublishedAt,
		Topics:        nonNil(item.Topics),
		HasTranscript: item.TranscriptText != "",
	}

	if item.MediaURL != "" {
		view.Media = &MediaView{
			URL:       item.MediaURL,
			Duration:  item.MediaDuration,
			Thumbnail: item.MediaThumbnail,
		}
	}

	return view
}

func newContentViews(candidates []database.Candidate) []ContentView {
	views := make([]ContentView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, newContentView(c))
	}
	return views
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
