// Package graph answers read queries over the stored content graph:
// searches, subscriber feeds, creator profiles, trending items and totals.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100

	DefaultFeedLimit = 50
	MaxFeedLimit     = 200

	DefaultLatestLimit = 10
	MaxLatestLimit     = 50

	DefaultTrendingDays = 7
	MaxTrendingDays     = 30
	trendingMinTrust    = 0.2

	profileItems = 20
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type ContentQuery struct {
	Query       string
	Topic       string
	ContentType string
	Since       string // Any timestamp the feed parser accepts
	Limit       int
	Offset      int
}

type CreatorQuery struct {
	Query   string
	Topic   string
	OrderBy string // trust, recent or posts
	Limit   int
	Offset  int
}

type FeedQuery struct {
	Since       string
	ContentType string
	Limit       int
}

type Service struct {
	publishers database.PublisherRepository
	content    database.ContentRepository
	stats      database.StatsRepository
	sources    *feed.SourceCache
	now        func() time.Time
}

func NewService(
	publishers database.PublisherRepository,
	content database.ContentRepository,
	stats database.StatsRepository,
	sources *feed.SourceCache,
	clock func() time.Time,
) *Service {
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		publishers: publishers,
		content:    content,
		stats:      stats,
		sources:    sources,
		now:        clock,
	}
}

func (s *Service) SearchContent(q ContentQuery) ([]ContentView, error) {
	since, err := parseSince(q.Since)
	if err != nil {
		return nil, err
	}
	if err := validContentType(q.ContentType); err != nil {
		return nil, err
	}

	candidates, err := s.content.SearchContent(database.ContentSearch{
		Query:       strings.TrimSpace(q.Query),
		Topic:       strings.TrimSpace(q.Topic),
		ContentType: q.ContentType,
		Since:       since,
		Limit:       clamp(q.Limit, DefaultSearchLimit, MaxSearchLimit),
		Offset:      max(q.Offset, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search content: %w", err)
	}

	return newContentViews(candidates), nil
}

func (s *Service) SearchCreators(q CreatorQuery) ([]CreatorView, error) {
	order := database.PublisherOrder(q.OrderBy)
	switch order {
	case "":
		order = database.PublisherOrderTrust
	case database.PublisherOrderTrust, database.PublisherOrderRecent, database.PublisherOrderPosts:
	default:
		return nil, fmt.Errorf("%w: order must be trust, recent or posts, got %q", ErrInvalidArgument, q.OrderBy)
	}

	publishers, err := s.publishers.SearchPublishers(database.PublisherSearch{
		Query:   strings.TrimSpace(q.Query),
		Topic:   strings.TrimSpace(q.Topic),
		OrderBy: order,
		Limit:   clamp(q.Limit, DefaultSearchLimit, MaxSearchLimit),
		Offset:  max(q.Offset, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search creators: %w", err)
	}

	views := make([]CreatorView, 0, len(publishers))
	for _, p := range publishers {
		views = append(views, newCreatorView(p))
	}
	return views, nil
}

// Profile looks a creator up by ID, then by handle, and returns its newest items.
func (s *Service) Profile(idOrHandle string) (*Profile, error) {
	idOrHandle = strings.TrimSpace(idOrHandle)
	if idOrHandle == "" {
		return nil, fmt.Errorf("%w: creator id is required", ErrInvalidArgument)
	}

	publisher, err := s.publishers.GetPublisher(idOrHandle)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		if publisher, err = s.publishers.GetPublisherByHandle(idOrHandle); err != nil {
			return nil, err
		}
	}
	if publisher == nil {
		return nil, fmt.Errorf("%w: creator %s", ErrNotFound, idOrHandle)
	}

	return s.profile(publisher, "", profileItems)
}

// LatestFrom looks a creator up by handle, then by display name.
func (s *Service) LatestFrom(name, contentType string, limit int) (*Profile, error) {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	if name == "" {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidArgument)
	}
	if err := validContentType(contentType); err != nil {
		return nil, err
	}

	publisher, err := s.publishers.GetPublisherByHandle(name)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		if publisher, err = s.publishers.GetPublisherByName(name); err != nil {
			return nil, err
		}
	}
	if publisher == nil {
		return nil, fmt.Errorf("%w: creator %s", ErrNotFound, name)
	}

	return s.profile(publisher, contentType, clamp(limit, DefaultLatestLimit, MaxLatestLimit))
}

func (s *Service) profile(publisher *database.Publisher, contentType string, limit int) (*Profile, error) {
	candidates, err := s.content.SearchContent(database.ContentSearch{
		PublisherID: publisher.ID,
		ContentType: contentType,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get creator content: %w", err)
	}

	return &Profile{
		Creator: newCreatorView(*publisher),
		Content: newContentViews(candidates),
	}, nil
}

// Feed returns items from the creators a subscriber follows. The subscriber is
// a soup handle or a subscriber key.
func (s *Service) Feed(subscriber string, q FeedQuery) (*FeedPage, error) {
	subscriber = strings.TrimSpace(subscriber)
	if subscriber == "" {
		return nil, fmt.Errorf("%w: subscriber is required", ErrInvalidArgument)
	}

	since, err := parseSince(q.Since)
	if err != nil {
		return nil, err
	}
	if err := validContentType(q.ContentType); err != nil {
		return nil, err
	}

	search := database.ContentSearch{
		Subscriber:  subscriber,
		ContentType: q.ContentType,
		Since:       since,
		Limit:       clamp(q.Limit, DefaultFeedLimit, MaxFeedLimit),
	}

	candidates, err := s.content.SearchContent(search)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	total, err := s.content.CountContent(search)
	if err != nil {
		return nil, fmt.Errorf("failed to count feed: %w", err)
	}

	return &FeedPage{
		Items: newContentViews(candidates),
		Total: total,
		Since: since,
	}, nil
}

// MySoup is the feed of a configured soup together with its sources.
func (s *Service) MySoup(handle string, q FeedQuery) (*MySoup, error) {
	label, ok := s.sources.GetLabel(handle)
	if !ok {
		return nil, fmt.Errorf("%w: soup %s", ErrNotFound, handle)
	}

	page, err := s.Feed(handle, q)
	if err != nil {
		return nil, err
	}

	descriptors := s.sources.GetSources(handle)
	sources := make([]SoupSource, 0, len(descriptors))
	for _, d := range descriptors {
		entry := SoupSource{FeedURL: d.FeedURL, Type: d.Type, Name: d.Name}

		publisher, err := s.publishers.GetPublisherBySiteURL(d.FeedURL)
		if err != nil {
			return nil, err
		}
		if publisher != nil {
			entry.CreatorID = publisher.ID
			if entry.Name == "" {
				entry.Name = publisher.Name
			}
		}

		sources = append(sources, entry)
	}

	return &MySoup{
		Handle:      handle,
		DisplayName: label,
		Sources:     sources,
		Items:       page.Items,
		Total:       page.Total,
		Since:       page.Since,
	}, nil
}

// Trending returns recent items from trusted creators, most trusted first.
func (s *Service) Trending(days, limit int) ([]ContentView, error) {
	days = clamp(days, DefaultTrendingDays, MaxTrendingDays)
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	candidates, err := s.content.GetTrending(since, trendingMinTrust, clamp(limit, DefaultSearchLimit, MaxSearchLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to get trending content: %w", err)
	}

	return newContentViews(candidates), nil
}

func (s *Service) Stats() (*Stats, error) {
	stats, err := s.stats.GetGraphStats()
	if err != nil {
		return nil, err
	}

	return &Stats{
		Creators:      stats.Publishers,
		Content:       stats.Content,
		Subscriptions: stats.Subscriptions,
		Topics:        stats.Topics,
		LastCrawledAt: stats.LastCrawledAt,
	}, nil
}

func parseSince(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	since := feed.ParseTimestamp(value)
	if since == nil {
		return nil, fmt.Errorf("%w: cannot parse since %q", ErrInvalidArgument, value)
	}
	return since, nil
}

func validContentType(value string) error {
	if value == "" || feed.SourceType(value).Valid() {
		return nil
	}
	return fmt.Errorf("%w: content type must be article, video or audio, got %q", ErrInvalidArgument, value)
}

func clamp(value, fallback, upper int) int {
	if value <= 0 {
		return fallback
	}
	return min(value, upper)
}
