package feed

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/rss-soup/app/source"
)

const (
	DefaultDiscoveryTimeout = 8 * time.Second

	acceptHTML = "text/html"
)

var (
	channelIDPattern = regexp.MustCompile(`"(?:channelId|browseId)":"(UC[a-zA-Z0-9_-]+)"`)
	audioHosts       = []string{"podcast", "megaphone", "simplecast", "fireside", "spreaker", "rss"}
)

// SourceCandidate is a feed inferred from a page URL. Confidence reflects how
// the feed was found, from 0.6 for a guessed podcast path to 0.9 for a direct
// feed link.
type SourceCandidate struct {
	Name       string     `json:"name"`
	Type       SourceType `json:"type"`
	FeedURL    string     `json:"feedUrl"`
	SiteURL    string     `json:"siteUrl"`
	Confidence float64    `json:"confidence"`
}

type PageFetcher interface {
	FetchDocument(ctx context.Context, documentURL, accept string, timeout time.Duration) ([]byte, error)
}

type Discoverer struct {
	fetcher PageFetcher
	Timeout time.Duration
}

func NewDiscoverer(fetcher PageFetcher) *Discoverer {
	return &Discoverer{fetcher: fetcher, Timeout: DefaultDiscoveryTimeout}
}

// Run infers candidate feeds for pageURL. title, when given, supplies the
// candidate name. Page fetch failures only remove the candidates that needed
// the page.
func (d *Discoverer) Run(ctx context.Context, pageURL, title string) []SourceCandidate {
	normalized := source.NormalizeURL(pageURL)
	if normalized == "" {
		return nil
	}

	nameHint := strings.TrimSpace(title)
	if before, _, found := strings.Cut(nameHint, " - "); found && strings.TrimSpace(before) != "" {
		nameHint = strings.TrimSpace(before)
	}
	name := func(fallback string) string {
		if nameHint != "" {
			return nameHint
		}
		return fallback
	}

	if _, rest, found := strings.Cut(normalized, "youtube.com/channel/"); found {
		if channelID, _, _ := strings.Cut(rest, "/"); channelID != "" {
			return []SourceCandidate{{
				Name:       name("YouTube Channel"),
				Type:       SourceTypeVideo,
				FeedURL:    youtubeFeedURL(channelID),
				SiteURL:    normalized,
				Confidence: 0.85,
			}}
		}
	}

	if strings.Contains(normalized, "youtube.com/@") {
		if channelID := d.resolveChannelID(ctx, normalized); channelID != "" {
			return []SourceCandidate{{
				Name:       name("YouTube Channel"),
				Type:       SourceTypeVideo,
				FeedURL:    youtubeFeedURL(channelID),
				SiteURL:    normalized,
				Confidence: 0.75,
			}}
		}
	}

	if strings.HasSuffix(normalized, ".rss") || strings.HasSuffix(normalized, ".xml") {
		return []SourceCandidate{{
			Name:       name("RSS Feed"),
			Type:       InferSourceType(normalized),
			FeedURL:    normalized,
			SiteURL:    normalized,
			Confidence: 0.9,
		}}
	}

	var candidates []SourceCandidate

	if strings.Contains(normalized, ".substack.com") {
		if parsed, err := url.Parse(normalized); err == nil {
			origin := parsed.Scheme + "://" + parsed.Host
			candidates = append(candidates, SourceCandidate{
				Name:       name("Substack"),
				Type:       SourceTypeArticle,
				FeedURL:    origin + "/feed",
				SiteURL:    origin,
				Confidence: 0.8,
			})
		}
	}

	if strings.Contains(normalized, "medium.com/") {
		if feedURL := mediumFeedURL(normalized); feedURL != "" {
			candidates = append(candidates, SourceCandidate{
				Name:       name("Medium"),
				Type:       SourceTypeArticle,
				FeedURL:    feedURL,
				SiteURL:    normalized,
				Confidence: 0.75,
			})
		}
	}

	if feedLink := d.findFeedLink(ctx, normalized); feedLink != "" {
		candidates = append(candidates, SourceCandidate{
			Name:       name("Site RSS"),
			Type:       InferSourceType(feedLink),
			FeedURL:    feedLink,
			SiteURL:    normalized,
			Confidence: 0.7,
		})
	} else if strings.Contains(normalized, "podcast") || strings.Contains(normalized, "feed") {
		feedURL := normalized
		if !strings.HasSuffix(feedURL, "/feed") {
			feedURL += "/feed"
		}
		candidates = append(candidates, SourceCandidate{
			Name:       name("Podcast"),
			Type:       SourceTypeAudio,
			FeedURL:    feedURL,
			SiteURL:    normalized,
			Confidence: 0.6,
		})
	}

	return candidates
}

// InferSourceType guesses the media type of a feed from its URL.
func InferSourceType(feedURL string) SourceType {
	lower := strings.ToLower(feedURL)
	if strings.Contains(lower, "youtube.com") {
		return SourceTypeVideo
	}
	for _, host := range audioHosts {
		if strings.Contains(lower, host) {
			return SourceTypeAudio
		}
	}
	return SourceTypeArticle
}

func (d *Discoverer) fetchPage(ctx context.Context, pageURL string) []byte {
	data, err := d.fetcher.FetchDocument(ctx, pageURL, acceptHTML, d.Timeout)
	if err != nil {
		slog.Debug("Discovery page fetch failed", "url", pageURL, "error", err)
		return nil
	}
	return data
}

func (d *Discoverer) findFeedLink(ctx context.Context, pageURL string) string {
	data := d.fetchPage(ctx, pageURL)
	if data == nil {
		return ""
	}
	return ExtractFeedLink(data, pageURL)
}

func (d *Discoverer) resolveChannelID(ctx context.Context, pageURL string) string {
	data := d.fetchPage(ctx, pageURL)
	if data == nil {
		return ""
	}
	if match := channelIDPattern.FindSubmatch(data); match != nil {
		return string(match[1])
	}
	return ""
}

// ExtractFeedLink returns the first RSS or Atom alternate link of an HTML page,
// resolved against baseURL.
func ExtractFeedLink(page []byte, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	var href string
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linkType := strings.ToLower(s.AttrOr("type", ""))
		if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
			return true
		}
		href = strings.TrimSpace(s.AttrOr("href", ""))
		return href == ""
	})

	if href == "" {
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func youtubeFeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + channelID
}

func mediumFeedURL(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		return ""
	}
	return "https://medium.com/feed" + path
}
