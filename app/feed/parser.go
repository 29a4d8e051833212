package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lysyi3m/rss-soup/app/source"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

const (
	untitledFeed = "Untitled Feed"
	untitledItem = "Untitled"
	unknownID    = "unknown"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run detects whether data is an RSS channel or an Atom feed and normalizes it.
// Any other document type yields source.ErrUnsupportedFormat.
func (p *Parser) Run(data []byte) (*Feed, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		channel, err := (&rss.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse RSS document: %v", source.ErrParse, err)
		}
		return normalizeChannel(channel), nil

	case gofeed.FeedTypeAtom:
		atomFeed, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse Atom document: %v", source.ErrParse, err)
		}
		return normalizeAtomFeed(atomFeed), nil

	default:
		return nil, fmt.Errorf("%w: document is neither an RSS channel nor an Atom feed", source.ErrUnsupportedFormat)
	}
}

func normalizeChannel(channel *rss.Feed) *Feed {
	result := &Feed{
		Title: cmp.Or(strings.TrimSpace(channel.Title), untitledFeed),
		Link:  strings.TrimSpace(channel.Link),
		Image: resolve(channel, channelImageChain),
		Items: make([]Item, 0, len(channel.Items)),
	}

	for _, item := range channel.Items {
		if item == nil {
			continue
		}
		result.Items = append(result.Items, normalizeRSSItem(item))
	}

	return result
}

func normalizeRSSItem(item *rss.Item) Item {
	return Item{
		ID:              cmp.Or(resolve(item, rssIDChain), unknownID),
		Title:           cmp.Or(strings.TrimSpace(item.Title), untitledItem),
		Link:            rssLink(item),
		Published:       resolveTime(item, rssPublishedChain),
		Description:     resolve(item, rssDescriptionChain),
		EnclosureURL:    rssEnclosure(item),
		Thumbnail:       resolve(item, rssThumbnailChain),
		DurationSeconds: resolveInt(item, rssDurationChain),
	}
}

func normalizeAtomFeed(atomFeed *atom.Feed) *Feed {
	result := &Feed{
		Title: cmp.Or(strings.TrimSpace(atomFeed.Title), untitledFeed),
		Link:  alternateLink(atomFeed.Links),
		Image: firstNonEmpty(atomFeed.Logo, atomFeed.Icon),
		Items: make([]Item, 0, len(atomFeed.Entries)),
	}

	for _, entry := range atomFeed.Entries {
		if entry == nil {
			continue
		}
		result.Items = append(result.Items, normalizeAtomEntry(entry))
	}

	return result
}

func normalizeAtomEntry(entry *atom.Entry) Item {
	return Item{
		ID:              cmp.Or(resolve(entry, atomIDChain), unknownID),
		Title:           cmp.Or(strings.TrimSpace(entry.Title), untitledItem),
		Link:            alternateLink(entry.Links),
		Published:       resolveTime(entry, atomPublishedChain),
		Description:     resolve(entry, atomDescriptionChain),
		EnclosureURL:    enclosureLink(entry.Links),
		Thumbnail:       resolve(entry, atomThumbnailChain),
		DurationSeconds: resolveInt(entry, atomDurationChain),
	}
}

// Resolution chains. Each entry is tried in order and the first non-empty
// result wins.

var channelImageChain = []func(*rss.Feed) string{
	func(c *rss.Feed) string {
		if c.Image != nil {
			return c.Image.URL
		}
		return ""
	},
	func(c *rss.Feed) string {
		if c.ITunesExt != nil {
			return c.ITunesExt.Image
		}
		return ""
	},
	func(c *rss.Feed) string { return extensionAttr(c.Extensions, "itunes", "image", "href") },
}

var rssIDChain = []func(*rss.Item) string{
	func(i *rss.Item) string { return videoID(i.Extensions) },
	func(i *rss.Item) string {
		if i.GUID != nil {
			return i.GUID.Value
		}
		return ""
	},
	rssLink,
	func(i *rss.Item) string { return i.Title },
}

var rssDescriptionChain = []func(*rss.Item) string{
	func(i *rss.Item) string { return i.Content },
	func(i *rss.Item) string { return i.Description },
	func(i *rss.Item) string { return extensionValue(i.Extensions, "atom", "summary") },
}

var rssPublishedChain = []func(*rss.Item) *time.Time{
	func(i *rss.Item) *time.Time { return utc(i.PubDateParsed) },
	func(i *rss.Item) *time.Time { return parseTime(i.PubDate) },
	func(i *rss.Item) *time.Time {
		if i.DublinCoreExt != nil && len(i.DublinCoreExt.Date) > 0 {
			return parseTime(i.DublinCoreExt.Date[0])
		}
		return nil
	},
}

var rssThumbnailChain = []func(*rss.Item) string{
	func(i *rss.Item) string { return mediaThumbnail(i.Extensions) },
	func(i *rss.Item) string { return groupThumbnail(i.Extensions) },
	func(i *rss.Item) string { return imageMediaContent(i.Extensions) },
	func(i *rss.Item) string {
		if i.ITunesExt != nil && i.ITunesExt.Image != "" {
			return i.ITunesExt.Image
		}
		return extensionAttr(i.Extensions, "itunes", "image", "href")
	},
	func(i *rss.Item) string { return imageURLOrEmpty(rssEnclosure(i)) },
}

var rssDurationChain = []func(*rss.Item) int{
	func(i *rss.Item) int { return platformDuration(i.Extensions) },
	func(i *rss.Item) int { return mediaContentDuration(i.Extensions) },
	func(i *rss.Item) int {
		if i.ITunesExt != nil && i.ITunesExt.Duration != "" {
			return ParseDuration(i.ITunesExt.Duration)
		}
		return ParseDuration(extensionValue(i.Extensions, "itunes", "duration"))
	},
}

var atomIDChain = []func(*atom.Entry) string{
	func(e *atom.Entry) string { return videoID(e.Extensions) },
	func(e *atom.Entry) string { return e.ID },
	func(e *atom.Entry) string { return alternateLink(e.Links) },
	func(e *atom.Entry) string { return e.Title },
}

var atomDescriptionChain = []func(*atom.Entry) string{
	func(e *atom.Entry) string { return e.Summary },
	func(e *atom.Entry) string {
		if e.Content != nil {
			return e.Content.Value
		}
		return ""
	},
	func(e *atom.Entry) string { return groupDescription(e.Extensions) },
}

var atomPublishedChain = []func(*atom.Entry) *time.Time{
	func(e *atom.Entry) *time.Time { return utc(e.PublishedParsed) },
	func(e *atom.Entry) *time.Time { return parseTime(e.Published) },
	func(e *atom.Entry) *time.Time { return utc(e.UpdatedParsed) },
	func(e *atom.Entry) *time.Time { return parseTime(e.Updated) },
}

var atomThumbnailChain = []func(*atom.Entry) string{
	func(e *atom.Entry) string { return mediaThumbnail(e.Extensions) },
	func(e *atom.Entry) string { return groupThumbnail(e.Extensions) },
	func(e *atom.Entry) string { return imageMediaContent(e.Extensions) },
	func(e *atom.Entry) string { return extensionAttr(e.Extensions, "itunes", "image", "href") },
	func(e *atom.Entry) string { return imageEnclosureLink(e.Links) },
	func(e *atom.Entry) string { return imageURLOrEmpty(enclosureLink(e.Links)) },
}

var atomDurationChain = []func(*atom.Entry) int{
	func(e *atom.Entry) int { return platformDuration(e.Extensions) },
	func(e *atom.Entry) int { return mediaContentDuration(e.Extensions) },
	func(e *atom.Entry) int { return ParseDuration(extensionValue(e.Extensions, "itunes", "duration")) },
}

func resolve[T any](src T, chain []func(T) string) string {
	for _, fn := range chain {
		if value := strings.TrimSpace(fn(src)); value != "" {
			return value
		}
	}
	return ""
}

func resolveTime[T any](src T, chain []func(T) *time.Time) *time.Time {
	for _, fn := range chain {
		if value := fn(src); value != nil {
			return value
		}
	}
	return nil
}

func resolveInt[T any](src T, chain []func(T) int) int {
	for _, fn := range chain {
		if value := fn(src); value > 0 {
			return value
		}
	}
	return 0
}

func rssLink(item *rss.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if len(item.Links) > 0 {
		return strings.TrimSpace(item.Links[0])
	}
	return ""
}

func rssEnclosure(item *rss.Item) string {
	if item.Enclosure != nil {
		return strings.TrimSpace(item.Enclosure.URL)
	}
	return ""
}

func alternateLink(links []*atom.Link) string {
	var first string
	for _, link := range links {
		if link == nil || link.Href == "" {
			continue
		}
		if link.Rel == "alternate" {
			return link.Href
		}
		if first == "" {
			first = link.Href
		}
	}
	return first
}

func enclosureLink(links []*atom.Link) string {
	for _, link := range links {
		if link != nil && link.Rel == "enclosure" && link.Href != "" {
			return link.Href
		}
	}
	return ""
}

func imageEnclosureLink(links []*atom.Link) string {
	for _, link := range links {
		if link == nil || link.Href == "" {
			continue
		}
		if strings.EqualFold(link.Rel, "enclosure") && strings.HasPrefix(strings.ToLower(link.Type), "image/") {
			return link.Href
		}
	}
	return ""
}

// ParseTimestamp parses the loosely formatted dates found in feeds and profile
// documents. It returns nil for empty or unparseable input.
func ParseTimestamp(value string) *time.Time {
	return parseTime(value)
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := dateparse.ParseAny(value)
	if err != nil {
		return nil
	}
	return utc(&parsed)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
