package feed

import (
	"fmt"
	"net/url"
	"strings"
)

const MinLongFormVideoSeconds = 180

var shortFormMarkers = []string{"#shorts", "/shorts/"}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run reports whether item should be kept out of the content graph for the
// given source, with a human readable reason.
func (f *Filterer) Run(item Item, descriptor SourceDescriptor) (bool, string) {
	if descriptor.Type == SourceTypeVideo && IsShortForm(descriptor.FeedURL, item) {
		return true, "Excluded by long-form policy: short-form video"
	}

	return f.applyFilters(item, descriptor.Filters)
}

// IsShortForm applies the long-form policy. Only feeds from a recognized video
// platform are checked; everything else is always long-form.
func IsShortForm(feedURL string, item Item) bool {
	if !IsVideoPlatformFeed(feedURL) {
		return false
	}

	if item.DurationSeconds > 0 && item.DurationSeconds < MinLongFormVideoSeconds {
		return true
	}

	markerText := strings.ToLower(strings.Join([]string{item.Title, item.Description, item.Link}, " "))
	for _, marker := range shortFormMarkers {
		if strings.Contains(markerText, marker) {
			return true
		}
	}

	return false
}

func IsVideoPlatformFeed(feedURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(feedURL))
	if err != nil || parsed.Host == "" {
		return strings.Contains(feedURL, "youtube.com/feeds/videos.xml")
	}

	host := strings.ToLower(parsed.Hostname())
	return (host == "youtube.com" || host == "www.youtube.com") && parsed.Path == "/feeds/videos.xml"
}

func (f *Filterer) applyFilters(item Item, filters []SourceFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "link":
		return item.Link
	default:
		return ""
	}
}
