package feed

import (
	"time"
)

// Feed processing types

type Feed struct {
	Title string
	Link  string
	Image string
	Items []Item
}

// Item is one normalized RSS item or Atom entry. Empty strings and a zero
// DurationSeconds mean the source did not provide the field.
type Item struct {
	ID              string
	Title           string
	Link            string
	Published       *time.Time
	Description     string
	EnclosureURL    string
	Thumbnail       string
	DurationSeconds int
}

// Source configuration types

type SourceType string

const (
	SourceTypeArticle SourceType = "article"
	SourceTypeVideo   SourceType = "video"
	SourceTypeAudio   SourceType = "audio"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeArticle, SourceTypeVideo, SourceTypeAudio:
		return true
	}
	return false
}

// SourceDescriptor is one feed a consumer wants indexed.
type SourceDescriptor struct {
	FeedURL    string         `yaml:"feed_url"`
	Type       SourceType     `yaml:"type"`
	Name       string         `yaml:"name,omitempty"`
	SiteURL    string         `yaml:"site_url,omitempty"`
	Confidence float64        `yaml:"confidence,omitempty"`
	Filters    []SourceFilter `yaml:"filters,omitempty"`
}

type SourceFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// SourceSet is the list of sources for one consumer, loaded from <consumer>.yml.
type SourceSet struct {
	Consumer string             // Derived from filename (without .yml extension)
	Label    string             `yaml:"label,omitempty"`
	Sources  []SourceDescriptor `yaml:"sources"`
}
