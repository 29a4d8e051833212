package feed

import (
	"strings"
	"testing"
)

const youTubeFeed = "https://www.youtube.com/feeds/videos.xml?channel_id=UC123"

func TestFilterer_ShortFormByDuration(t *testing.T) {
	filterer := NewFilterer()
	descriptor := SourceDescriptor{FeedURL: youTubeFeed, Type: SourceTypeVideo}

	short := Item{Title: "Quick tip", DurationSeconds: 45}
	if excluded, _ := filterer.Run(short, descriptor); !excluded {
		t.Errorf("Expected 45s video to be excluded")
	}

	long := Item{Title: "Deep dive", DurationSeconds: 900}
	if excluded, reason := filterer.Run(long, descriptor); excluded {
		t.Errorf("Expected 900s video to be kept, got reason: %s", reason)
	}

	unknown := Item{Title: "No duration"}
	if excluded, _ := filterer.Run(unknown, descriptor); excluded {
		t.Errorf("Expected video without duration or markers to be kept")
	}
}

func TestFilterer_ShortFormByMarker(t *testing.T) {
	filterer := NewFilterer()
	item := Item{Title: "Watch this #Shorts"}

	video := SourceDescriptor{FeedURL: youTubeFeed, Type: SourceTypeVideo}
	if excluded, reason := filterer.Run(item, video); !excluded || !strings.Contains(reason, "long-form") {
		t.Errorf("Expected marker to exclude item, got excluded=%v reason=%q", excluded, reason)
	}

	linkItem := Item{Title: "Clip", Link: "https://www.youtube.com/shorts/abcdefghijk"}
	if excluded, _ := filterer.Run(linkItem, video); !excluded {
		t.Errorf("Expected /shorts/ link to exclude item")
	}

	article := SourceDescriptor{FeedURL: "https://blog.example.com/feed", Type: SourceTypeArticle}
	if excluded, _ := filterer.Run(item, article); excluded {
		t.Errorf("Expected marker from a non-video source not to be filtered")
	}

	otherVideo := SourceDescriptor{FeedURL: "https://vimeo.com/channels/staffpicks/videos/rss", Type: SourceTypeVideo}
	if excluded, _ := filterer.Run(item, otherVideo); excluded {
		t.Errorf("Expected marker from an unrecognized video feed not to be filtered")
	}
}

func TestIsVideoPlatformFeed(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://www.youtube.com/feeds/videos.xml?channel_id=UC1", true},
		{"https://youtube.com/feeds/videos.xml?playlist_id=PL1", true},
		{"https://m.youtube.com/feeds/videos.xml", false},
		{"https://www.youtube.com/channel/UC1", false},
		{"https://example.com/feeds/videos.xml", false},
	}

	for _, tt := range tests {
		if got := IsVideoPlatformFeed(tt.url); got != tt.expected {
			t.Errorf("IsVideoPlatformFeed(%q): expected %v, got %v", tt.url, tt.expected, got)
		}
	}
}

func TestFilterer_DescriptorFilters(t *testing.T) {
	filterer := NewFilterer()
	descriptor := SourceDescriptor{
		FeedURL: "https://blog.example.com/feed",
		Type:    SourceTypeArticle,
		Filters: []SourceFilter{
			{Field: "title", Excludes: []string{"sponsored"}},
			{Field: "description", Includes: []string{"golang", "rust"}},
		},
	}

	tests := []struct {
		name     string
		item     Item
		excluded bool
	}{
		{"excluded keyword", Item{Title: "Sponsored post", Description: "golang"}, true},
		{"missing include", Item{Title: "Post", Description: "python tips"}, true},
		{"matching include", Item{Title: "Post", Description: "Notes on Golang generics"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excluded, reason := filterer.Run(tt.item, descriptor)
			if excluded != tt.excluded {
				t.Errorf("Expected excluded=%v, got %v (%s)", tt.excluded, excluded, reason)
			}
		})
	}
}
