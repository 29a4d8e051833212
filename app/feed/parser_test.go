package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/rss-soup/app/source"
)

func TestParsePodcastRSS(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0"
  xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"
  xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Podcast</title>
    <link>https://pod.example.com</link>
    <description>Weekly episodes</description>
    <itunes:image href="https://pod.example.com/cover.png"/>
    <item>
      <title>Episode 1</title>
      <link>https://pod.example.com/1</link>
      <guid>ep-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <description>Short description</description>
      <content:encoded><![CDATA[<p>Full <b>show</b> notes</p>]]></content:encoded>
      <enclosure url="https://cdn.example.com/ep1.mp3" type="audio/mpeg" length="12345"/>
      <itunes:duration>02:15</itunes:duration>
      <itunes:image href="https://pod.example.com/ep1.jpg"/>
    </item>
    <item>
      <link>https://pod.example.com/2</link>
      <enclosure url="https://cdn.example.com/ep2.png" type="image/png" length="1"/>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	result, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Test Podcast" {
		t.Errorf("Expected title 'Test Podcast', got: %s", result.Title)
	}
	if result.Link != "https://pod.example.com" {
		t.Errorf("Expected link 'https://pod.example.com', got: %s", result.Link)
	}
	if result.Image != "https://pod.example.com/cover.png" {
		t.Errorf("Expected feed image from itunes:image, got: %s", result.Image)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(result.Items))
	}

	item := result.Items[0]
	if item.ID != "ep-1" {
		t.Errorf("Expected ID 'ep-1', got: %s", item.ID)
	}
	if item.Description != "<p>Full <b>show</b> notes</p>" {
		t.Errorf("Expected content:encoded to win over description, got: %s", item.Description)
	}
	if item.DurationSeconds != 135 {
		t.Errorf("Expected duration 135, got: %d", item.DurationSeconds)
	}
	if item.EnclosureURL != "https://cdn.example.com/ep1.mp3" {
		t.Errorf("Expected enclosure URL, got: %s", item.EnclosureURL)
	}
	if item.Thumbnail != "https://pod.example.com/ep1.jpg" {
		t.Errorf("Expected itunes image thumbnail, got: %s", item.Thumbnail)
	}
	expected := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if item.Published == nil || !item.Published.Equal(expected) {
		t.Errorf("Expected published %v, got: %v", expected, item.Published)
	}

	second := result.Items[1]
	if second.Title != "Untitled" {
		t.Errorf("Expected default title 'Untitled', got: %s", second.Title)
	}
	if second.ID != "https://pod.example.com/2" {
		t.Errorf("Expected link to be used as ID, got: %s", second.ID)
	}
	if second.Thumbnail != "https://cdn.example.com/ep2.png" {
		t.Errorf("Expected image enclosure as thumbnail, got: %s", second.Thumbnail)
	}
	if second.Published != nil {
		t.Errorf("Expected nil published date, got: %v", second.Published)
	}
}

func TestParseRSSMediaThumbnail(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <item>
      <title>With media</title>
      <guid>m-1</guid>
      <media:thumbnail url="https://img.example.com/thumb.jpg"/>
      <media:content url="https://cdn.example.com/video.mp4" type="video/mp4" duration="900"/>
      <enclosure url="https://img.example.com/other.png" type="image/png" length="1"/>
    </item>
  </channel>
</rss>`

	result, err := NewParser().Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Untitled Feed" {
		t.Errorf("Expected default feed title, got: %s", result.Title)
	}

	item := result.Items[0]
	if item.Thumbnail != "https://img.example.com/thumb.jpg" {
		t.Errorf("Expected media:thumbnail to win, got: %s", item.Thumbnail)
	}
	if item.DurationSeconds != 900 {
		t.Errorf("Expected media:content duration 900, got: %d", item.DurationSeconds)
	}
}

func TestParseYouTubeAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
  <title>Test Channel</title>
  <link rel="self" href="https://www.youtube.com/feeds/videos.xml?channel_id=UC1"/>
  <link rel="alternate" href="https://www.youtube.com/channel/UC1"/>
  <entry>
    <id>yt:video:abcdefghijk</id>
    <yt:videoId>abcdefghijk</yt:videoId>
    <title>Long Video</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=abcdefghijk"/>
    <published>2024-01-02T03:04:05+00:00</published>
    <updated>2024-01-03T03:04:05+00:00</updated>
    <media:group>
      <media:title>Long Video</media:title>
      <media:content url="https://www.youtube.com/v/abcdefghijk" type="application/x-shockwave-flash" width="640" height="390"/>
      <media:thumbnail url="https://i.ytimg.com/vi/abcdefghijk/hqdefault.jpg" width="480" height="360"/>
      <media:description>A long walkthrough</media:description>
    </media:group>
  </entry>
</feed>`

	result, err := NewParser().Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Test Channel" {
		t.Errorf("Expected title 'Test Channel', got: %s", result.Title)
	}
	if result.Link != "https://www.youtube.com/channel/UC1" {
		t.Errorf("Expected alternate link, got: %s", result.Link)
	}

	item := result.Items[0]
	if item.ID != "abcdefghijk" {
		t.Errorf("Expected platform video id, got: %s", item.ID)
	}
	if item.Link != "https://www.youtube.com/watch?v=abcdefghijk" {
		t.Errorf("Expected watch link, got: %s", item.Link)
	}
	if item.Thumbnail != "https://i.ytimg.com/vi/abcdefghijk/hqdefault.jpg" {
		t.Errorf("Expected group thumbnail, got: %s", item.Thumbnail)
	}
	if item.Description != "A long walkthrough" {
		t.Errorf("Expected media description, got: %s", item.Description)
	}
	expected := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if item.Published == nil || !item.Published.Equal(expected) {
		t.Errorf("Expected published %v, got: %v", expected, item.Published)
	}
}

func TestParseAtomEnclosureLinks(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Blog</title>
  <logo>https://blog.example.com/logo.png</logo>
  <entry>
    <id>urn:entry:1</id>
    <title>Post</title>
    <link rel="enclosure" type="image/jpeg" href="https://blog.example.com/cover.jpg"/>
    <link rel="alternate" href="https://blog.example.com/post"/>
    <summary>Summary text</summary>
    <updated>2024-05-01T00:00:00Z</updated>
  </entry>
</feed>`

	result, err := NewParser().Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Image != "https://blog.example.com/logo.png" {
		t.Errorf("Expected logo as feed image, got: %s", result.Image)
	}

	item := result.Items[0]
	if item.ID != "urn:entry:1" {
		t.Errorf("Expected entry id, got: %s", item.ID)
	}
	if item.Link != "https://blog.example.com/post" {
		t.Errorf("Expected alternate link to be preferred, got: %s", item.Link)
	}
	if item.EnclosureURL != "https://blog.example.com/cover.jpg" {
		t.Errorf("Expected enclosure URL, got: %s", item.EnclosureURL)
	}
	if item.Thumbnail != "https://blog.example.com/cover.jpg" {
		t.Errorf("Expected image enclosure thumbnail, got: %s", item.Thumbnail)
	}
	if item.Description != "Summary text" {
		t.Errorf("Expected summary, got: %s", item.Description)
	}
	if item.Published == nil || item.Published.Year() != 2024 {
		t.Errorf("Expected updated date fallback, got: %v", item.Published)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	documents := []string{
		`<html><body><p>Not a feed</p></body></html>`,
		`{"version": "https://jsonfeed.org/version/1.1", "title": "JSON"}`,
		`plain text`,
	}

	for _, doc := range documents {
		_, err := NewParser().Run([]byte(doc))
		if !errors.Is(err, source.ErrUnsupportedFormat) {
			t.Errorf("Expected unsupported format error for %q, got: %v", doc, err)
		}
	}
}
