// Package transcript looks up caption tracks for platform videos and stores
// their text next to the content item.
package transcript

import (
	"bytes"
	"context"
	"encoding/xml"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lysyi3m/rss-soup/app/feed"
)

const (
	DefaultBaseURL = "https://www.youtube.com/api/timedtext"
	DefaultTimeout = 8 * time.Second

	MaxTranscriptLength = 50000

	acceptXML = "application/xml,text/xml"
)

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

type Transcript struct {
	Language string
	Text     string
}

// DocumentFetcher performs one bounded GET. *source.Fetcher satisfies it.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, documentURL, accept string, timeout time.Duration) ([]byte, error)
}

type Client struct {
	fetcher DocumentFetcher
	BaseURL string
	Timeout time.Duration
}

func NewClient(fetcher DocumentFetcher) *Client {
	return &Client{
		fetcher: fetcher,
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

type captionTrack struct {
	LangCode string `xml:"lang_code,attr"`
	Kind     string `xml:"kind,attr"`
	Name     string `xml:"name,attr"`
}

type trackList struct {
	Tracks []captionTrack `xml:"track"`
}

type captionDocument struct {
	Texts []string `xml:"text"`
}

// Fetch returns the best available transcript for videoID, or nil when none
// could be retrieved. Failures are never returned to the caller.
func (c *Client) Fetch(ctx context.Context, videoID string) *Transcript {
	if !videoIDPattern.MatchString(videoID) {
		return nil
	}

	tracks := parseTracks(c.get(ctx, url.Values{"type": {"list"}, "v": {videoID}}))

	if track, ok := bestTrack(tracks); ok {
		params := url.Values{"v": {videoID}, "lang": {track.LangCode}}
		if track.Kind != "" {
			params.Set("kind", track.Kind)
		}
		if track.Name != "" {
			params.Set("name", track.Name)
		}

		if text := parseText(c.get(ctx, params)); text != "" {
			return &Transcript{Language: track.LangCode, Text: text}
		}
	}

	text := parseText(c.get(ctx, url.Values{"v": {videoID}, "lang": {"en"}}))
	if text == "" {
		return nil
	}
	return &Transcript{Language: "en", Text: text}
}

// get returns the response body, or nil on any failure.
func (c *Client) get(ctx context.Context, params url.Values) []byte {
	requestURL := c.BaseURL + "?" + params.Encode()

	data, err := c.fetcher.FetchDocument(ctx, requestURL, acceptXML, c.Timeout)
	if err != nil {
		slog.Debug("Transcript request failed", "url", requestURL, "error", err)
		return nil
	}
	return data
}

// decodeXML accepts HTML named entities such as &nbsp; which caption
// documents use without declaring them.
func decodeXML(data []byte, v any) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(v)
}

func parseTracks(data []byte) []captionTrack {
	if len(data) == 0 {
		return nil
	}

	var list trackList
	if err := decodeXML(data, &list); err != nil {
		return nil
	}

	tracks := make([]captionTrack, 0, len(list.Tracks))
	for _, track := range list.Tracks {
		if strings.TrimSpace(track.LangCode) == "" {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks
}

// scoreTrack ranks English over other languages and authored captions over
// automatic ones.
func scoreTrack(track captionTrack) int {
	lang := strings.ToLower(track.LangCode)
	english := lang == "en" || strings.HasPrefix(lang, "en-")
	auto := strings.EqualFold(track.Kind, "asr")

	switch {
	case english && !auto:
		return 100
	case english:
		return 90
	case !auto:
		return 70
	default:
		return 60
	}
}

func bestTrack(tracks []captionTrack) (captionTrack, bool) {
	var best captionTrack
	bestScore := -1

	for _, track := range tracks {
		if score := scoreTrack(track); score > bestScore {
			best, bestScore = track, score
		}
	}

	return best, bestScore >= 0
}

func parseText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var doc captionDocument
	if err := decodeXML(data, &doc); err != nil {
		return ""
	}

	chunks := make([]string, 0, len(doc.Texts))
	for _, raw := range doc.Texts {
		if chunk := feed.CollapseWhitespace(html.UnescapeString(raw)); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	return feed.Truncate(strings.Join(chunks, " "), MaxTranscriptLength)
}

// ExtractVideoID accepts a bare video id or a watch, short-link or shorts URL.
// Anything else returns "".
func ExtractVideoID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if videoIDPattern.MatchString(value) {
		return value
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}

	var candidate string
	switch strings.ToLower(parsed.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if id := parsed.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id
		}
		parts := pathParts(parsed.Path)
		if len(parts) >= 2 && parts[0] == "shorts" {
			candidate = parts[1]
		}
	case "youtu.be":
		if parts := pathParts(parsed.Path); len(parts) > 0 {
			candidate = parts[0]
		}
	}

	if videoIDPattern.MatchString(candidate) {
		return candidate
	}
	return ""
}

func pathParts(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
