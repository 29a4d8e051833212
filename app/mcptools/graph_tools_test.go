package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lysyi3m/rss-soup/app/graph"
)

type stubGraph struct {
	content  graph.ContentQuery
	creators graph.CreatorQuery
	feed     graph.FeedQuery
	calls    []string
	err      error
}

func (g *stubGraph) SearchContent(q graph.ContentQuery) ([]graph.ContentView, error) {
	g.content = q
	g.calls = append(g.calls, "content")
	return []graph.ContentView{{Slug: "essay", Topics: []string{"ai"}}}, g.err
}

func (g *stubGraph) SearchCreators(q graph.CreatorQuery) ([]graph.CreatorView, error) {
	g.creators = q
	g.calls = append(g.calls, "creators")
	return []graph.CreatorView{{Handle: "alpha"}}, g.err
}

func (g *stubGraph) Profile(idOrHandle string) (*graph.Profile, error) {
	g.calls = append(g.calls, "profile:"+idOrHandle)
	if g.err != nil {
		return nil, g.err
	}
	return &graph.Profile{Creator: graph.CreatorView{Handle: idOrHandle}}, nil
}

func (g *stubGraph) LatestFrom(name, contentType string, limit int) (*graph.Profile, error) {
	g.calls = append(g.calls, fmt.Sprintf("latest:%s:%s:%d", name, contentType, limit))
	return &graph.Profile{Creator: graph.CreatorView{Name: name}}, g.err
}

func (g *stubGraph) Feed(subscriber string, q graph.FeedQuery) (*graph.FeedPage, error) {
	g.feed = q
	g.calls = append(g.calls, "feed:"+subscriber)
	return &graph.FeedPage{Items: []graph.ContentView{}, Total: 7}, g.err
}

func (g *stubGraph) MySoup(handle string, q graph.FeedQuery) (*graph.MySoup, error) {
	g.feed = q
	g.calls = append(g.calls, "soup:"+handle)
	return &graph.MySoup{Handle: handle, DisplayName: handle}, g.err
}

func (g *stubGraph) Trending(days, limit int) ([]graph.ContentView, error) {
	g.calls = append(g.calls, fmt.Sprintf("trending:%d:%d", days, limit))
	return []graph.ContentView{}, g.err
}

func (g *stubGraph) Stats() (*graph.Stats, error) {
	g.calls = append(g.calls, "stats")
	return &graph.Stats{Creators: 3, Topics: 5}, g.err
}

func newGraphHandlers() (*handlers, *stubGraph) {
	h, _, _ := newTestHandlers(&inlineScheduler{})
	g := &stubGraph{}
	h.deps.Graph = g
	return h, g
}

func TestSearchTool(t *testing.T) {
	h, g := newGraphHandlers()

	result, err := h.search(context.Background(), callRequest(ToolSearch, map[string]any{
		"search_type":  "content",
		"query":        "agents",
		"content_type": "video",
		"since":        "2025-03-01",
		"limit":        float64(5),
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got %s", resultText(t, result))
	}
	if g.content.Query != "agents" || g.content.ContentType != "video" || g.content.Since != "2025-03-01" || g.content.Limit != 5 {
		t.Errorf("Unexpected content query: %+v", g.content)
	}
	if !strings.Contains(resultText(t, result), `"slug": "essay"`) {
		t.Errorf("Expected content in %s", resultText(t, result))
	}

	result, _ = h.search(context.Background(), callRequest(ToolSearch, map[string]any{
		"search_type": "creators",
		"topic":       "design",
	}))
	if result.IsError || g.creators.Topic != "design" || g.creators.Limit != graph.DefaultSearchLimit {
		t.Errorf("Unexpected creator search: %+v", g.creators)
	}

	result, _ = h.search(context.Background(), callRequest(ToolSearch, map[string]any{"search_type": "podcasts"}))
	if !result.IsError {
		t.Error("Expected error for unknown search type")
	}
}

func TestFeedTool(t *testing.T) {
	h, g := newGraphHandlers()

	result, _ := h.feed(context.Background(), callRequest(ToolFeed, map[string]any{"subscriber_id": "reader"}))
	if result.IsError {
		t.Fatalf("Expected success, got %s", resultText(t, result))
	}
	if g.feed.Limit != graph.DefaultFeedLimit || g.calls[0] != "feed:reader" {
		t.Errorf("Unexpected feed call: %v %+v", g.calls, g.feed)
	}
	if !strings.Contains(resultText(t, result), `"total": 7`) {
		t.Errorf("Expected total in %s", resultText(t, result))
	}

	result, _ = h.feed(context.Background(), callRequest(ToolFeed, map[string]any{}))
	if !result.IsError {
		t.Error("Expected error without subscriber_id")
	}
}

func TestProfileTool_NotFound(t *testing.T) {
	h, g := newGraphHandlers()
	g.err = fmt.Errorf("%w: creator nobody", graph.ErrNotFound)

	result, _ := h.profile(context.Background(), callRequest(ToolProfile, map[string]any{"creator_id": "nobody"}))
	if !result.IsError || !strings.Contains(resultText(t, result), "not found: creator nobody") {
		t.Errorf("Expected not found error, got %s", resultText(t, result))
	}
}

func TestTrendingAndLatestTools(t *testing.T) {
	h, g := newGraphHandlers()

	h.trending(context.Background(), callRequest(ToolTrending, map[string]any{"days": float64(14)}))
	h.latestFrom(context.Background(), callRequest(ToolLatestFrom, map[string]any{
		"source":       "Alpha Weekly",
		"content_type": "audio",
	}))

	expected := []string{
		fmt.Sprintf("trending:14:%d", graph.DefaultSearchLimit),
		fmt.Sprintf("latest:Alpha Weekly:audio:%d", graph.DefaultLatestLimit),
	}
	if len(g.calls) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, g.calls)
	}
	for i := range expected {
		if g.calls[i] != expected[i] {
			t.Errorf("Expected call %s, got %s", expected[i], g.calls[i])
		}
	}
}

func TestMySoupAndStatsTools(t *testing.T) {
	h, g := newGraphHandlers()

	result, _ := h.mySoup(context.Background(), callRequest(ToolMySoup, map[string]any{
		"handle":       "kieran",
		"content_type": "video",
	}))
	if result.IsError || g.feed.ContentType != "video" {
		t.Errorf("Unexpected my soup call: %s %+v", resultText(t, result), g.feed)
	}

	result, _ = h.stats(context.Background(), callRequest(ToolStats, map[string]any{}))
	if !strings.Contains(resultText(t, result), `"topics": 5`) {
		t.Errorf("Expected topic count in %s", resultText(t, result))
	}

	g.err = errors.New("database is locked")
	result, _ = h.stats(context.Background(), callRequest(ToolStats, map[string]any{}))
	if !result.IsError || !strings.Contains(resultText(t, result), "Query error") {
		t.Errorf("Expected query error, got %s", resultText(t, result))
	}
}
