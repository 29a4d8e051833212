package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/graph"
	"github.com/lysyi3m/rss-soup/app/recommend"
	"github.com/lysyi3m/rss-soup/app/source"
	"github.com/lysyi3m/rss-soup/app/tasks"
)

type Recommender interface {
	Serve(ctx context.Context, req recommend.ServeRequest) (*recommend.Result, error)
}

type Discoverer interface {
	Run(ctx context.Context, pageURL, title string) []feed.SourceCandidate
}

type GraphReader interface {
	SearchContent(q graph.ContentQuery) ([]graph.ContentView, error)
	SearchCreators(q graph.CreatorQuery) ([]graph.CreatorView, error)
	Profile(idOrHandle string) (*graph.Profile, error)
	LatestFrom(name, contentType string, limit int) (*graph.Profile, error)
	Feed(subscriber string, q graph.FeedQuery) (*graph.FeedPage, error)
	MySoup(handle string, q graph.FeedQuery) (*graph.MySoup, error)
	Trending(days, limit int) ([]graph.ContentView, error)
	Stats() (*graph.Stats, error)
}

// Dependencies of the tools. A nil Scheduler disables the index tools.
type Dependencies struct {
	Sources      *feed.SourceCache
	Indexer      tasks.Indexer
	Scheduler    tasks.TaskSchedulerInterface
	Recommender  Recommender
	Discoverer   Discoverer
	Graph        GraphReader
	LimitPerFeed int
	Version      string
}

type handlers struct {
	deps Dependencies
}

func newHandlers(deps Dependencies) *handlers {
	return &handlers{deps: deps}
}

func (h *handlers) serve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil || prompt == "" {
		return mcp.NewToolResultError("Error: prompt parameter is required"), nil
	}

	result, err := h.deps.Recommender.Serve(ctx, recommend.ServeRequest{
		Prompt:   prompt,
		Consumer: request.GetString("consumer", ""),
		Days:     request.GetInt("days", recommend.DefaultDays),
		Limit:    request.GetInt("limit", recommend.DefaultLimit),
		Refresh:  request.GetBool("refresh", false),
	})
	if err != nil {
		slog.Error("Serve failed", "tool", ToolServe, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Serve error: %v", err)), nil
	}

	return jsonResult(result)
}

func (h *handlers) indexProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	siteURL, err := request.RequireString("site_url")
	if err != nil || source.NormalizeURL(siteURL) == "" {
		return mcp.NewToolResultError("Error: site_url parameter is required"), nil
	}

	if h.deps.Scheduler == nil {
		return indexingDisabled(), nil
	}

	task := tasks.NewIndexProfileTask(source.NormalizeURL(siteURL), h.deps.Indexer)
	if err := h.deps.Scheduler.RunTask(ctx, task); err != nil && !errors.Is(err, tasks.ErrCrawlFailed) {
		return taskError(task, err), nil
	}

	return jsonResult(task.Result)
}

func (h *handlers) indexSoup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := request.RequireString("handle")
	if err != nil || handle == "" {
		return mcp.NewToolResultError("Error: handle parameter is required"), nil
	}
	if len(h.deps.Sources.GetSources(handle)) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("Soup not found: %s", handle)), nil
	}

	if h.deps.Scheduler == nil {
		return indexingDisabled(), nil
	}

	task := tasks.NewIndexSourcesTask(handle, h.deps.LimitPerFeed, h.deps.Indexer)
	if err := h.deps.Scheduler.RunTask(ctx, task); err != nil {
		return taskError(task, err), nil
	}

	return jsonResult(task.Result)
}

func (h *handlers) discover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageURL, err := request.RequireString("url")
	if err != nil || pageURL == "" {
		return mcp.NewToolResultError("Error: url parameter is required"), nil
	}

	candidates := h.deps.Discoverer.Run(ctx, pageURL, request.GetString("title", ""))
	if candidates == nil {
		candidates = []feed.SourceCandidate{}
	}

	return jsonResult(candidates)
}

func (h *handlers) search(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	searchType, err := request.RequireString("search_type")
	if err != nil {
		return mcp.NewToolResultError("Error: search_type parameter is required"), nil
	}

	switch searchType {
	case "creators":
		creators, err := h.deps.Graph.SearchCreators(graph.CreatorQuery{
			Query: request.GetString("query", ""),
			Topic: request.GetString("topic", ""),
			Limit: request.GetInt("limit", graph.DefaultSearchLimit),
		})
		if err != nil {
			return graphError(ToolSearch, err), nil
		}
		return jsonResult(creators)

	case "content":
		content, err := h.deps.Graph.SearchContent(graph.ContentQuery{
			Query:       request.GetString("query", ""),
			Topic:       request.GetString("topic", ""),
			ContentType: request.GetString("content_type", ""),
			Since:       request.GetString("since", ""),
			Limit:       request.GetInt("limit", graph.DefaultSearchLimit),
		})
		if err != nil {
			return graphError(ToolSearch, err), nil
		}
		return jsonResult(content)
	}

	return mcp.NewToolResultError(fmt.Sprintf("Error: search_type must be creators or content, got %q", searchType)), nil
}

func (h *handlers) feed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subscriber, err := request.RequireString("subscriber_id")
	if err != nil || subscriber == "" {
		return mcp.NewToolResultError("Error: subscriber_id parameter is required"), nil
	}

	page, err := h.deps.Graph.Feed(subscriber, graph.FeedQuery{
		Since: request.GetString("since", ""),
		Limit: request.GetInt("limit", graph.DefaultFeedLimit),
	})
	if err != nil {
		return graphError(ToolFeed, err), nil
	}

	return jsonResult(page)
}

func (h *handlers) profile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creatorID, err := request.RequireString("creator_id")
	if err != nil || creatorID == "" {
		return mcp.NewToolResultError("Error: creator_id parameter is required"), nil
	}

	profile, err := h.deps.Graph.Profile(creatorID)
	if err != nil {
		return graphError(ToolProfile, err), nil
	}

	return jsonResult(profile)
}

func (h *handlers) trending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := h.deps.Graph.Trending(
		request.GetInt("days", graph.DefaultTrendingDays),
		request.GetInt("limit", graph.DefaultSearchLimit),
	)
	if err != nil {
		return graphError(ToolTrending, err), nil
	}

	return jsonResult(content)
}

func (h *handlers) latestFrom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("source")
	if err != nil || name == "" {
		return mcp.NewToolResultError("Error: source parameter is required"), nil
	}

	profile, err := h.deps.Graph.LatestFrom(name,
		request.GetString("content_type", ""),
		request.GetInt("limit", graph.DefaultLatestLimit),
	)
	if err != nil {
		return graphError(ToolLatestFrom, err), nil
	}

	return jsonResult(profile)
}

func (h *handlers) mySoup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := request.RequireString("handle")
	if err != nil || handle == "" {
		return mcp.NewToolResultError("Error: handle parameter is required"), nil
	}

	soup, err := h.deps.Graph.MySoup(handle, graph.FeedQuery{
		Since:       request.GetString("since", ""),
		ContentType: request.GetString("content_type", ""),
		Limit:       request.GetInt("limit", graph.DefaultFeedLimit),
	})
	if err != nil {
		return graphError(ToolMySoup, err), nil
	}

	return jsonResult(soup)
}

func (h *handlers) stats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.deps.Graph.Stats()
	if err != nil {
		return graphError(ToolStats, err), nil
	}

	return jsonResult(stats)
}

func graphError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, graph.ErrInvalidArgument) || errors.Is(err, graph.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err))
	}

	slog.Error("Graph query failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("Query error: %v", err))
}

func indexingDisabled() *mcp.CallToolResult {
	return mcp.NewToolResultError("Indexing is disabled: set --server-url so index requests go to the soup server")
}

func taskError(task tasks.TaskInterface, err error) *mcp.CallToolResult {
	slog.Error("Task request failed", "type", task.GetType(), "target", task.GetTarget(), "error", err)

	if errors.Is(err, tasks.ErrQueueFull) {
		return mcp.NewToolResultError("Indexer is busy, try again later")
	}
	if errors.Is(err, tasks.ErrTaskPending) {
		return mcp.NewToolResultError(fmt.Sprintf("Task %s is still running; its results will be stored when it finishes", task.GetID()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Task error: %v", err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(data)),
		},
	}, nil
}
