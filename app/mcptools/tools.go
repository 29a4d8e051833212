// Package mcptools exposes serving, indexing and the content graph queries as
// MCP tools so an assistant can ask for recommendations over stdio.
package mcptools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lysyi3m/rss-soup/app/graph"
	"github.com/lysyi3m/rss-soup/app/recommend"
)

const (
	ToolServe        = "soup_serve"
	ToolIndexProfile = "soup_index_profile"
	ToolIndexSoup    = "soup_index_soup"
	ToolDiscover     = "soup_discover"

	ToolSearch     = "soup_search"
	ToolFeed       = "soup_feed"
	ToolProfile    = "soup_profile"
	ToolTrending   = "soup_trending"
	ToolLatestFrom = "soup_latest_from"
	ToolMySoup     = "soup_my_soup"
	ToolStats      = "soup_stats"
)

// NewServer registers every soup tool on a new MCP server.
func NewServer(deps Dependencies) *server.MCPServer {
	s := server.NewMCPServer(
		"rss-soup",
		deps.Version,
		server.WithToolCapabilities(true),
	)

	h := newHandlers(deps)
	s.AddTool(serveTool(), h.serve)
	s.AddTool(indexProfileTool(), h.indexProfile)
	s.AddTool(indexSoupTool(), h.indexSoup)
	s.AddTool(discoverTool(), h.discover)

	s.AddTool(searchTool(), h.search)
	s.AddTool(feedTool(), h.feed)
	s.AddTool(profileTool(), h.profile)
	s.AddTool(trendingTool(), h.trending)
	s.AddTool(latestFromTool(), h.latestFrom)
	s.AddTool(mySoupTool(), h.mySoup)
	s.AddTool(statsTool(), h.stats)

	return s
}

func serveTool() mcp.Tool {
	return mcp.NewTool(ToolServe,
		mcp.WithDescription("Recommend recent articles, videos and podcasts for a free-text request"),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("What the user wants, e.g. \"something to listen to about rust\""),
		),
		mcp.WithString("consumer",
			mcp.Description("Soup handle whose subscriptions restrict the candidates"),
		),
		mcp.WithNumber("days",
			mcp.Description(fmt.Sprintf("Freshness window in days (default: %d, max: %d)", recommend.DefaultDays, recommend.MaxDays)),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum recommendations (default: %d, max: %d)", recommend.DefaultLimit, recommend.MaxLimit)),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Re-index the consumer's sources once when coverage is thin"),
		),
	)
}

func indexProfileTool() mcp.Tool {
	return mcp.NewTool(ToolIndexProfile,
		mcp.WithDescription("Crawl one creator profile site and store its posts"),
		mcp.WithString("site_url",
			mcp.Required(),
			mcp.Description("Profile site URL; the scheme may be omitted"),
		),
	)
}

func indexSoupTool() mcp.Tool {
	return mcp.NewTool(ToolIndexSoup,
		mcp.WithDescription("Crawl every feed in a soup's source table"),
		mcp.WithString("handle",
			mcp.Required(),
			mcp.Description("Soup handle, the name of its source table"),
		),
	)
}

func discoverTool() mcp.Tool {
	return mcp.NewTool(ToolDiscover,
		mcp.WithDescription("Suggest feed URLs for a web page, channel or publication"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL to inspect"),
		),
		mcp.WithString("title",
			mcp.Description("Display name to use for the suggested sources"),
		),
	)
}

func searchTool() mcp.Tool {
	return mcp.NewTool(ToolSearch,
		mcp.WithDescription("Search indexed creators or content by keyword, topic, format and date"),
		mcp.WithString("search_type",
			mcp.Required(),
			mcp.Enum("creators", "content"),
			mcp.Description("What to search for"),
		),
		mcp.WithString("query",
			mcp.Description("Keyword matched against titles and excerpts, or creator handles and names"),
		),
		mcp.WithString("topic",
			mcp.Description("Topic such as ai, design or startups"),
		),
		mcp.WithString("content_type",
			mcp.Enum("article", "video", "audio"),
			mcp.Description("Filter content by format"),
		),
		mcp.WithString("since",
			mcp.Description("Only content published at or after this date"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max results (default: %d, max: %d)", graph.DefaultSearchLimit, graph.MaxSearchLimit)),
		),
	)
}

func feedTool() mcp.Tool {
	return mcp.NewTool(ToolFeed,
		mcp.WithDescription("Latest content from the creators a subscriber follows"),
		mcp.WithString("subscriber_id",
			mcp.Required(),
			mcp.Description("Soup handle or subscriber key"),
		),
		mcp.WithString("since",
			mcp.Description("Only content published at or after this date"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max results (default: %d, max: %d)", graph.DefaultFeedLimit, graph.MaxFeedLimit)),
		),
	)
}

func profileTool() mcp.Tool {
	return mcp.NewTool(ToolProfile,
		mcp.WithDescription("A creator's profile, trust level and newest content"),
		mcp.WithString("creator_id",
			mcp.Required(),
			mcp.Description("Creator ID or handle"),
		),
	)
}

func trendingTool() mcp.Tool {
	return mcp.NewTool(ToolTrending,
		mcp.WithDescription("Recent content from trusted creators"),
		mcp.WithNumber("days",
			mcp.Description(fmt.Sprintf("Lookback in days (default: %d, max: %d)", graph.DefaultTrendingDays, graph.MaxTrendingDays)),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max results (default: %d, max: %d)", graph.DefaultSearchLimit, graph.MaxSearchLimit)),
		),
	)
}

func latestFromTool() mcp.Tool {
	return mcp.NewTool(ToolLatestFrom,
		mcp.WithDescription("Newest content from one creator, found by handle or display name"),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Creator handle or display name"),
		),
		mcp.WithString("content_type",
			mcp.Enum("article", "video", "audio"),
			mcp.Description("Filter by format"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max results (default: %d, max: %d)", graph.DefaultLatestLimit, graph.MaxLatestLimit)),
		),
	)
}

func mySoupTool() mcp.Tool {
	return mcp.NewTool(ToolMySoup,
		mcp.WithDescription("A soup's personalised feed together with its configured sources"),
		mcp.WithString("handle",
			mcp.Required(),
			mcp.Description("Soup handle, the name of its source table"),
		),
		mcp.WithString("since",
			mcp.Description("Only content published at or after this date"),
		),
		mcp.WithString("content_type",
			mcp.Enum("article", "video", "audio"),
			mcp.Description("Filter by format"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max results (default: %d, max: %d)", graph.DefaultFeedLimit, graph.MaxFeedLimit)),
		),
	)
}

func statsTool() mcp.Tool {
	return mcp.NewTool(ToolStats,
		mcp.WithDescription("Totals for the content graph: creators, content, subscriptions, topics and the last crawl"),
	)
}
