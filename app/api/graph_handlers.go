package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-soup/app/graph"
)

// The graph service applies its own defaults and caps, so limits are passed
// through as given. 0 selects the default.

func (h *Handler) APISearchContent(c *gin.Context) {
	items, err := h.graph.SearchContent(graph.ContentQuery{
		Query:       c.Query("q"),
		Topic:       c.Query("topic"),
		ContentType: c.Query("type"),
		Since:       c.Query("since"),
		Limit:       queryInt(c, "limit", 0, -1),
		Offset:      queryInt(c, "offset", 0, -1),
	})
	if err != nil {
		graphError(c, "search_content", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content": items,
		"total":   len(items),
	})
}

func (h *Handler) APISearchCreators(c *gin.Context) {
	creators, err := h.graph.SearchCreators(graph.CreatorQuery{
		Query:   c.Query("q"),
		Topic:   c.Query("topic"),
		OrderBy: c.Query("order"),
		Limit:   queryInt(c, "limit", 0, -1),
		Offset:  queryInt(c, "offset", 0, -1),
	})
	if err != nil {
		graphError(c, "search_creators", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"creators": creators,
		"total":    len(creators),
	})
}

func (h *Handler) APITrending(c *gin.Context) {
	items, err := h.graph.Trending(queryInt(c, "days", 0, -1), queryInt(c, "limit", 0, -1))
	if err != nil {
		graphError(c, "trending", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content": items,
		"total":   len(items),
	})
}

func (h *Handler) APIFeed(c *gin.Context) {
	page, err := h.graph.Feed(c.Param("subscriber"), feedQuery(c))
	if err != nil {
		graphError(c, "feed", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) APIProfile(c *gin.Context) {
	profile, err := h.graph.Profile(c.Param("id"))
	if err != nil {
		graphError(c, "profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) APILatestFrom(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source query parameter is required"})
		return
	}

	profile, err := h.graph.LatestFrom(source, c.Query("type"), queryInt(c, "limit", 0, -1))
	if err != nil {
		graphError(c, "latest_from", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) APIMySoup(c *gin.Context) {
	soup, err := h.graph.MySoup(c.Param("handle"), feedQuery(c))
	if err != nil {
		graphError(c, "my_soup", err)
		return
	}

	c.JSON(http.StatusOK, soup)
}

func feedQuery(c *gin.Context) graph.FeedQuery {
	return graph.FeedQuery{
		Since:       c.Query("since"),
		ContentType: c.Query("type"),
		Limit:       queryInt(c, "limit", 0, -1),
	}
}

func graphError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, graph.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
	case errors.Is(err, graph.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "details": err.Error()})
	default:
		slog.Error("Database error", "operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
