package api

import (
	"cmp"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/recommend"
	"github.com/lysyi3m/rss-soup/app/source"
	"github.com/lysyi3m/rss-soup/app/tasks"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	soupFeedItems    = 50
)

// Dependencies groups what the handlers need. Every field is required.
type Dependencies struct {
	Publishers   database.PublisherRepository
	Content      database.ContentRepository
	CrawlLog     database.CrawlLogRepository
	Sources      *feed.SourceCache
	Indexer      tasks.Indexer
	Scheduler    tasks.TaskSchedulerInterface
	Recommender  Recommender
	Discoverer   Discoverer
	Generator    GeneratorInterface
	Graph        GraphReader
	LimitPerFeed int
	Version      string
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		publisherRepo: deps.Publishers,
		contentRepo:   deps.Content,
		crawlLogRepo:  deps.CrawlLog,
		sourceCache:   deps.Sources,
		indexer:       deps.Indexer,
		scheduler:     deps.Scheduler,
		recommender:   deps.Recommender,
		discoverer:    deps.Discoverer,
		generator:     deps.Generator,
		graph:         deps.Graph,
		limitPerFeed:  deps.LimitPerFeed,
		version:       deps.Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if publisherCount, err := h.publisherRepo.GetPublisherCount(); err == nil {
		health["publishers"] = publisherCount
	}

	health["loaded_soups"] = len(h.sourceCache.GetConsumers())

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	publisherCount, err := h.publisherRepo.GetPublisherCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_publisher_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	contentCount, err := h.contentRepo.GetContentCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_content_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	crawls, err := h.crawlLogRepo.GetCrawlStatusCounts()
	if err != nil {
		slog.Error("Database error", "operation", "get_crawl_counts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	graphStats, err := h.graph.Stats()
	if err != nil {
		slog.Error("Database error", "operation", "get_graph_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"publishers": publisherCount,
		"content":    contentCount,
		"crawls":     crawls,
		"graph":      graphStats,
		"soups":      len(h.sourceCache.GetConsumers()),
		"sources":    h.sourceCache.GetSourceCount(),
	})
}

// GetSoupFeed publishes the subscribed content of one soup as RSS.
func (h *Handler) GetSoupFeed(c *gin.Context) {
	handle := c.Param("handle")
	if len(h.sourceCache.GetSources(handle)) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	items, err := h.contentRepo.ListCandidates(database.CandidateFilter{
		Consumer: handle,
		Limit:    soupFeedItems,
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_candidates", "soup", handle, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	scheme = cmp.Or(c.GetHeader("X-Forwarded-Proto"), scheme)

	rss, err := h.generator.Run(feed.Channel{
		Title:    handle,
		SelfLink: scheme + "://" + c.Request.Host + c.Request.URL.Path,
	}, items)
	if err != nil {
		slog.Error("RSS generation error", "soup", handle, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Soup-Handle", handle)

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIIndexProfile(c *gin.Context) {
	var req IndexProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	siteURL := source.NormalizeURL(req.SiteURL)
	task := tasks.NewIndexProfileTask(siteURL, h.indexer)

	// A failed crawl is reported through the result, not as a request error.
	if err := h.scheduler.RunTask(c.Request.Context(), task); err != nil && !errors.Is(err, tasks.ErrCrawlFailed) {
		h.taskError(c, task, err)
		return
	}

	c.JSON(http.StatusOK, task.Result)
}

func (h *Handler) APIIndexSoup(c *gin.Context) {
	handle := c.Param("handle")
	if len(h.sourceCache.GetSources(handle)) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Soup not found"})
		return
	}

	task := tasks.NewIndexSourcesTask(handle, h.limitPerFeed, h.indexer)
	if err := h.scheduler.RunTask(c.Request.Context(), task); err != nil {
		h.taskError(c, task, err)
		return
	}

	c.JSON(http.StatusOK, task.Result)
}

func (h *Handler) APIIndexScheduled(c *gin.Context) {
	task := tasks.NewScheduledIndexTask(h.indexer)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		h.taskError(c, task, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APIServe(c *gin.Context) {
	var req recommend.ServeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := h.recommender.Serve(c.Request.Context(), req)
	if err != nil {
		slog.Error("Serve failed", "prompt", req.Prompt, "consumer", req.Consumer, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rank content"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIDiscover(c *gin.Context) {
	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	candidates := h.discoverer.Run(c.Request.Context(), req.URL, req.Title)
	if candidates == nil {
		candidates = []feed.SourceCandidate{}
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"total":      len(candidates),
	})
}

func (h *Handler) APIListPublishers(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit, maxListLimit)
	offset := queryInt(c, "offset", 0, -1)

	publishers, err := h.publisherRepo.ListPublishers(limit, offset)
	if err != nil {
		slog.Error("Database error", "operation", "list_publishers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]PublisherView, 0, len(publishers))
	for _, p := range publishers {
		views = append(views, newPublisherView(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"publishers": views,
		"total":      len(views),
	})
}

func (h *Handler) APIListCrawlLog(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit, maxListLimit)

	entries, err := h.crawlLogRepo.ListCrawlLog(c.Query("publisher_id"), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_crawl_log", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]CrawlLogView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newCrawlLogView(e))
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": views,
		"total":   len(views),
	})
}

// taskError never reads the task result: a pending task is still owned by
// the worker.
func (h *Handler) taskError(c *gin.Context, task tasks.TaskInterface, err error) {
	if errors.Is(err, tasks.ErrTaskPending) {
		slog.Warn("Stopped waiting for task", "type", task.GetType(), "id", task.GetID(), "target", task.GetTarget(), "error", err)
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"pending": true,
			"task": gin.H{
				"id":   task.GetID(),
				"type": task.GetType(),
			},
		})
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, tasks.ErrQueueFull) {
		status = http.StatusServiceUnavailable
	}

	slog.Error("Task request failed", "type", task.GetType(), "target", task.GetTarget(), "error", err)
	c.JSON(status, gin.H{
		"error":   "Task failed",
		"details": err.Error(),
	})
}

// queryInt reads a non-negative integer query parameter. upper < 0 means no cap.
func queryInt(c *gin.Context, key string, fallback, upper int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 0 {
		return fallback
	}
	if upper >= 0 && value > upper {
		return upper
	}
	return value
}
