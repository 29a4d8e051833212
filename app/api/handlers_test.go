package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/graph"
	"github.com/lysyi3m/rss-soup/app/ingest"
	"github.com/lysyi3m/rss-soup/app/recommend"
	"github.com/lysyi3m/rss-soup/app/tasks"
)

const testAPIKey = "test-key"

// syncScheduler runs tasks inline on the calling goroutine.
type syncScheduler struct {
	enqueued []tasks.TaskInterface
	err      error
}

func (s *syncScheduler) Start() error { return nil }
func (s *syncScheduler) Stop()        {}

func (s *syncScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

func (s *syncScheduler) RunTask(ctx context.Context, task tasks.TaskInterface) error {
	if s.err != nil {
		return s.err
	}
	task.Start()
	return task.Execute(ctx)
}

type mockIndexer struct {
	profiles []string
	limits   []int
	status   database.CrawlStatus
}

func (m *mockIndexer) IndexProfileSource(ctx context.Context, siteURL string) ingest.IndexResult {
	m.profiles = append(m.profiles, siteURL)
	result := ingest.IndexResult{SourceURL: siteURL, Status: m.status, PostsFound: 2, PostsNew: 2}
	if m.status == database.CrawlStatusFailed {
		result.Error = "validation error: profile has no handle"
	}
	return result
}

func (m *mockIndexer) IndexSources(ctx context.Context, consumer string, limit int) (*ingest.SourcesResult, error) {
	m.limits = append(m.limits, limit)
	return &ingest.SourcesResult{Consumer: consumer, FeedsIndexed: 1, ItemsIndexed: 3, PublisherIDs: []string{"p1"}}, nil
}

func (m *mockIndexer) RunScheduledIndex(ctx context.Context) ([]ingest.IndexResult, error) {
	return nil, nil
}

type mockRecommender struct {
	requests []recommend.ServeRequest
}

func (m *mockRecommender) Serve(ctx context.Context, req recommend.ServeRequest) (*recommend.Result, error) {
	m.requests = append(m.requests, req)
	return &recommend.Result{
		Summary:         "summary",
		Recommendations: []recommend.Recommendation{},
		NeedsRefresh:    true,
	}, nil
}

type mockDiscoverer struct{}

func (mockDiscoverer) Run(ctx context.Context, pageURL, title string) []feed.SourceCandidate {
	if strings.Contains(pageURL, "nothing") {
		return nil
	}
	return []feed.SourceCandidate{{Name: title, Type: feed.SourceTypeArticle, FeedURL: pageURL + "/feed", SiteURL: pageURL, Confidence: 0.7}}
}

type testServer struct {
	engine      *gin.Engine
	db          *database.DB
	indexer     *mockIndexer
	scheduler   *syncScheduler
	recommender *mockRecommender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "soup.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	sources := feed.NewSourceCache(t.TempDir())
	sources.Put(&feed.SourceSet{
		Consumer: "alice",
		Sources: []feed.SourceDescriptor{
			{FeedURL: "https://blog.example.com/feed", Type: feed.SourceTypeArticle},
		},
	})

	ts := &testServer{
		db:          db,
		indexer:     &mockIndexer{status: database.CrawlStatusSuccess},
		scheduler:   &syncScheduler{},
		recommender: &mockRecommender{},
	}

	publisherRepo := database.NewPublisherRepository(db)
	contentRepo := database.NewContentRepository(db)

	handler := NewHandler(Dependencies{
		Publishers:   publisherRepo,
		Content:      contentRepo,
		CrawlLog:     database.NewCrawlLogRepository(db),
		Sources:      sources,
		Indexer:      ts.indexer,
		Scheduler:    ts.scheduler,
		Recommender:  ts.recommender,
		Discoverer:   mockDiscoverer{},
		Generator:    feed.NewGenerator("test"),
		Graph:        graph.NewService(publisherRepo, contentRepo, database.NewStatsRepository(db), sources, nil),
		LimitPerFeed: 20,
		Version:      "test",
	})
	ts.engine = NewServer(handler, testAPIKey)

	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if strings.HasPrefix(path, "/api/") {
		req.Header.Set("X-API-Key", testAPIKey)
	}

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		header   string
		value    string
		expected int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"api key header", "X-API-Key", testAPIKey, http.StatusOK},
		{"bearer token", "Authorization", "Bearer " + testAPIKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/publishers", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			ts.engine.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestGetHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body map[string]any
	decode(t, w, &body)
	if body["loaded_soups"] != float64(1) {
		t.Errorf("Expected 1 loaded soup, got %v", body["loaded_soups"])
	}
	if body["publishers"] != float64(0) {
		t.Errorf("Expected 0 publishers, got %v", body["publishers"])
	}
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t)

	crawlLog := database.NewCrawlLogRepository(ts.db)
	crawlLog.AppendCrawlLog(&database.CrawlLogEntry{SourceURL: "https://a.example.com", Status: database.CrawlStatusFailed, CrawledAt: time.Now()})

	w := ts.do(http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Publishers int            `json:"publishers"`
		Content    int            `json:"content"`
		Crawls     map[string]int `json:"crawls"`
		Sources    int            `json:"sources"`
		Graph      graph.Stats    `json:"graph"`
	}
	decode(t, w, &body)

	if body.Graph.LastCrawledAt == nil {
		t.Error("Expected last crawl time in graph stats")
	}

	if body.Crawls["failed"] != 1 || body.Crawls["success"] != 0 {
		t.Errorf("Unexpected crawl counts: %v", body.Crawls)
	}
	if body.Sources != 1 {
		t.Errorf("Expected 1 source, got %d", body.Sources)
	}
}

func TestAPIIndexProfile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/index/profile", IndexProfileRequest{SiteURL: "alice.me3.app/"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result ingest.IndexResult
	decode(t, w, &result)

	if result.Status != database.CrawlStatusSuccess || result.PostsNew != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if len(ts.indexer.profiles) != 1 || ts.indexer.profiles[0] != "https://alice.me3.app" {
		t.Errorf("Expected normalized site URL, got %v", ts.indexer.profiles)
	}
}

func TestAPIIndexProfile_FailedCrawl(t *testing.T) {
	ts := newTestServer(t)
	ts.indexer.status = database.CrawlStatusFailed

	w := ts.do(http.MethodPost, "/api/index/profile", IndexProfileRequest{SiteURL: "https://broken.example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected failed crawls to be reported with status 200, got %d", w.Code)
	}

	var result ingest.IndexResult
	decode(t, w, &result)
	if result.Status != database.CrawlStatusFailed || result.Error == "" {
		t.Errorf("Expected failed status with message, got %+v", result)
	}
}

func TestAPIIndexProfile_Invalid(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/index/profile", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestAPIIndexProfile_QueueFull(t *testing.T) {
	ts := newTestServer(t)
	ts.scheduler.err = tasks.ErrQueueFull

	w := ts.do(http.MethodPost, "/api/index/profile", IndexProfileRequest{SiteURL: "https://alice.me3.app"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestAPIIndexProfile_StillRunning(t *testing.T) {
	ts := newTestServer(t)
	ts.scheduler.err = fmt.Errorf("%w: %w", tasks.ErrTaskPending, context.DeadlineExceeded)

	w := ts.do(http.MethodPost, "/api/index/profile", IndexProfileRequest{SiteURL: "https://alice.me3.app"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Pending bool `json:"pending"`
		Task    struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"task"`
	}
	decode(t, w, &body)
	if !body.Pending || body.Task.ID == "" || body.Task.Type != string(tasks.TaskTypeIndexProfile) {
		t.Errorf("Expected pending task reference, got %+v", body)
	}
	if strings.Contains(w.Body.String(), "status") {
		t.Errorf("Expected no crawl result in a pending response, got %s", w.Body.String())
	}
}

func TestAPIIndexSoup(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/index/soups/bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown soup, got %d", w.Code)
	}

	w = ts.do(http.MethodPost, "/api/index/soups/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var result ingest.SourcesResult
	decode(t, w, &result)
	if result.Consumer != "alice" || result.ItemsIndexed != 3 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if len(ts.indexer.limits) != 1 || ts.indexer.limits[0] != 20 {
		t.Errorf("Expected limit per feed 20, got %v", ts.indexer.limits)
	}
}

func TestAPIIndexScheduled(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/index/scheduled", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}
	if len(ts.scheduler.enqueued) != 1 || ts.scheduler.enqueued[0].GetType() != tasks.TaskTypeScheduledIndex {
		t.Errorf("Expected one scheduled index task, got %v", ts.scheduler.enqueued)
	}
}

func TestAPIServe(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/serve", map[string]any{"consumer": "alice"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without prompt, got %d", w.Code)
	}

	w = ts.do(http.MethodPost, "/api/serve", map[string]any{"prompt": "x", "days": 90})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for out of range days, got %d", w.Code)
	}

	w = ts.do(http.MethodPost, "/api/serve", recommend.ServeRequest{Prompt: "latest on databases", Consumer: "alice", Days: 7, Refresh: true})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result recommend.Result
	decode(t, w, &result)
	if result.Summary != "summary" || !result.NeedsRefresh {
		t.Errorf("Unexpected result: %+v", result)
	}
	if len(ts.recommender.requests) != 1 || !ts.recommender.requests[0].Refresh {
		t.Errorf("Expected request to be passed through, got %+v", ts.recommender.requests)
	}
}

func TestAPIDiscover(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/discover", DiscoverRequest{URL: "https://blog.example.com", Title: "Blog"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body struct {
		Candidates []feed.SourceCandidate `json:"candidates"`
		Total      int                    `json:"total"`
	}
	decode(t, w, &body)
	if body.Total != 1 || body.Candidates[0].FeedURL != "https://blog.example.com/feed" {
		t.Errorf("Unexpected candidates: %+v", body)
	}

	w = ts.do(http.MethodPost, "/api/discover", DiscoverRequest{URL: "https://nothing.example.com"})
	if !strings.Contains(w.Body.String(), `"candidates":[]`) {
		t.Errorf("Expected empty candidate list, got %s", w.Body.String())
	}
}

func TestAPIListPublishersAndCrawlLog(t *testing.T) {
	ts := newTestServer(t)

	publishers := database.NewPublisherRepository(ts.db)
	id, err := publishers.UpsertPublisher(&database.Publisher{
		SiteURL:      "https://blog.example.com/feed",
		SourceKind:   database.SourceKindFeed,
		SourceType:   "article",
		Handle:       "blog",
		Name:         "Blog",
		ContentTypes: []string{"article"},
	})
	if err != nil {
		t.Fatalf("Failed to upsert publisher: %v", err)
	}

	crawlLog := database.NewCrawlLogRepository(ts.db)
	crawlLog.AppendCrawlLog(&database.CrawlLogEntry{PublisherID: &id, SourceURL: "https://blog.example.com/feed", Status: database.CrawlStatusSuccess, PostsNew: 4, CrawledAt: time.Now()})
	crawlLog.AppendCrawlLog(&database.CrawlLogEntry{SourceURL: "https://other.example.com", Status: database.CrawlStatusFailed, Error: "network error", CrawledAt: time.Now()})

	w := ts.do(http.MethodGet, "/api/publishers?limit=1000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var publisherBody struct {
		Publishers []PublisherView `json:"publishers"`
		Total      int             `json:"total"`
	}
	decode(t, w, &publisherBody)
	if publisherBody.Total != 1 || publisherBody.Publishers[0].Handle != "blog" {
		t.Errorf("Unexpected publishers: %+v", publisherBody)
	}
	if publisherBody.Publishers[0].TrustLevel != "unknown" {
		t.Errorf("Expected unknown trust level, got %s", publisherBody.Publishers[0].TrustLevel)
	}

	w = ts.do(http.MethodGet, "/api/crawl-log?publisher_id="+id, nil)
	var logBody struct {
		Entries []CrawlLogView `json:"entries"`
		Total   int            `json:"total"`
	}
	decode(t, w, &logBody)
	if logBody.Total != 1 || logBody.Entries[0].PostsNew != 4 {
		t.Errorf("Unexpected crawl log for publisher: %+v", logBody)
	}

	w = ts.do(http.MethodGet, "/api/crawl-log", nil)
	decode(t, w, &logBody)
	if logBody.Total != 2 {
		t.Errorf("Expected 2 crawl log entries, got %d", logBody.Total)
	}
}

func TestGetSoupFeed(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/feeds/bob", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown soup, got %d", w.Code)
	}

	w = ts.do(http.MethodGet, "/feeds/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %s", ct)
	}
	if w.Header().Get("X-Feed-Items") != "0" {
		t.Errorf("Expected no items, got %s", w.Header().Get("X-Feed-Items"))
	}
	if !strings.Contains(w.Body.String(), "<title>alice</title>") {
		t.Errorf("Expected channel title, got %s", w.Body.String())
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query    string
		expected int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=-3", 50},
		{"limit=abc", 50},
		{"limit=999", 200},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := queryInt(c, "limit", 50, 200); got != tt.expected {
			t.Errorf("queryInt(%q): expected %d, got %d", tt.query, tt.expected, got)
		}
	}
}
