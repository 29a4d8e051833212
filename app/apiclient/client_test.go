package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysyi3m/rss-soup/app/database"
)

type recordedRequest struct {
	method, path, apiKey, body string
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{r.Method, r.URL.Path, r.Header.Get("X-API-Key"), string(body)})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func TestIndexProfileSource(t *testing.T) {
	server, requests := newServer(t, http.StatusOK, `{"sourceUrl":"https://alice.example","status":"success","postsNew":3}`)
	client := New(server.URL+"/", "secret", server.Client())

	result := client.IndexProfileSource(context.Background(), "https://alice.example")
	if result.Status != database.CrawlStatusSuccess || result.PostsNew != 3 {
		t.Errorf("Expected decoded success result, got %+v", result)
	}

	if len(*requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.method != http.MethodPost || req.path != "/api/index/profile" {
		t.Errorf("Unexpected request %s %s", req.method, req.path)
	}
	if req.apiKey != "secret" {
		t.Errorf("Expected API key header, got %q", req.apiKey)
	}
	if !strings.Contains(req.body, `"siteUrl":"https://alice.example"`) {
		t.Errorf("Expected site URL in body, got %s", req.body)
	}
}

func TestIndexProfileSource_ServerErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		expected string
	}{
		{"busy", http.StatusServiceUnavailable, `{"error":"Task failed","details":"task queue is full"}`, "HTTP 503: Task failed: task queue is full"},
		{"pending", http.StatusAccepted, `{"success":true,"pending":true}`, ErrPending.Error()},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Unauthorized"}`, "HTTP 401: Unauthorized"},
		{"no body", http.StatusBadGateway, ``, "HTTP 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newServer(t, tt.status, tt.response)
			client := New(server.URL, "", server.Client())

			result := client.IndexProfileSource(context.Background(), "https://alice.example")
			if result.Status != database.CrawlStatusFailed {
				t.Errorf("Expected failed status, got %s", result.Status)
			}
			if result.SourceURL != "https://alice.example" {
				t.Errorf("Expected source URL to be kept, got %s", result.SourceURL)
			}
			if !strings.Contains(result.Error, tt.expected) {
				t.Errorf("Expected error containing %q, got %q", tt.expected, result.Error)
			}
		})
	}
}

func TestIndexSources(t *testing.T) {
	server, requests := newServer(t, http.StatusOK, `{"consumer":"my soup","feedsIndexed":2,"itemsIndexed":7}`)
	client := New(server.URL, "", server.Client())

	result, err := client.IndexSources(context.Background(), "my soup", 20)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.FeedsIndexed != 2 || result.ItemsIndexed != 7 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if (*requests)[0].path != "/api/index/soups/my soup" {
		t.Errorf("Expected soup handle in path, got %s", (*requests)[0].path)
	}
	if (*requests)[0].apiKey != "" {
		t.Errorf("Expected no API key header, got %q", (*requests)[0].apiKey)
	}
}

func TestIndexSources_Pending(t *testing.T) {
	server, _ := newServer(t, http.StatusAccepted, `{"pending":true}`)
	client := New(server.URL, "", server.Client())

	if _, err := client.IndexSources(context.Background(), "demo", 20); !errors.Is(err, ErrPending) {
		t.Errorf("Expected ErrPending, got %v", err)
	}
}

func TestRunScheduledIndex(t *testing.T) {
	server, requests := newServer(t, http.StatusAccepted, `{"success":true}`)
	client := New(server.URL, "", server.Client())

	results, err := client.RunScheduledIndex(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("Expected no results, got %v", results)
	}
	if (*requests)[0].path != "/api/index/scheduled" {
		t.Errorf("Unexpected path %s", (*requests)[0].path)
	}
}

func TestIndexProfileSource_Unreachable(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, `{}`)
	client := New(server.URL, "", server.Client())
	server.Close()

	result := client.IndexProfileSource(context.Background(), "https://alice.example")
	if result.Status != database.CrawlStatusFailed || !strings.Contains(result.Error, "failed to reach soup server") {
		t.Errorf("Expected unreachable server to fail the crawl, got %+v", result)
	}
}
