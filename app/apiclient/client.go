// Package apiclient forwards index requests to a running soup server. The
// server's crawl worker stays the only writer of the content graph.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/ingest"
)

const maxResponseSize = 4 << 20

// ErrPending means the server accepted the request but had not finished the
// crawl when it answered.
var ErrPending = errors.New("server is still running the task")

// HTTPDoer is the HTTP capability the client needs. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

func New(baseURL, apiKey string, client HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// IndexProfileSource asks the server to crawl one profile. Transport errors are
// reported as a failed result, the same way a failed crawl is.
func (c *Client) IndexProfileSource(ctx context.Context, siteURL string) ingest.IndexResult {
	var result ingest.IndexResult
	body := map[string]string{"siteUrl": siteURL}

	if err := c.post(ctx, "/api/index/profile", body, http.StatusOK, &result); err != nil {
		return ingest.IndexResult{
			SourceURL: siteURL,
			Status:    database.CrawlStatusFailed,
			Error:     err.Error(),
		}
	}
	return result
}

// IndexSources asks the server to crawl a soup. The server applies its own
// per-feed limit, so limit is not sent.
func (c *Client) IndexSources(ctx context.Context, consumer string, limit int) (*ingest.SourcesResult, error) {
	var result ingest.SourcesResult
	if err := c.post(ctx, "/api/index/soups/"+url.PathEscape(consumer), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunScheduledIndex queues a scheduled pass on the server and returns without
// results.
func (c *Client) RunScheduledIndex(ctx context.Context) ([]ingest.IndexResult, error) {
	return nil, c.post(ctx, "/api/index/scheduled", nil, http.StatusAccepted, nil)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (c *Client) post(ctx context.Context, path string, body any, expected int, out any) error {
	var payload io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach soup server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusAccepted && expected != http.StatusAccepted {
		return ErrPending
	}
	if resp.StatusCode != expected {
		var e errorBody
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			return fmt.Errorf("soup server returned HTTP %d", resp.StatusCode)
		}
		if e.Details != "" {
			return fmt.Errorf("soup server returned HTTP %d: %s: %s", resp.StatusCode, e.Error, e.Details)
		}
		return fmt.Errorf("soup server returned HTTP %d: %s", resp.StatusCode, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
