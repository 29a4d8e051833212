package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	DefaultProfileTimeout = 10 * time.Second
	DefaultFeedTimeout    = 12 * time.Second

	DefaultMaxDocumentSize = 10 << 20

	profileDocumentPath = "/me.json"

	acceptJSON = "application/json"
	acceptFeed = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8"
)

// HTTPDoer is the HTTP capability the fetcher needs. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Fetcher struct {
	client    HTTPDoer
	userAgent string
	validate  *validator.Validate

	ProfileTimeout  time.Duration
	FeedTimeout     time.Duration
	MaxDocumentSize int64
}

func NewFetcher(client HTTPDoer, userAgent string) *Fetcher {
	return &Fetcher{
		client:          client,
		userAgent:       userAgent,
		validate:        validator.New(),
		ProfileTimeout:  DefaultProfileTimeout,
		FeedTimeout:     DefaultFeedTimeout,
		MaxDocumentSize: DefaultMaxDocumentSize,
	}
}

// FetchProfileDocument downloads and validates <site>/me.json.
func (f *Fetcher) FetchProfileDocument(ctx context.Context, siteURL string) (*ProfileResult, error) {
	documentURL := NormalizeURL(siteURL) + profileDocumentPath

	raw, err := f.FetchDocument(ctx, documentURL, acceptJSON, f.ProfileTimeout)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in profile document: %v", ErrParse, err)
	}

	if err := f.validate.Struct(&profile); err != nil {
		return nil, fmt.Errorf("%w: profile document missing version or name", ErrValidation)
	}

	return &ProfileResult{
		Profile: &profile,
		Raw:     raw,
		Hash:    Fingerprint(raw),
	}, nil
}

// FetchFeedDocument downloads an RSS or Atom document. Any failure is local to
// the one source and is reported as ErrNetwork.
func (f *Fetcher) FetchFeedDocument(ctx context.Context, feedURL string) ([]byte, error) {
	return f.FetchDocument(ctx, feedURL, acceptFeed, f.FeedTimeout)
}

// FetchDocument performs a single GET bounded by timeout and returns the body of
// a 2xx response.
func (f *Fetcher) FetchDocument(ctx context.Context, documentURL, accept string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrNetwork, err)
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d %s", ErrNetwork, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, err)
	}
	if int64(len(data)) > f.MaxDocumentSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrNetwork, f.MaxDocumentSize)
	}

	return data, nil
}

// NormalizeURL adds an https scheme when none is present and strips trailing slashes.
func NormalizeURL(raw string) string {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return ""
	}
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}
	return strings.TrimRight(normalized, "/")
}

// Fingerprint returns the hex SHA-256 of a raw source document.
func Fingerprint(raw []byte) string {
	hash := sha256.Sum256(raw)
	return hex.EncodeToString(hash[:])
}
