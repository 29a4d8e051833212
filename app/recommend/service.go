package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/metrics"
)

const (
	DefaultDays  = 7
	MaxDays      = 30
	DefaultLimit = 5
	MaxLimit     = 20

	candidatePool = 500
)

// Refresher re-ingests the sources of a consumer and returns once they are stored.
type Refresher interface {
	RefreshSources(ctx context.Context, consumer string) error
}

type ServeRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	Consumer string `json:"consumer"`
	Turns    []Turn `json:"turns"`
	Days     int    `json:"days" binding:"omitempty,min=1,max=30"`
	Limit    int    `json:"limit" binding:"omitempty,min=1,max=20"`
	// Refresh allows one synchronous re-ingestion when coverage is insufficient.
	Refresh bool `json:"refresh"`
}

type Service struct {
	content   database.ContentRepository
	refresher Refresher
	now       func() time.Time
}

// NewService builds a Service. refresher may be nil, in which case results are
// only flagged with NeedsRefresh.
func NewService(content database.ContentRepository, refresher Refresher, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		content:   content,
		refresher: refresher,
		now:       clock,
	}
}

func (s *Service) Serve(ctx context.Context, req ServeRequest) (*Result, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Days = clamp(req.Days, DefaultDays, MaxDays)
	req.Limit = clamp(req.Limit, DefaultLimit, MaxLimit)

	result, err := s.rank(req, false)
	if err != nil {
		return nil, err
	}

	if result.NeedsRefresh && req.Refresh && req.Consumer != "" && s.refresher != nil {
		slog.Info("Refreshing sources for thin coverage", "consumer", req.Consumer,
			"total", result.Coverage.TotalMatches, "recent", result.Coverage.RecentMatches)

		if err := s.refresher.RefreshSources(ctx, req.Consumer); err != nil {
			slog.Warn("Source refresh failed", "consumer", req.Consumer, "error", err)
		} else if result, err = s.rank(req, true); err != nil {
			return nil, err
		}
	}

	metrics.RecordServe(string(result.Mode.Behavior), string(result.Mode.Intent), result.Coverage.Thin)

	return result, nil
}

func (s *Service) rank(req ServeRequest, refreshed bool) (*Result, error) {
	candidates, err := s.content.ListCandidates(database.CandidateFilter{
		Consumer: req.Consumer,
		Limit:    candidatePool,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	items := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, fromStored(c))
	}

	result := Rank(Request{
		Prompt:    req.Prompt,
		Turns:     req.Turns,
		Items:     items,
		Days:      req.Days,
		Limit:     req.Limit,
		Refreshed: refreshed,
		Now:       s.now(),
	})

	slog.Debug("Ranked candidates", "prompt", req.Prompt, "candidates", len(items),
		"matches", result.Coverage.TotalMatches, "refreshed", refreshed)

	return &result, nil
}

func fromStored(c database.Candidate) Candidate {
	return Candidate{
		ID:             c.Item.ID,
		Title:          c.Item.Title,
		Excerpt:        c.Item.Excerpt,
		CreatorName:    c.PublisherName,
		CreatorHandle:  c.PublisherHandle,
		ContentType:    c.Item.ContentType,
		ContentURL:     c.Item.ContentURL,
		MediaURL:       c.Item.MediaURL,
		MediaThumbnail: c.Item.MediaThumbnail,
		PublishedAt:    c.Item.PublishedAt,
		Topics:         c.Item.Topics,
		Transcript:     c.Item.TranscriptText,
	}
}

func clamp(value, fallback, upper int) int {
	if value <= 0 {
		return fallback
	}
	return min(value, upper)
}
