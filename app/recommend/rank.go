// Package recommend ranks stored content against a free-text prompt. Ranking
// is a pure function of its Request.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	MinResults = 3

	keywordsToShow     = 3
	transcriptPrefix   = 800
	relevanceTermsCap  = 8
	baselineRelevance  = 0.35
	transcriptBonus    = 0.03
	undatedFreshness   = 0.2
	freshFloor         = 0.65
	staleFloor         = 0.05
	reasonSeparator    = " · "
	maxReasons         = 2
	defaultContentType = "article"
)

type weights struct {
	behavior  float64
	relevance float64
	freshness float64
}

var intentWeights = map[Intent]weights{
	IntentLatest:        {behavior: 0.25, relevance: 0.35, freshness: 0.40},
	IntentLearn:         {behavior: 0.30, relevance: 0.50, freshness: 0.20},
	IntentEntertainment: {behavior: 0.45, relevance: 0.35, freshness: 0.20},
	IntentGeneral:       {behavior: 0.35, relevance: 0.40, freshness: 0.25},
}

var typeScores = []float64{1, 0.72, 0.48}

const unrankedTypeScore = 0.32

// Rank scores, filters, deduplicates and truncates the candidates of req.
func Rank(req Request) Result {
	ctx := InferContext(req.Prompt, req.Turns)

	scored := make([]Recommendation, 0, len(req.Items))
	for _, item := range req.Items {
		if rec, ok := scoreCandidate(item, ctx, req.Days, req.Now); ok {
			scored = append(scored, rec)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	deduped := dedupeByURL(scored)

	limit := max(MinResults, req.Limit)
	recommendations := deduped
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	recent := 0
	for _, rec := range deduped {
		if rec.IsFresh {
			recent++
		}
	}

	coverage := Coverage{
		WindowDays:    req.Days,
		TotalMatches:  len(deduped),
		RecentMatches: recent,
		Thin:          len(recommendations) < MinResults,
	}

	needsRefresh := !(req.Refreshed && !coverage.Thin && recent >= MinResults)

	return Result{
		Summary:         buildSummary(req.Prompt, recommendations, ctx.Intent, req.Days, req.Refreshed, needsRefresh),
		Recommendations: recommendations,
		Mode: Mode{
			Behavior:       ctx.Behavior,
			Intent:         ctx.Intent,
			PreferredTypes: ctx.PreferredTypes,
		},
		Coverage:     coverage,
		NeedsRefresh: needsRefresh,
	}
}

func scoreCandidate(item Candidate, ctx Context, days int, now time.Time) (Recommendation, bool) {
	url := strings.TrimSpace(item.ContentURL)
	if url == "" {
		url = strings.TrimSpace(item.MediaURL)
	}
	if url == "" {
		return Recommendation{}, false
	}

	contentType := normalizeType(item.ContentType)

	corpus := strings.ToLower(strings.Join([]string{
		item.Title,
		item.Excerpt,
		item.CreatorName,
		strings.Join(item.Topics, " "),
		prefix(item.Transcript, transcriptPrefix),
	}, " "))

	var matches []string
	for _, term := range ctx.Terms {
		if strings.Contains(corpus, term) {
			matches = append(matches, term)
		}
	}

	// Nothing is better than something unrelated.
	if len(ctx.Terms) > 0 && len(matches) == 0 {
		return Recommendation{}, false
	}

	relevance := baselineRelevance
	if len(ctx.Terms) > 0 {
		relevance = math.Min(1, float64(len(matches))/float64(min(relevanceTermsCap, len(ctx.Terms))))
	}

	freshness, fresh := scoreFreshness(item.PublishedAt, days, now)

	w := intentWeights[ctx.Intent]
	score := scoreType(contentType, ctx.PreferredTypes)*w.behavior + relevance*w.relevance + freshness*w.freshness

	if ctx.Intent == IntentLearn && item.Transcript != "" {
		score += transcriptBonus
	}

	keywords := matches
	if len(keywords) > keywordsToShow {
		keywords = keywords[:keywordsToShow]
	}
	if keywords == nil {
		keywords = []string{}
	}

	reasons := []string{typeReason(contentType, ctx.Behavior)}
	if len(keywords) > 0 {
		reasons = append(reasons, "matched "+strings.Join(keywords, ", "))
	}
	if fresh {
		reasons = append(reasons, fmt.Sprintf("published in the last %d days", days))
	} else {
		reasons = append(reasons, "older but still relevant")
	}

	return Recommendation{
		ID:            item.ID,
		Title:         item.Title,
		CreatorName:   item.CreatorName,
		CreatorHandle: item.CreatorHandle,
		ContentType:   contentType,
		URL:           url,
		PublishedAt:   item.PublishedAt,
		Excerpt:       item.Excerpt,
		Media:         Media{URL: item.MediaURL, Thumbnail: item.MediaThumbnail},
		Why:           strings.Join(reasons[:maxReasons], reasonSeparator),
		Score:         math.Round(score*10000) / 10000,
		IsFresh:       fresh,
		Keywords:      keywords,
	}, true
}

// scoreFreshness is at least 0.65 inside the window, decaying linearly with
// age, and falls toward 0.05 beyond it. Undated items score 0.2.
func scoreFreshness(publishedAt *time.Time, days int, now time.Time) (float64, bool) {
	if publishedAt == nil {
		return undatedFreshness, false
	}

	ageDays := math.Max(0, now.Sub(*publishedAt).Hours()/24)
	window := float64(days)

	if ageDays <= window {
		return math.Max(freshFloor, 1-(ageDays/math.Max(1, window))*0.35), true
	}

	decay := (ageDays - window) / math.Max(1, window*3)
	return math.Max(staleFloor, freshFloor-decay), false
}

func scoreType(contentType string, preferred []string) float64 {
	for i, t := range preferred {
		if t == contentType && i < len(typeScores) {
			return typeScores[i]
		}
	}
	return unrankedTypeScore
}

func normalizeType(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "note", "link", "image", "":
		return defaultContentType
	}
	return value
}

func typeReason(contentType string, behavior Behavior) string {
	switch {
	case behavior == BehaviorListen && contentType == "audio":
		return "audio-first fit for listening"
	case behavior == BehaviorWatch && contentType == "video":
		return "video-first fit for watching"
	case behavior == BehaviorRead && contentType == "article":
		return "article-first fit for reading"
	}
	return fmt.Sprintf("good %s format match", contentType)
}

func dedupeByURL(items []Recommendation) []Recommendation {
	seen := make(map[string]struct{}, len(items))
	deduped := make([]Recommendation, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		deduped = append(deduped, item)
	}
	return deduped
}

func prefix(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
