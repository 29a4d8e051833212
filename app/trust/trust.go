// Package trust computes a bounded reputation score for a publisher from
// observable signals.
package trust

import (
	"math"
	"net/url"
	"strings"
	"time"
)

type Level string

const (
	LevelUnknown  Level = "unknown"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVerified Level = "verified"
)

// Signals are the inputs of a trust score. They are stored next to the score
// so it can be explained later.
type Signals struct {
	HasCustomDomain bool `json:"hasCustomDomain"`
	HistoryMonths   int  `json:"historyMonths"`
	PostCount       int  `json:"postCount"`
	SubscriberCount int  `json:"subscriberCount"`
	Verified        bool `json:"verified"`
}

type bonus struct {
	applies func(Signals) bool
	value   float64
}

var bonuses = []bonus{
	{func(s Signals) bool { return s.HasCustomDomain }, 0.15},
	{func(s Signals) bool { return s.HistoryMonths >= 1 }, 0.10},
	{func(s Signals) bool { return s.HistoryMonths >= 6 }, 0.10},
	{func(s Signals) bool { return s.HistoryMonths >= 12 }, 0.10},
	{func(s Signals) bool { return s.PostCount >= 3 }, 0.10},
	{func(s Signals) bool { return s.PostCount >= 10 }, 0.10},
	{func(s Signals) bool { return s.SubscriberCount >= 5 }, 0.10},
	{func(s Signals) bool { return s.Verified }, 0.20},
}

// Calculate sums every bonus whose condition holds and clamps the result to [0, 1].
func Calculate(signals Signals) float64 {
	score := 0.0
	for _, b := range bonuses {
		if b.applies(signals) {
			score += b.value
		}
	}

	// Two decimals keeps float noise away from the level thresholds.
	score = math.Round(score*100) / 100
	return math.Min(math.Max(score, 0), 1)
}

func LevelFor(score float64) Level {
	switch {
	case score >= 0.8:
		return LevelVerified
	case score >= 0.5:
		return LevelHigh
	case score >= 0.25:
		return LevelMedium
	case score > 0:
		return LevelLow
	default:
		return LevelUnknown
	}
}

// HistoryMonths counts whole 30-day months between firstSeen and now.
func HistoryMonths(firstSeen, now time.Time) int {
	if firstSeen.IsZero() || now.Before(firstSeen) {
		return 0
	}
	days := int(now.Sub(firstSeen).Hours() / 24)
	return days / 30
}

// DefaultPlatformDomains are the hosting platforms whose subdomains and
// paths belong to the platform rather than the publisher.
var DefaultPlatformDomains = []string{"youtube.com", "substack.com", "medium.com", "me3.app", "localhost"}

// HasCustomDomain reports whether siteURL is hosted outside the given platform
// domains. Localhost never counts as a custom domain.
func HasCustomDomain(siteURL string, platformDomains []string) bool {
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}

	for _, domain := range platformDomains {
		domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return false
		}
	}

	return true
}
