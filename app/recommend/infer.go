package recommend

import (
	"regexp"
	"strings"
)

const maxTerms = 24

var termPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "give": {}, "get": {}, "how": {}, "i": {}, "im": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "latest": {}, "me": {}, "my": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "up": {}, "with": {}, "you": {},
	"your": {},
}

type keywordSet[T ~string] struct {
	category T
	keywords []string
}

// Table order breaks ties.
var behaviorKeywords = []keywordSet[Behavior]{
	{BehaviorListen, []string{"walk", "walking", "run", "running", "gym", "workout", "commute", "driving", "drive", "listen", "listening", "podcast", "audio"}},
	{BehaviorWatch, []string{"watch", "watching", "video", "youtube", "couch", "evening", "tv", "screen"}},
	{BehaviorRead, []string{"read", "reading", "article", "articles", "newsletter", "sunday", "morning", "relaxing", "learn", "learning", "study"}},
}

var intentKeywords = []keywordSet[Intent]{
	{IntentLatest, []string{"latest", "recent", "today", "this week", "new", "news", "update"}},
	{IntentLearn, []string{"learn", "learning", "understand", "goal", "skill", "research", "study"}},
	{IntentEntertainment, []string{"entertainment", "fun", "laugh", "chill", "relax", "enjoy"}},
}

var preferredTypesByBehavior = map[Behavior][]string{
	BehaviorListen: {"audio", "video", "article"},
	BehaviorWatch:  {"video", "audio", "article"},
	BehaviorRead:   {"article", "audio", "video"},
	BehaviorMixed:  {"video", "audio", "article"},
}

// InferContext classifies the listening/reading behavior and the intent behind
// a prompt, and extracts its search terms.
func InferContext(prompt string, turns []Turn) Context {
	parts := make([]string, 0, len(turns)+1)
	for _, turn := range turns {
		parts = append(parts, turn.Content)
	}
	parts = append(parts, prompt)
	text := strings.TrimSpace(strings.ToLower(strings.Join(parts, " ")))

	behavior := bestCategory(text, behaviorKeywords, BehaviorMixed)
	intent := bestCategory(text, intentKeywords, IntentGeneral)

	preferred := preferredTypesByBehavior[behavior]

	return Context{
		Behavior:       behavior,
		Intent:         intent,
		PreferredTypes: append([]string(nil), preferred...),
		Terms:          extractTerms(text),
	}
}

// bestCategory counts keyword occurrences per category and returns the highest
// non-zero one, or fallback when nothing matched.
func bestCategory[T ~string](text string, table []keywordSet[T], fallback T) T {
	best, bestScore := fallback, 0
	for _, set := range table {
		if score := keywordScore(text, set.keywords); score > bestScore {
			best, bestScore = set.category, score
		}
	}
	return best
}

func keywordScore(text string, keywords []string) int {
	score := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			score++
		}
	}
	return score
}

func extractTerms(text string) []string {
	terms := make([]string, 0, maxTerms)
	seen := make(map[string]struct{})

	for _, token := range termPattern.FindAllString(text, -1) {
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
		if len(terms) >= maxTerms {
			break
		}
	}

	return terms
}
