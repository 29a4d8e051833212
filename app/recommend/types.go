package recommend

import (
	"time"
)

type Behavior string

const (
	BehaviorListen Behavior = "listen"
	BehaviorWatch  Behavior = "watch"
	BehaviorRead   Behavior = "read"
	BehaviorMixed  Behavior = "mixed"
)

type Intent string

const (
	IntentLatest        Intent = "latest"
	IntentLearn         Intent = "learn"
	IntentEntertainment Intent = "entertainment"
	IntentGeneral       Intent = "general"
)

// Turn is one earlier message of the conversation the prompt belongs to.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context is what the engine infers from a prompt and its prior turns.
type Context struct {
	Behavior       Behavior
	Intent         Intent
	PreferredTypes []string
	Terms          []string
}

// Candidate is a stored content item as seen by the ranker.
type Candidate struct {
	ID             string
	Title          string
	Excerpt        string
	CreatorName    string
	CreatorHandle  string
	ContentType    string
	ContentURL     string
	MediaURL       string
	MediaThumbnail string
	PublishedAt    *time.Time
	Topics         []string
	Transcript     string
}

type Media struct {
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Recommendation struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	CreatorName   string     `json:"creatorName"`
	CreatorHandle string     `json:"creatorHandle"`
	ContentType   string     `json:"contentType"`
	URL           string     `json:"url"`
	PublishedAt   *time.Time `json:"publishedAt"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Media         Media      `json:"media"`
	Why           string     `json:"why"`
	Score         float64    `json:"score"`
	IsFresh       bool       `json:"isFresh"`
	Keywords      []string   `json:"keywords"`
}

type Mode struct {
	Behavior       Behavior `json:"behavior"`
	Intent         Intent   `json:"intent"`
	PreferredTypes []string `json:"preferredTypes"`
}

type Coverage struct {
	WindowDays    int  `json:"windowDays"`
	TotalMatches  int  `json:"totalMatches"`
	RecentMatches int  `json:"recentMatches"`
	Thin          bool `json:"thin"`
}

type Result struct {
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Mode            Mode             `json:"mode"`
	Coverage        Coverage         `json:"coverage"`
	NeedsRefresh    bool             `json:"needsRefresh"`
}

// Request holds every input of a ranking. Now is supplied by the caller so
// equal requests rank identically.
type Request struct {
	Prompt    string
	Turns     []Turn
	Items     []Candidate
	Days      int
	Limit     int
	Refreshed bool
	Now       time.Time
}
