package source

import (
	"github.com/goccy/go-json"
)

// Profile is the subset of a site's me.json document the indexer reads.
type Profile struct {
	Version      string               `json:"version" validate:"required"`
	Name         string               `json:"name" validate:"required"`
	Handle       string               `json:"handle,omitempty"`
	Bio          string               `json:"bio,omitempty"`
	Location     string               `json:"location,omitempty"`
	Avatar       string               `json:"avatar,omitempty"`
	Banner       string               `json:"banner,omitempty"`
	Links        json.RawMessage      `json:"links,omitempty"`
	Intents      *ProfileIntents      `json:"intents,omitempty"`
	Verification *ProfileVerification `json:"verification,omitempty"`
	Posts        []ProfilePost        `json:"posts,omitempty"`
}

type ProfileIntents struct {
	Subscribe *SubscribeIntent `json:"subscribe,omitempty"`
}

type SubscribeIntent struct {
	Enabled     bool   `json:"enabled"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
}

type ProfileVerification struct {
	Verified   bool   `json:"verified"`
	VerifiedAt string `json:"verifiedAt,omitempty"`
}

type ProfilePost struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	File        string `json:"file,omitempty"`
}

// ProfileResult carries a validated profile together with the raw bytes it
// was decoded from and their fingerprint.
type ProfileResult struct {
	Profile *Profile
	Raw     []byte
	Hash    string
}
