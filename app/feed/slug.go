package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugBase      = 48
	itemHashLength   = 8
	handleHashLength = 6
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases value, folds accents to ASCII, replaces every run of other
// characters with a dash and cuts the result to 48 characters.
func Slugify(value string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		folded = value
	}

	slug := nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugBase {
		slug = strings.TrimRight(slug[:maxSlugBase], "-")
	}
	return slug
}

// ItemSlug derives a stable slug for a feed item. The seed is the item id, then
// link, then title, and its hash keeps slugs unique when titles collide.
func ItemSlug(id, title, link string) string {
	seed := firstNonEmpty(id, link, title, "item")
	base := Slugify(firstNonEmpty(title, seed))
	if base == "" {
		base = "item"
	}
	return base + "-" + shortHash(seed, itemHashLength)
}

// PublisherHandle derives a display handle for a feed-backed publisher.
func PublisherHandle(title, feedURL string) string {
	base := Slugify(firstNonEmpty(title, hostWithoutWWW(feedURL), "source"))
	if base == "" {
		base = "source"
	}
	return base + "-" + shortHash(feedURL, handleHashLength)
}

// ProfileHandle falls back to the profile name when no handle is published.
func ProfileHandle(handle, name string) string {
	if handle = strings.TrimSpace(handle); handle != "" {
		return handle
	}
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func hostWithoutWWW(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

func shortHash(seed string, length int) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(seed))))
	return hex.EncodeToString(hash[:])[:length]
}
