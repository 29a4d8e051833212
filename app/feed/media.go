package feed

import (
	"net/url"
	"regexp"
	"strings"

	ext "github.com/mmcdole/gofeed/extensions"
)

var (
	imagePathPattern = regexp.MustCompile(`(?i)\.(avif|gif|jpe?g|png|svg|webp)$`)
	imageRawPattern  = regexp.MustCompile(`(?i)\.(avif|gif|jpe?g|png|svg|webp)(\?.*)?$`)
)

// IsLikelyImageURL reports whether the URL path ends in a common image extension.
func IsLikelyImageURL(value string) bool {
	if value == "" {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" {
		return imageRawPattern.MatchString(value)
	}
	return imagePathPattern.MatchString(parsed.Path)
}

func imageURLOrEmpty(value string) string {
	if IsLikelyImageURL(value) {
		return value
	}
	return ""
}

func extensionNodes(exts ext.Extensions, prefix, name string) []ext.Extension {
	if exts == nil {
		return nil
	}
	group, ok := exts[prefix]
	if !ok {
		return nil
	}
	if nodes, ok := group[name]; ok {
		return nodes
	}
	return group[strings.ToLower(name)]
}

func childNodes(node ext.Extension, name string) []ext.Extension {
	if node.Children == nil {
		return nil
	}
	if nodes, ok := node.Children[name]; ok {
		return nodes
	}
	return node.Children[strings.ToLower(name)]
}

func extensionValue(exts ext.Extensions, prefix, name string) string {
	for _, node := range extensionNodes(exts, prefix, name) {
		if value := strings.TrimSpace(node.Value); value != "" {
			return value
		}
	}
	return ""
}

func extensionAttr(exts ext.Extensions, prefix, name, attr string) string {
	return nodeURL(extensionNodes(exts, prefix, name), attr)
}

func nodeURL(nodes []ext.Extension, attrs ...string) string {
	for _, node := range nodes {
		for _, attr := range attrs {
			if value := strings.TrimSpace(node.Attrs[attr]); value != "" {
				return value
			}
		}
		if value := strings.TrimSpace(node.Value); value != "" {
			return value
		}
	}
	return ""
}

func mediaGroups(exts ext.Extensions) []ext.Extension {
	return extensionNodes(exts, "media", "group")
}

func videoID(exts ext.Extensions) string {
	return extensionValue(exts, "yt", "videoId")
}

// media:thumbnail
func mediaThumbnail(exts ext.Extensions) string {
	return nodeURL(extensionNodes(exts, "media", "thumbnail"), "url", "href")
}

// media:group/media:thumbnail
func groupThumbnail(exts ext.Extensions) string {
	for _, group := range mediaGroups(exts) {
		if thumb := nodeURL(childNodes(group, "thumbnail"), "url", "href"); thumb != "" {
			return thumb
		}
	}
	return ""
}

func groupDescription(exts ext.Extensions) string {
	for _, group := range mediaGroups(exts) {
		for _, node := range childNodes(group, "description") {
			if value := strings.TrimSpace(node.Value); value != "" {
				return value
			}
		}
	}
	return ""
}

func mediaContents(exts ext.Extensions) []ext.Extension {
	var contents []ext.Extension
	for _, group := range mediaGroups(exts) {
		contents = append(contents, childNodes(group, "content")...)
	}
	if len(contents) > 0 {
		return contents
	}
	return extensionNodes(exts, "media", "content")
}

// imageMediaContent returns the first media:content entry typed or shaped like an image.
func imageMediaContent(exts ext.Extensions) string {
	for _, node := range mediaContents(exts) {
		mediaURL := strings.TrimSpace(node.Attrs["url"])
		if mediaURL == "" {
			continue
		}
		mimeType := strings.ToLower(node.Attrs["type"])
		medium := strings.ToLower(node.Attrs["medium"])
		if strings.HasPrefix(mimeType, "image/") || medium == "image" || IsLikelyImageURL(mediaURL) {
			return mediaURL
		}
	}
	return ""
}

// platformDuration reads yt:duration@seconds from a media group or the item itself.
func platformDuration(exts ext.Extensions) int {
	for _, group := range mediaGroups(exts) {
		if seconds := durationAttr(childNodes(group, "duration"), "seconds"); seconds > 0 {
			return seconds
		}
	}
	return durationAttr(extensionNodes(exts, "yt", "duration"), "seconds")
}

func mediaContentDuration(exts ext.Extensions) int {
	return durationAttr(mediaContents(exts), "duration")
}

func durationAttr(nodes []ext.Extension, attr string) int {
	for _, node := range nodes {
		if seconds := ParseDuration(node.Attrs[attr]); seconds > 0 {
			return seconds
		}
		if seconds := ParseDuration(node.Value); seconds > 0 {
			return seconds
		}
	}
	return 0
}
