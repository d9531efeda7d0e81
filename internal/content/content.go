// Package content provides display helpers for note text.
package content

import (
	"regexp"
	"strings"
)

var imageURLPattern = regexp.MustCompile(`(?i)(https?://\S+\.(?:jpg|jpeg|png|gif|webp))(?:\s|$)`)

// ExtractImageURLs returns every image URL appearing in the content, in
// order of appearance.
func ExtractImageURLs(text string) []string {
	matches := imageURLPattern.FindAllStringSubmatch(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls
}

// FormatContent strips image URLs from the text so they are not shown twice
// when the images render separately.
func FormatContent(text string) string {
	for _, url := range ExtractImageURLs(text) {
		text = strings.Replace(text, url, "", 1)
	}
	return strings.TrimSpace(text)
}
