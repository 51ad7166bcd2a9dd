package render

import (
	"fmt"
	"regexp"
	"strings"
)

var anchorStrip = regexp.MustCompile(`[^a-z0-9]+`)

// truncate bounds text to limit runes, appending "..." when shortened.
func truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}

// slugify lowers text into an anchor-safe slug.
func slugify(text, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	slug := strings.Trim(anchorStrip.ReplaceAllString(normalized, "-"), "-")
	if slug == "" {
		return fallback
	}
	return slug
}

// makeAnchor builds a unique anchor id, numbering repeated slugs so in-page
// links stay unambiguous.
func makeAnchor(counter map[string]int, prefix, text string) string {
	anchor := slugify(text, "finding")
	if prefix != "" {
		anchor = prefix + "-" + anchor
	}
	n := counter[anchor]
	counter[anchor]++
	if n > 0 {
		return fmt.Sprintf("%s-%d", anchor, n)
	}
	return anchor
}
