package alerts

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeText canonicalizes alert text for hashing so reissued alerts
// with cosmetic differences reuse the same cached summary.
func normalizeText(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return whitespaceRun.ReplaceAllString(normalized, " ")
}

// ContentHash returns a stable identity for an alert's content, used as the
// cache key for condensed summaries. Timing fields are deliberately
// excluded: an extended alert with unchanged text keeps its summary.
func ContentHash(a Alert) string {
	content := fmt.Sprintf("%s|%s|%s",
		normalizeText(a.Headline),
		normalizeText(a.Severity),
		normalizeText(a.Description))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
