package meme

import (
	"regexp"
	"strings"

	"memer/models"
)

var alnum = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Filter is a caller-supplied predicate on candidate posts.
type Filter func(models.Post) bool

// keywordMatcher matches titles against keyword. Alphanumeric keywords use
// word boundaries so "cat" does not match "education".
func keywordMatcher(keyword string) func(string) bool {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return func(string) bool { return true }
	}
	if alnum.MatchString(kw) {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		return re.MatchString
	}
	lower := strings.ToLower(kw)
	return func(title string) bool {
		return strings.Contains(strings.ToLower(title), lower)
	}
}

// MatchesKeyword reports whether title matches keyword with the same rules
// the fetcher uses.
func MatchesKeyword(title, keyword string) bool {
	return keywordMatcher(keyword)(title)
}
