// Package digest reduces fetched content to the compact form sent to the language model.
package digest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/wpassist/internal/domain"
)

// MaxExcerptLen is the number of characters kept from each plain-text excerpt.
const MaxExcerptLen = 150

// Matches a tag, or an unterminated tag running to the end of the string.
var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// Entry is the digest of one content item.
type Entry struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Build maps every item to its digest entry, preserving order.
func Build(items []domain.ContentItem) []Entry {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{
			ID:      item.ID,
			Title:   item.RenderedTitle,
			Excerpt: Truncate(StripMarkup(item.RenderedExcerpt), MaxExcerptLen),
		})
	}
	return entries
}

// StripMarkup removes all tags from s. A stray '>' outside any tag is dropped as well,
// so the result never contains angle brackets.
func StripMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, ">", "")
}

// Truncate keeps the first n characters of s with no word-boundary handling.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
