package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes free text from a report (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// normalizeCategory lowercases and trims a category; empty becomes "general".
func normalizeCategory(category string) string {
	category = strings.ToLower(Preprocess(category))
	if category == "" {
		return "general"
	}
	return category
}
