// Package itemid generates item identifiers and derives the report type they encode.
// IDs look like "LOST-WALLET-1a2b3c4d": the report type prefix, the category, and a
// random suffix. Only the prefix carries meaning; matching relies on it.
package itemid

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hyperjump/lostfound/internal/models"
)

const (
	separator   = "-"
	prefixLost  = "LOST"
	prefixFound = "FOUND"
)

// New returns a fresh identifier for an item of the given report type and category.
// Unknown report types yield an ID that ReportTypeOf cannot classify.
func New(reportType models.ReportType, category string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return strings.Join([]string{prefixFor(reportType), categoryToken(category), suffix}, separator)
}

// ReportTypeOf derives the report type from the identifier prefix (text before the
// first separator, case-sensitive). Returns "" when the prefix is not recognised.
func ReportTypeOf(id string) models.ReportType {
	prefix, _, _ := strings.Cut(id, separator)
	switch prefix {
	case prefixLost:
		return models.ReportLost
	case prefixFound:
		return models.ReportFound
	default:
		return ""
	}
}

func prefixFor(r models.ReportType) string {
	switch r {
	case models.ReportLost:
		return prefixLost
	case models.ReportFound:
		return prefixFound
	default:
		return strings.ToUpper(string(r))
	}
}

func categoryToken(category string) string {
	token := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, category)
	if token == "" {
		return "GENERAL"
	}
	return token
}
