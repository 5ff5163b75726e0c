package match

import "github.com/hyperjump/lostfound/internal/models"

const (
	highConfidence   = 0.75
	mediumConfidence = 0.50
)

// ConfidenceLabel buckets a similarity score. Bounds are inclusive on the lower side.
func ConfidenceLabel(score float64) models.Confidence {
	switch {
	case score >= highConfidence:
		return models.ConfidenceHigh
	case score >= mediumConfidence:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
