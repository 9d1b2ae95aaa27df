// Package dedupe compares newly extracted entities against an externally
// supplied existing-record set and produces advisory merge/skip suggestions.
// It never writes to the existing records. The scan is O(N*M) per entity
// type, which is fine at single-document, per-patient scale.
package dedupe

import (
	"log/slog"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// Suggestion thresholds. Similarity above skipThreshold means the entity is
// almost certainly already on record; the merge band below it asks a human
// to reconcile.
const (
	skipThreshold  = 0.95
	mergeThreshold = 0.80

	// containmentSimilarity is assigned when one name is a substring of the
	// other, e.g. a bare drug name inside "Drugname 10mg".
	containmentSimilarity = 0.90
)

// Similarity scores two names in [0,1]: 1 - editDistance/maxLen, with exact
// substring containment short-circuited to 0.9. Comparison is
// case-insensitive and symmetric.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentSimilarity
	}
	dist := levenshtein.Distance(a, b, nil)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// Detector flags near-duplicates between extracted entities and existing
// records of the same type.
type Detector struct {
	logger *slog.Logger
}

func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger}
}

// Detect compares each entity against every existing record of its type.
// Pairs at or above the merge threshold become candidates; higher than the
// skip threshold the suggestion is skip, otherwise merge. Suggestions are
// advisory only and are never auto-applied.
func (d *Detector) Detect(entities []entity.Entity, existing []entity.ExistingRecord) []entity.DuplicateCandidate {
	var out []entity.DuplicateCandidate
	for _, e := range entities {
		for _, rec := range existing {
			if rec.Type != e.Kind() {
				continue
			}
			sim := Similarity(e.Label(), rec.Name)
			if sim < mergeThreshold {
				continue
			}
			action := constants.ActionMerge
			if sim > skipThreshold {
				action = constants.ActionSkip
			}
			out = append(out, entity.DuplicateCandidate{
				ExistingID:   rec.ID,
				ExistingName: rec.Name,
				Type:         e.Kind(),
				Entity:       e,
				Similarity:   sim,
				Suggested:    action,
			})
		}
	}
	if len(out) > 0 {
		d.logger.Info("dedupe.candidates", "count", len(out))
	}
	return out
}
