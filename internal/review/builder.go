// Package review assembles extracted entities and duplicate candidates into
// the human-reviewable item list. It produces pure data and performs no
// writes; committing accepted items is the host's call.
package review

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// Builder wraps entities in review items with confidence-defaulted
// dispositions.
type Builder struct {
	threshold entity.EntityConfidence
	logger    *slog.Logger
}

// NewBuilder takes the entity-confidence threshold (0..1) at or above which
// an item defaults to accept; below it the default is modify.
func NewBuilder(threshold float64, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{threshold: entity.EntityConfidence(threshold), logger: logger}
}

// Build produces the review for one job. Duplicate candidates are attached
// to the item carrying the entity they flag; they influence nothing
// automatically, the disposition default comes from entity confidence
// alone.
func (b *Builder) Build(jobID uuid.UUID, med *entity.ExtractedMedicalData, dups []entity.DuplicateCandidate) entity.Review {
	rev := entity.Review{JobID: jobID, CreatedAt: time.Now().UTC()}
	for _, e := range med.All() {
		item := entity.ReviewItem{
			Entity:      e,
			Disposition: constants.DispositionAccept,
		}
		if e.Score() < b.threshold {
			item.Disposition = constants.DispositionModify
		}
		for _, d := range dups {
			if d.Type == e.Kind() && d.Entity.Label() == e.Label() {
				item.Duplicates = append(item.Duplicates, d)
			}
		}
		rev.Items = append(rev.Items, item)
	}
	b.logger.Info("review.built", "job_id", jobID, "items", len(rev.Items), "duplicates", len(dups))
	return rev
}
