package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/oezeakachi/chartintake/constants"
)

// ExistingRecord is one row from the patient record store, as supplied to
// the duplicate detector. The store itself is read-only to this pipeline.
type ExistingRecord struct {
	ID   string               `json:"id"`
	Type constants.EntityType `json:"type"`
	Name string               `json:"name"` // name or test name
	Date string               `json:"date,omitempty"`
}

// DuplicateCandidate flags a newly extracted entity as possibly matching an
// existing record. Advisory only; it never mutates the existing record set.
type DuplicateCandidate struct {
	ExistingID   string                    `json:"existing_id"`
	ExistingName string                    `json:"existing_name"`
	Type         constants.EntityType      `json:"type"`
	Entity       Entity                    `json:"-"`
	Similarity   float64                   `json:"similarity"` // 0..1
	Suggested    constants.SuggestedAction `json:"suggested"`
}

// ReviewItem wraps one extracted entity with a disposition. The disposition
// is defaulted from confidence and finalized only by a human or external
// caller.
type ReviewItem struct {
	Entity        Entity                `json:"-"`
	Disposition   constants.Disposition `json:"disposition"`
	Modifications map[string]string     `json:"modifications,omitempty"` // field-level overrides
	Duplicates    []DuplicateCandidate  `json:"duplicates,omitempty"`
}

// Review is the human-reviewable output of one import job. It is pure data;
// committing accepted items is the host's responsibility.
type Review struct {
	JobID     uuid.UUID    `json:"job_id"`
	Items     []ReviewItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
}
