package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/oezeakachi/chartintake/constants"
)

// ImportJob represents one document intake run. It is created on submission
// and mutated only by the job manager; once Status is terminal no further
// mutation is accepted.
type ImportJob struct {
	ID          uuid.UUID            `json:"id"`
	SourceName  string               `json:"source_name"`
	SourceSize  int64                `json:"source_size"`
	Status      constants.JobStatus  `json:"status"`
	Progress    int                  `json:"progress"` // percent, monotonically non-decreasing
	PageCount   int                  `json:"page_count"`
	Text        string               `json:"text,omitempty"` // aggregated document text, if retained
	UsedOCR     bool                 `json:"used_ocr"`
	Medical     *ExtractedMedicalData `json:"medical,omitempty"`
	Errors      []string             `json:"errors,omitempty"`   // hard failures (page or document level)
	Warnings    []string             `json:"warnings,omitempty"` // advisory only, never block progress
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}
