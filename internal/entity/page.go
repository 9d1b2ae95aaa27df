package entity

import "time"

// PageConfidence is a recognition confidence on the 0..100 scale used by the
// OCR engine. Entity-level confidence uses the 0..1 EntityConfidence scale;
// Normalized is the single conversion point between the two.
type PageConfidence float64

// Normalized converts to the 0..1 entity scale.
func (p PageConfidence) Normalized() EntityConfidence {
	return EntityConfidence(float64(p) / 100)
}

// PageResult is the outcome of reading one page. Created once per page and
// immutable thereafter.
type PageResult struct {
	PageNumber      int            `json:"page_number"`
	Text            string         `json:"text"`
	Confidence      PageConfidence `json:"confidence"`
	HasEmbeddedText bool           `json:"has_embedded_text"`
	Duration        time.Duration  `json:"duration"`
}

// ExtractionResult aggregates the per-page results for one document.
type ExtractionResult struct {
	Text           string         `json:"text"` // page-labeled concatenation
	Pages          []PageResult   `json:"pages"`
	TotalPages     int            `json:"total_pages"` // pages actually processed
	MeanConfidence PageConfidence `json:"mean_confidence"`
	UsedOCR        bool           `json:"used_ocr"` // true if any page needed OCR
	Errors         []string       `json:"errors,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	Duration       time.Duration  `json:"duration"`
}
