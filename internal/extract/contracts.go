package extract

import (
	"context"

	"github.com/oezeakachi/chartintake/internal/entity"
	"github.com/oezeakachi/chartintake/internal/ocr"
)

// PageSource yields per-page text layers and rasterized images for one
// opened document. internal/document.Source is the production
// implementation; tests stub it.
type PageSource interface {
	PageCount() int
	// PageText returns the embedded text layer for page n (1-based) and
	// whether it is usable without OCR.
	PageText(n int) (string, bool, error)
	RenderPage(ctx context.Context, n, scale int) ([]byte, error)
	Close() error
}

// SourceOpener opens a document payload as a page source. Parse failures
// wrap common.ErrDocumentParse and fail the whole job.
type SourceOpener func(payload []byte) (PageSource, error)

// EngineProvider constructs the OCR engine for the current job. It is only
// invoked once the first page actually needs OCR; the orchestrator tears the
// engine down when extraction finishes.
type EngineProvider func() (ocr.Engine, error)

// Progress is emitted after each processed page. Events are dispatched
// without blocking the page loop; a slow consumer misses events rather than
// stalling extraction.
type Progress struct {
	Page    int
	Total   int
	Message string
}

// TextExtractor is the pipeline-facing contract: payload in, aggregated
// text plus per-page results out.
type TextExtractor interface {
	Extract(ctx context.Context, payload []byte, progress chan<- Progress) (entity.ExtractionResult, error)
	NeedsOCR(payload []byte, sampleSize int) (bool, error)
}
