// Package ocr wraps a stateful recognition engine behind a narrow contract:
// one page image in, recognized text plus confidence out. The underlying
// engine is expensive to initialize, so it is created lazily on first use
// and must be torn down with Close when the owning job finishes.
package ocr

import (
	"context"
	"time"

	"github.com/oezeakachi/chartintake/internal/entity"
)

// Result is the outcome of recognizing one page image.
type Result struct {
	Text       string
	Confidence entity.PageConfidence // 0..100, mean word confidence
}

// Engine recognizes one image at a time; implementations serialize access
// internally and hold no more than one recognition in flight.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
	Close() error
}

// Config controls the Tesseract-backed engine.
type Config struct {
	Language    string        // default "eng"
	TessdataDir string        // optional tessdata override
	Timeout     time.Duration // per-recognition bound; 0 disables
}
