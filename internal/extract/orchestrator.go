// Package extract walks a document page by page, preferring the embedded
// text layer and falling back to rasterization plus OCR only when a page has
// none. Pages are processed strictly sequentially: the OCR engine is
// stateful and handles one recognition at a time.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/entity"
	"github.com/oezeakachi/chartintake/internal/ocr"
)

// Config holds the orchestration knobs. Zero values fall back to the
// documented defaults.
type Config struct {
	MaxPages     int     // page cap, default 100; truncation is explicit
	QualityScale int     // rasterization multiplier 1..3, default 2
	Threshold    float64 // 0..100; pages below this get a warning, default 60
	SampleSize   int     // NeedsOCR sample, default 3
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = 100
	}
	if c.QualityScale < 1 {
		c.QualityScale = 2
	}
	if c.QualityScale > 3 {
		c.QualityScale = 3
	}
	if c.Threshold <= 0 {
		c.Threshold = 60
	}
	if c.SampleSize <= 0 {
		c.SampleSize = 3
	}
	return c
}

// Orchestrator implements TextExtractor over a page source and a lazily
// provided OCR engine.
type Orchestrator struct {
	cfg    Config
	open   SourceOpener
	engine EngineProvider
	logger *slog.Logger
}

var _ TextExtractor = (*Orchestrator)(nil)

func NewOrchestrator(cfg Config, open SourceOpener, engine EngineProvider, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg.withDefaults(), open: open, engine: engine, logger: logger}
}

// Extract processes every page up to the configured cap. Page-level
// failures (render or recognition) degrade that page to empty text and zero
// confidence and are recorded; only document-level failures abort. Progress
// events are sent non-blocking after each page.
func (o *Orchestrator) Extract(ctx context.Context, payload []byte, progress chan<- Progress) (entity.ExtractionResult, error) {
	start := time.Now()
	var res entity.ExtractionResult

	src, err := o.open(payload)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			o.logger.Warn("extract.source.close_failed", "error", cerr)
		}
	}()

	total := src.PageCount()
	if total > o.cfg.MaxPages {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("document has %d pages; processing stopped at the %d-page cap", total, o.cfg.MaxPages))
		total = o.cfg.MaxPages
	}

	// The engine is created lazily on the first page that needs OCR and torn
	// down when extraction finishes, one engine per job.
	var eng ocr.Engine
	defer func() {
		if eng != nil {
			if cerr := eng.Close(); cerr != nil {
				o.logger.Warn("extract.engine.close_failed", "error", cerr)
			}
		}
	}()

	var b strings.Builder
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}

		pr, eng2, pageErr := o.processPage(ctx, src, eng, n)
		eng = eng2
		if pageErr != nil {
			if common.IsDocumentFailure(pageErr) {
				res.Duration = time.Since(start)
				return res, pageErr
			}
			res.Errors = append(res.Errors, pageErr.Error())
		}
		if !pr.HasEmbeddedText {
			res.UsedOCR = true
		}
		if float64(pr.Confidence) < o.cfg.Threshold {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("page %d confidence %.0f below threshold %.0f", n, float64(pr.Confidence), o.cfg.Threshold))
		}
		res.Pages = append(res.Pages, pr)

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", n)
		b.WriteString(pr.Text)

		notify(progress, Progress{Page: n, Total: total, Message: fmt.Sprintf("processed page %d of %d", n, total)})
	}

	res.Text = b.String()
	res.TotalPages = len(res.Pages)
	res.MeanConfidence = meanConfidence(res.Pages)
	res.Duration = time.Since(start)

	o.logger.Info("extract.ok",
		"pages", res.TotalPages,
		"used_ocr", res.UsedOCR,
		"mean_confidence", float64(res.MeanConfidence),
		"page_errors", len(res.Errors),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// processPage reads one page: text layer first, OCR fallback. It returns
// the (possibly degraded) page result, the engine if one was created, and a
// recordable page-level error.
func (o *Orchestrator) processPage(ctx context.Context, src PageSource, eng ocr.Engine, n int) (entity.PageResult, ocr.Engine, error) {
	t0 := time.Now()
	pr := entity.PageResult{PageNumber: n}

	text, hasText, err := src.PageText(n)
	if err != nil {
		// A broken text layer is not fatal; the page falls through to OCR.
		o.logger.Warn("extract.textlayer.failed", "page", n, "error", err)
	}
	if hasText {
		pr.Text = text
		pr.HasEmbeddedText = true
		pr.Confidence = 100
		pr.Duration = time.Since(t0)
		return pr, eng, nil
	}

	img, err := src.RenderPage(ctx, n, o.cfg.QualityScale)
	if err != nil {
		pr.Duration = time.Since(t0)
		return pr, eng, err
	}

	if eng == nil {
		eng, err = o.engine()
		if err != nil {
			pr.Duration = time.Since(t0)
			return pr, eng, fmt.Errorf("%w: %v", common.ErrRecognition, err)
		}
	}
	out, err := eng.Recognize(ctx, img)
	if err != nil {
		pr.Duration = time.Since(t0)
		return pr, eng, err
	}
	pr.Text = out.Text
	pr.Confidence = out.Confidence
	pr.Duration = time.Since(t0)
	return pr, eng, nil
}

// NeedsOCR samples the first sampleSize pages (default from config) and
// reports whether any of them lacks an embedded text layer. It never
// rasterizes or recognizes anything.
func (o *Orchestrator) NeedsOCR(payload []byte, sampleSize int) (bool, error) {
	if sampleSize <= 0 {
		sampleSize = o.cfg.SampleSize
	}
	src, err := o.open(payload)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			o.logger.Warn("extract.source.close_failed", "error", cerr)
		}
	}()

	n := src.PageCount()
	if n > sampleSize {
		n = sampleSize
	}
	for i := 1; i <= n; i++ {
		_, hasText, err := src.PageText(i)
		if err != nil {
			return true, nil
		}
		if !hasText {
			return true, nil
		}
	}
	return false, nil
}

func meanConfidence(pages []entity.PageResult) entity.PageConfidence {
	if len(pages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pages {
		sum += float64(p.Confidence)
	}
	return entity.PageConfidence(sum / float64(len(pages)))
}

// notify dispatches a progress event without ever blocking the page loop.
func notify(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}
