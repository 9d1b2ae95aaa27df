package pipeline

import (
	"log/slog"

	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/document"
	"github.com/oezeakachi/chartintake/internal/extract"
	"github.com/oezeakachi/chartintake/internal/ocr"
)

// NewDefaultExtractor wires the production text extractor: pdftoppm-backed
// rasterization over the embedded text layer, with a fresh Tesseract engine
// per job.
func NewDefaultExtractor(cfg *common.Config, logger *slog.Logger) extract.TextExtractor {
	renderer := document.NewRenderer(cfg.OCR.Pdftoppm, cfg.OCR.BaseDPI, logger)

	open := func(payload []byte) (extract.PageSource, error) {
		doc, err := document.Open(payload)
		if err != nil {
			return nil, err
		}
		return document.NewSource(doc, renderer), nil
	}

	engine := func() (ocr.Engine, error) {
		return ocr.NewTesseractEngine(ocr.Config{
			Language:    cfg.OCR.Language,
			TessdataDir: cfg.OCR.TessdataDir,
			Timeout:     cfg.OCR.PageTimeout,
		}), nil
	}

	return extract.NewOrchestrator(extract.Config{
		MaxPages:     cfg.OCR.MaxPages,
		QualityScale: cfg.OCR.QualityScale,
		Threshold:    cfg.OCR.Threshold,
		SampleSize:   cfg.OCR.SampleSize,
	}, open, engine, logger)
}
