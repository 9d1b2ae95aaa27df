package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/oezeakachi/chartintake/internal/common"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// TesseractEngine recognizes page images with a gosseract client. The client
// is created on first Recognize and released by Close; a mutex serializes
// recognitions because one client handles one image at a time.
type TesseractEngine struct {
	cfg           Config
	clientFactory func() *gosseract.Client

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractEngine constructs an engine handle without initializing the
// underlying client.
func NewTesseractEngine(cfg Config) *TesseractEngine {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractEngine{cfg: cfg, clientFactory: gosseract.NewClient}
}

// ensureClient lazily initializes the client. Callers hold e.mu.
func (e *TesseractEngine) ensureClient() error {
	if e.client != nil {
		return nil
	}
	c := e.clientFactory()
	if err := c.SetLanguage(e.cfg.Language); err != nil {
		_ = c.Close()
		return fmt.Errorf("set language %q: %w", e.cfg.Language, err)
	}
	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			_ = c.Close()
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	e.client = c
	return nil
}

type recognition struct {
	text string
	conf entity.PageConfidence
	err  error
}

// Recognize runs OCR over one image. The call is bounded by cfg.Timeout; on
// timeout the stuck client is abandoned (closed in the background) and the
// next call initializes a fresh one, so a single stuck page cannot stall the
// job.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureClient(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrRecognition, err)
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	c := e.client
	done := make(chan recognition, 1)
	go func() {
		done <- recognize(c, image)
	}()

	select {
	case <-ctx.Done():
		// The in-flight C call cannot be interrupted; drop the client and
		// let it be reclaimed once the call returns.
		e.client = nil
		go func() {
			<-done
			_ = c.Close()
		}()
		return Result{}, fmt.Errorf("%w: %v", common.ErrRecognition, ctx.Err())
	case out := <-done:
		if out.err != nil {
			return Result{}, fmt.Errorf("%w: %v", common.ErrRecognition, out.err)
		}
		return Result{Text: out.text, Confidence: out.conf}, nil
	}
}

func recognize(c *gosseract.Client, image []byte) recognition {
	if err := c.SetImageFromBytes(image); err != nil {
		return recognition{err: fmt.Errorf("set image: %w", err)}
	}
	text, err := c.Text()
	if err != nil {
		return recognition{err: fmt.Errorf("recognize text: %w", err)}
	}
	return recognition{
		text: strings.TrimSpace(text),
		conf: meanWordConfidence(c),
	}
}

// meanWordConfidence averages word-level confidences on the engine's native
// 0..100 scale. Zero when no words were recognized.
func meanWordConfidence(c *gosseract.Client) entity.PageConfidence {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return entity.PageConfidence(sum / float64(len(boxes)))
}

// Close tears down the underlying client. Safe to call when the client was
// never initialized.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
