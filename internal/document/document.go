// Package document opens PDF payloads, reads their embedded text layer and
// rasterizes individual pages on demand. Rendering shells out to pdftoppm
// through a stubbable Runner; the text layer is read in-process.
package document

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/oezeakachi/chartintake/internal/common"
)

// Document is an opened PDF payload. Close releases the temp file backing
// rasterization; callers must close on every path.
type Document struct {
	reader    *pdf.Reader
	pageCount int
	path      string // temp copy of the payload for pdftoppm
}

// Open parses a PDF payload. An unparseable payload is a document-level
// failure and wraps common.ErrDocumentParse.
func Open(payload []byte) (*Document, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", common.ErrDocumentParse)
	}
	r, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", common.ErrDocumentParse, err)
	}
	n := r.NumPage()
	if n <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", common.ErrDocumentParse)
	}

	f, err := os.CreateTemp("", "chartintake-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("stage payload: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("stage payload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("stage payload: %w", err)
	}

	return &Document{reader: r, pageCount: n, path: f.Name()}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int { return d.pageCount }

// Close removes the staged payload copy.
func (d *Document) Close() error {
	if d.path == "" {
		return nil
	}
	err := os.Remove(d.path)
	d.path = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged payload: %w", err)
	}
	return nil
}
