package document

import (
	"context"
	"fmt"

	"github.com/oezeakachi/chartintake/internal/common"
)

func pageRenderErr(page int, cause error) error {
	return fmt.Errorf("%w: page %d: %v", common.ErrPageRender, page, cause)
}

// Source binds a Document to a Renderer as one page source for the
// extraction orchestrator.
type Source struct {
	doc *Document
	r   *Renderer
}

// NewSource wraps an opened document and a renderer.
func NewSource(doc *Document, r *Renderer) *Source {
	return &Source{doc: doc, r: r}
}

func (s *Source) PageCount() int { return s.doc.PageCount() }

func (s *Source) PageText(n int) (string, bool, error) { return s.doc.PageText(n) }

func (s *Source) RenderPage(ctx context.Context, n, scale int) ([]byte, error) {
	return s.r.RenderPage(ctx, s.doc, n, scale)
}

func (s *Source) Close() error { return s.doc.Close() }
