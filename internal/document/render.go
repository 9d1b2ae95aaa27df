package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Renderer rasterizes single pages to PNG via pdftoppm. Rendering is only
// invoked when OCR is required; digitally produced pages never pay this
// cost.
type Renderer struct {
	runner   Runner
	pdftoppm string
	baseDPI  int
	logger   *slog.Logger
}

// NewRenderer builds a renderer. An empty binary name falls back to
// "pdftoppm" on PATH; baseDPI <= 0 falls back to 150.
func NewRenderer(pdftoppm string, baseDPI int, logger *slog.Logger) *Renderer {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if baseDPI <= 0 {
		baseDPI = 150
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{runner: execRunner{}, pdftoppm: pdftoppm, baseDPI: baseDPI, logger: logger}
}

// WithRunner swaps the command runner; tests use this to stub pdftoppm.
func (r *Renderer) WithRunner(runner Runner) *Renderer {
	r.runner = runner
	return r
}

// RenderPage rasterizes page n (1-based) at baseDPI*scale and returns PNG
// bytes. Every failure wraps common.ErrPageRender so callers can record and
// skip the page without aborting the job. Temp artifacts are removed on all
// paths.
func (r *Renderer) RenderPage(ctx context.Context, doc *Document, n int, scale int) ([]byte, error) {
	if scale < 1 {
		scale = 1
	}
	if n < 1 || n > doc.PageCount() {
		return nil, pageRenderErr(n, fmt.Errorf("page out of range (1..%d)", doc.PageCount()))
	}

	tmpDir, err := os.MkdirTemp("", "chartintake-pp-*")
	if err != nil {
		return nil, pageRenderErr(n, err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			r.logger.Warn("failed to remove render temp dir", "dir", tmpDir, "error", rerr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	dpi := r.baseDPI * scale
	// pdftoppm -f n -l n -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.pdftoppm,
		"-f", strconv.Itoa(n),
		"-l", strconv.Itoa(n),
		"-r", strconv.Itoa(dpi),
		"-png", doc.path, prefix)
	if err != nil {
		return nil, pageRenderErr(n, fmt.Errorf("pdftoppm: %v: %s", err, truncate(string(errb), 512)))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, pageRenderErr(n, fmt.Errorf("pdftoppm produced no image"))
	}
	img, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, pageRenderErr(n, err)
	}
	return img, nil
}
