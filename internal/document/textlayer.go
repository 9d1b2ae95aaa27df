package document

import "strings"

// embeddedTextThreshold is the minimum trimmed length before a page's text
// layer counts as real content. Stray marks in scanned documents often carry
// a few phantom glyphs.
const embeddedTextThreshold = 16

// PageText reads the embedded text layer of page n (1-based). The boolean
// reports whether the page has usable embedded text; when false the caller
// should fall back to rasterization and OCR. A read failure on one page is
// reported as an error but never aborts the document.
func (d *Document) PageText(n int) (string, bool, error) {
	if n < 1 || n > d.pageCount {
		return "", false, nil
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", false, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false, err
	}
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) <= embeddedTextThreshold {
		return "", false, nil
	}
	return trimmed, true, nil
}
