// Package export renders a finished review for humans and downstream
// importers: an XLSX worksheet for side-by-side review, schema-validated
// JSON for machine consumption, and an HTML summary for quick reading.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oezeakachi/chartintake/internal/entity"
)

// Service produces export artifacts from a review. It holds no state beyond
// a logger; every method is safe for concurrent use.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

type exportDuplicate struct {
	ExistingID   string  `json:"existing_id"`
	ExistingName string  `json:"existing_name,omitempty"`
	Type         string  `json:"type,omitempty"`
	Similarity   float64 `json:"similarity"`
	Suggested    string  `json:"suggested"`
}

type exportItem struct {
	Type          string            `json:"type"`
	Label         string            `json:"label"`
	Confidence    float64           `json:"confidence"`
	Fields        map[string]string `json:"fields,omitempty"`
	SourceSpan    string            `json:"source_span,omitempty"`
	Disposition   string            `json:"disposition"`
	Modifications map[string]string `json:"modifications,omitempty"`
	Duplicates    []exportDuplicate `json:"duplicates,omitempty"`
}

type exportReview struct {
	JobID     string       `json:"job_id"`
	CreatedAt string       `json:"created_at"`
	Items     []exportItem `json:"items"`
}

func buildExportReview(rev *entity.Review) exportReview {
	out := exportReview{
		JobID:     rev.JobID.String(),
		CreatedAt: rev.CreatedAt.UTC().Format(time.RFC3339),
		Items:     make([]exportItem, 0, len(rev.Items)),
	}
	for _, item := range rev.Items {
		ei := exportItem{
			Type:          string(item.Entity.Kind()),
			Label:         item.Entity.Label(),
			Confidence:    float64(item.Entity.Score()),
			Fields:        item.Entity.Fields(),
			SourceSpan:    item.Entity.Span(),
			Disposition:   string(item.Disposition),
			Modifications: item.Modifications,
		}
		for _, d := range item.Duplicates {
			ei.Duplicates = append(ei.Duplicates, exportDuplicate{
				ExistingID:   d.ExistingID,
				ExistingName: d.ExistingName,
				Type:         string(d.Type),
				Similarity:   d.Similarity,
				Suggested:    string(d.Suggested),
			})
		}
		out.Items = append(out.Items, ei)
	}
	return out
}

// ExportReviewJSON marshals the review and validates the result against the
// review schema before returning it.
func (s *Service) ExportReviewJSON(rev *entity.Review) ([]byte, error) {
	b, err := json.MarshalIndent(buildExportReview(rev), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal review: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildReviewJSONSchema(), b); err != nil {
		return nil, fmt.Errorf("review export failed validation: %w", err)
	}
	s.logger.Info("export.json.ok", "job_id", rev.JobID.String(), "items", len(rev.Items))
	return b, nil
}

// ExportReviewXLSX returns an XLSX workbook (as bytes) with one row per
// review item, duplicates flattened into a single column.
func (s *Service) ExportReviewXLSX(rev *entity.Review) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Review"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Type",
		"Name",
		"Confidence",
		"Disposition",
		"Details",
		"Possible Duplicates",
		"Source Text",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, item := range rev.Items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, string(item.Entity.Kind()))
		write(2, item.Entity.Label())
		write(3, fmt.Sprintf("%.2f", float64(item.Entity.Score())))
		write(4, string(item.Disposition))
		write(5, formatFields(item.Entity.Fields()))

		var dups []string
		for _, d := range item.Duplicates {
			dups = append(dups, fmt.Sprintf("%s (%.0f%%, %s)", d.ExistingName, d.Similarity*100, d.Suggested))
		}
		write(6, strings.Join(dups, "; "))
		write(7, truncate(item.Entity.Span(), 140))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // type
	_ = f.SetColWidth(sheet, "B", "B", 28) // name
	_ = f.SetColWidth(sheet, "C", "D", 12) // confidence, disposition
	_ = f.SetColWidth(sheet, "E", "E", 48) // details
	_ = f.SetColWidth(sheet, "F", "F", 40) // duplicates
	_ = f.SetColWidth(sheet, "G", "G", 60) // source text

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", rev.JobID.String(),
		"rows", len(rev.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	// Stable order for spreadsheet diffing.
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		if fields[k] == "" {
			continue
		}
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
