package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// SummaryMarkdown renders a human-readable digest of one finished job:
// header identity, per-type counts, dispositions and anything flagged as a
// possible duplicate.
func (s *Service) SummaryMarkdown(job *entity.ImportJob, rev *entity.Review) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Intake summary: %s\n\n", job.SourceName)
	if job.Medical != nil && job.Medical.Header != nil {
		h := job.Medical.Header
		fmt.Fprintf(&b, "**Patient:** %s", orDash(h.Name))
		if h.DateOfBirth != "" {
			fmt.Fprintf(&b, " · DOB %s", h.DateOfBirth)
		}
		if h.Identifier != "" {
			fmt.Fprintf(&b, " · MRN %s", h.Identifier)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Processed %d pages", job.PageCount)
	if job.UsedOCR {
		b.WriteString(" (OCR used)")
	}
	b.WriteString(".\n\n")

	counts := map[constants.EntityType]int{}
	accepted, needsReview, flagged := 0, 0, 0
	for _, item := range rev.Items {
		counts[item.Entity.Kind()]++
		switch item.Disposition {
		case constants.DispositionAccept:
			accepted++
		default:
			needsReview++
		}
		if len(item.Duplicates) > 0 {
			flagged++
		}
	}

	b.WriteString("## Extracted entities\n\n")
	b.WriteString("| Type | Count |\n|---|---|\n")
	for _, kind := range []constants.EntityType{
		constants.EntityPatientHeader,
		constants.EntityCondition,
		constants.EntityMedication,
		constants.EntityLabResult,
		constants.EntityProcedure,
		constants.EntityAllergy,
		constants.EntityVital,
	} {
		if counts[kind] > 0 {
			fmt.Fprintf(&b, "| %s | %d |\n", kind, counts[kind])
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%d items auto-accepted, %d need review, %d flagged as possible duplicates.\n", accepted, needsReview, flagged)

	if len(job.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range job.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	if len(job.Errors) > 0 {
		b.WriteString("\n## Page errors\n\n")
		for _, e := range job.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}

// SummaryHTML converts the markdown summary to HTML for embedding in a
// review UI or email.
func (s *Service) SummaryHTML(job *entity.ImportJob, rev *entity.Review) ([]byte, error) {
	md := s.SummaryMarkdown(job, rev)
	gm := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := gm.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("render summary html: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
