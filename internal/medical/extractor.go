// Package medical parses aggregated document text into typed clinical
// entities. The approach is deliberately rule-based: sections are located by
// literal start markers, and line-level patterns produce entities. Text not
// claimed by any section is kept in an unmapped bucket so no input goes
// unaccounted for.
package medical

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/oezeakachi/chartintake/internal/entity"
)

// Extractor runs the registered section matchers plus the whole-text vitals
// and document-start header rules.
type Extractor struct {
	matchers []Matcher
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMatchers appends additional section matchers for new document layouts.
func WithMatchers(ms ...Matcher) Option {
	return func(e *Extractor) { e.matchers = append(e.matchers, ms...) }
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{matchers: DefaultMatchers(), logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

var pageLabelRe = regexp.MustCompile(`^--- Page \d+ ---$`)

type segment struct {
	matcher Matcher
	lines   []string
}

// Extract parses the aggregated text of one document.
func (e *Extractor) Extract(text string) *entity.ExtractedMedicalData {
	out := &entity.ExtractedMedicalData{}
	text = norm.NFC.String(text)

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if pageLabelRe.MatchString(strings.TrimSpace(ln)) {
			continue
		}
		lines = append(lines, ln)
	}

	preamble, segments := e.split(lines)

	out.Header = parseHeader(preamble)
	for _, ln := range preamble {
		if strings.TrimSpace(ln) != "" {
			out.Unmapped = append(out.Unmapped, strings.TrimSpace(ln))
		}
	}

	for _, seg := range segments {
		seg.matcher.Parse(seg.lines, out)
	}

	out.Vitals = parseVitals(text)

	e.logger.Debug("medical.extract.ok",
		"conditions", len(out.Conditions),
		"medications", len(out.Medications),
		"labs", len(out.Labs),
		"procedures", len(out.Procedures),
		"allergies", len(out.Allergies),
		"unmapped_lines", len(out.Unmapped),
	)
	return out
}

// split locates section boundaries: a line equal to one of a matcher's
// markers (trailing colon tolerated) opens that matcher's section, which
// runs until the next known marker. Lines before the first marker form the
// preamble.
func (e *Extractor) split(lines []string) (preamble []string, segments []segment) {
	var current *segment
	for _, ln := range lines {
		if m := e.matcherFor(ln); m != nil {
			if current != nil {
				segments = append(segments, *current)
			}
			current = &segment{matcher: m}
			continue
		}
		if current == nil {
			preamble = append(preamble, ln)
		} else {
			current.lines = append(current.lines, ln)
		}
	}
	if current != nil {
		segments = append(segments, *current)
	}
	return preamble, segments
}

func (e *Extractor) matcherFor(line string) Matcher {
	marker := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(line)), ":")
	if marker == "" {
		return nil
	}
	for _, m := range e.matchers {
		for _, want := range m.Markers() {
			if marker == want {
				return m
			}
		}
	}
	return nil
}

// --- patient header (anchored leading patterns near the document start) ---

const headerScanLines = 15

var (
	headerNameRe = regexp.MustCompile(`(?i)^(?:patient(?:\s+name)?|name)\s*[:\-]\s*(.+)$`)
	headerDOBRe  = regexp.MustCompile(`(?i)^(?:dob|date of birth)\s*[:\-]\s*([0-9/.\-]+)\s*$`)
	headerMRNRe  = regexp.MustCompile(`(?i)^(?:mrn|medical record(?:\s+number)?|patient id|chart(?:\s+number)?)\s*[:\-]\s*([A-Za-z0-9\-]+)\s*$`)
)

func parseHeader(preamble []string) *entity.PatientHeader {
	h := entity.PatientHeader{Confidence: headerConfidence}
	var spans []string
	limit := len(preamble)
	if limit > headerScanLines {
		limit = headerScanLines
	}
	for _, raw := range preamble[:limit] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case h.Identifier == "" && headerMRNRe.MatchString(line):
			h.Identifier = headerMRNRe.FindStringSubmatch(line)[1]
			spans = append(spans, line)
		case h.DateOfBirth == "" && headerDOBRe.MatchString(line):
			h.DateOfBirth = headerDOBRe.FindStringSubmatch(line)[1]
			spans = append(spans, line)
		case h.Name == "" && headerNameRe.MatchString(line):
			h.Name = strings.TrimSpace(headerNameRe.FindStringSubmatch(line)[1])
			spans = append(spans, line)
		}
	}
	if h.Name == "" && h.DateOfBirth == "" && h.Identifier == "" {
		return nil
	}
	h.Source = strings.Join(spans, "\n")
	return &h
}

// --- vitals (one aggregate record per document, from patterns anywhere) ---

var (
	vitalBPRe   = regexp.MustCompile(`(?i)(?:blood pressure|\bbp\b)\s*[:\-]?\s*(\d{2,3}\s*/\s*\d{2,3})`)
	vitalHRRe   = regexp.MustCompile(`(?i)(?:heart rate|\bhr\b|pulse)\s*[:\-]?\s*(\d{2,3})\b`)
	vitalTempRe = regexp.MustCompile(`(?i)(?:temperature|\btemp\b)\s*[:\-]?\s*(\d{2,3}(?:\.\d+)?)`)
)

func parseVitals(text string) *entity.Vital {
	v := entity.Vital{Confidence: vitalConfidence}
	var spans []string
	if m := vitalBPRe.FindStringSubmatch(text); m != nil {
		v.BloodPressure = strings.ReplaceAll(m[1], " ", "")
		spans = append(spans, strings.TrimSpace(m[0]))
	}
	if m := vitalHRRe.FindStringSubmatch(text); m != nil {
		v.HeartRate = m[1]
		spans = append(spans, strings.TrimSpace(m[0]))
	}
	if m := vitalTempRe.FindStringSubmatch(text); m != nil {
		v.Temperature = m[1]
		spans = append(spans, strings.TrimSpace(m[0]))
	}
	if len(spans) == 0 {
		return nil
	}
	v.Source = strings.Join(spans, "; ")
	return &v
}
