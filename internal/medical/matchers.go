package medical

import (
	"regexp"
	"strings"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/entity"
)

// Per-type confidence is a fixed constant reflecting rule-match certainty,
// not a computed per-field score.
const (
	conditionConfidence  entity.EntityConfidence = 0.85
	medicationConfidence entity.EntityConfidence = 0.90
	labConfidence        entity.EntityConfidence = 0.85
	procedureConfidence  entity.EntityConfidence = 0.80
	allergyConfidence    entity.EntityConfidence = 0.90
	vitalConfidence      entity.EntityConfidence = 0.75
	headerConfidence     entity.EntityConfidence = 0.70
)

// Matcher claims document sections by their literal start markers and parses
// the section body into typed entities. New document layouts are added by
// registering another matcher, not by editing a monolithic parser.
type Matcher interface {
	Name() string
	// Markers are the uppercase literal strings that open a section this
	// matcher claims. A trailing colon on the document line is tolerated.
	Markers() []string
	Parse(lines []string, out *entity.ExtractedMedicalData)
}

// DefaultMatchers returns the built-in section matchers.
func DefaultMatchers() []Matcher {
	return []Matcher{
		conditionMatcher{},
		medicationMatcher{},
		labMatcher{},
		allergyMatcher{},
		procedureMatcher{},
	}
}

var bulletRe = regexp.MustCompile(`^[-*•]\s*`)

func stripBullet(line string) string {
	return strings.TrimSpace(bulletRe.ReplaceAllString(strings.TrimSpace(line), ""))
}

// --- conditions ---

type conditionMatcher struct{}

func (conditionMatcher) Name() string { return "conditions" }
func (conditionMatcher) Markers() []string {
	return []string{"MEDICAL HISTORY", "PAST MEDICAL HISTORY", "DIAGNOSES", "CONDITIONS", "PROBLEM LIST"}
}

var (
	conditionCodeRe  = regexp.MustCompile(`\(([A-Z][0-9]{2}(?:\.[0-9A-Z]+)?)\)`)
	conditionOnsetRe = regexp.MustCompile(`(?i)[,;\-–]?\s*(?:diagnosed|onset|since)\s*:?\s*(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}(?:-\d{2}-\d{2})?)`)
	resolvedRe       = regexp.MustCompile(`(?i)\bresolved\b`)
)

func (conditionMatcher) Parse(lines []string, out *entity.ExtractedMedicalData) {
	for _, raw := range lines {
		line := stripBullet(raw)
		if line == "" {
			continue
		}
		c := entity.Condition{
			Status:     "active",
			Confidence: conditionConfidence,
			Source:     strings.TrimSpace(raw),
		}
		rest := line
		if m := conditionCodeRe.FindStringSubmatch(rest); m != nil {
			c.Code = m[1]
			rest = strings.Replace(rest, m[0], "", 1)
		}
		if m := conditionOnsetRe.FindStringSubmatch(rest); m != nil {
			c.OnsetDate = m[1]
			rest = strings.Replace(rest, m[0], "", 1)
		}
		if resolvedRe.MatchString(rest) {
			c.Status = "resolved"
			rest = resolvedRe.ReplaceAllString(rest, "")
		}
		c.Name = strings.Trim(strings.TrimSpace(rest), " -–,;:()")
		if c.Name == "" {
			continue
		}
		out.Conditions = append(out.Conditions, c)
	}
}

// --- medications ---

type medicationMatcher struct{}

func (medicationMatcher) Name() string { return "medications" }
func (medicationMatcher) Markers() []string {
	return []string{"CURRENT MEDICATIONS", "MEDICATIONS", "MEDICATION LIST"}
}

// name, numeric dosage plus unit, remainder of the line as frequency.
var medicationRe = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9/\- ]*?)\s+(\d+(?:\.\d+)?\s?(?:mg|mcg|g|ml|iu|units?))\b\s*(.*)$`)

func (medicationMatcher) Parse(lines []string, out *entity.ExtractedMedicalData) {
	for _, raw := range lines {
		line := stripBullet(raw)
		if line == "" {
			continue
		}
		m := medicationRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out.Medications = append(out.Medications, entity.Medication{
			Name:       strings.TrimSpace(m[1]),
			Dosage:     strings.TrimSpace(m[2]),
			Frequency:  strings.TrimSpace(m[3]),
			Confidence: medicationConfidence,
			Source:     strings.TrimSpace(raw),
		})
	}
}

// --- labs ---

type labMatcher struct{}

func (labMatcher) Name() string { return "labs" }
func (labMatcher) Markers() []string {
	return []string{"RECENT LABS", "LAB RESULTS", "LABORATORY RESULTS", "LABS"}
}

// test name, raw value, optional bracketed comment.
var labRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 /%\-]*?)\s*[:=]\s*([^(\[]+?)\s*(?:[(\[]([^)\]]+)[)\]])?\s*$`)

func (labMatcher) Parse(lines []string, out *entity.ExtractedMedicalData) {
	for _, raw := range lines {
		line := stripBullet(raw)
		if line == "" {
			continue
		}
		m := labRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out.Labs = append(out.Labs, entity.LabResult{
			TestName:   strings.TrimSpace(m[1]),
			Value:      strings.TrimSpace(m[2]),
			Status:     labStatus(m[3]),
			Confidence: labConfidence,
			Source:     strings.TrimSpace(raw),
		})
	}
}

// --- allergies ---

type allergyMatcher struct{}

func (allergyMatcher) Name() string      { return "allergies" }
func (allergyMatcher) Markers() []string { return []string{"ALLERGIES", "DRUG ALLERGIES"} }

var (
	allergyRe   = regexp.MustCompile(`^([A-Za-z][A-Za-z\- ]*?)\s*(?:\(([^)]+)\))?\s*$`)
	noAllergyRe = regexp.MustCompile(`(?i)^(?:nkda|no known(?:\s+drug)?\s+allergies)\b`)
)

func (allergyMatcher) Parse(lines []string, out *entity.ExtractedMedicalData) {
	for _, raw := range lines {
		line := stripBullet(raw)
		if line == "" || noAllergyRe.MatchString(line) {
			continue
		}
		m := allergyRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out.Allergies = append(out.Allergies, entity.Allergy{
			Allergen:   strings.TrimSpace(m[1]),
			Reaction:   strings.TrimSpace(m[2]),
			Confidence: allergyConfidence,
			Source:     strings.TrimSpace(raw),
		})
	}
}

// --- procedures ---

type procedureMatcher struct{}

func (procedureMatcher) Name() string { return "procedures" }
func (procedureMatcher) Markers() []string {
	return []string{"PROCEDURES", "SURGICAL HISTORY", "PAST SURGICAL HISTORY"}
}

var procedureDateRe = regexp.MustCompile(`[\-–(]\s*(\d{1,2}/\d{1,2}/\d{2,4}|(?:19|20)\d{2}(?:-\d{2}-\d{2})?)\)?\s*$`)

func (procedureMatcher) Parse(lines []string, out *entity.ExtractedMedicalData) {
	for _, raw := range lines {
		line := stripBullet(raw)
		if line == "" {
			continue
		}
		p := entity.Procedure{
			Confidence: procedureConfidence,
			Source:     strings.TrimSpace(raw),
		}
		if m := procedureDateRe.FindStringSubmatch(line); m != nil {
			p.Date = m[1]
			line = strings.TrimSpace(strings.TrimSuffix(line, m[0]))
		}
		p.Name = strings.Trim(line, " -–,;:")
		if p.Name == "" {
			continue
		}
		out.Procedures = append(out.Procedures, p)
	}
}

// labStatus maps a bracketed lab comment to a status by keyword.
func labStatus(comment string) constants.LabStatus {
	c := strings.ToLower(strings.TrimSpace(comment))
	switch {
	case c == "":
		return constants.LabStatusUnknown
	case strings.Contains(c, "critical"):
		return constants.LabStatusCritical
	case strings.Contains(c, "high"), strings.Contains(c, "elevated"):
		return constants.LabStatusAbnormal
	case strings.Contains(c, "normal"), strings.Contains(c, "goal"):
		return constants.LabStatusNormal
	default:
		return constants.LabStatusUnknown
	}
}
