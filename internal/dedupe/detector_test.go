package dedupe

import (
	"testing"

	"github.com/oezeakachi/chartintake/constants"
	"github.com/oezeakachi/chartintake/internal/entity"
)

func TestSimilarity_IdenticalIgnoringCase(t *testing.T) {
	if got := Similarity("Lisinopril", "lisinopril"); got != 1.0 {
		t.Errorf("Similarity = %v, want 1.0", got)
	}
}

func TestSimilarity_Empty(t *testing.T) {
	if got := Similarity("", "Lisinopril"); got != 0 {
		t.Errorf("Similarity = %v, want 0", got)
	}
}

func TestSimilarity_Containment(t *testing.T) {
	// A bare drug name inside a dosage-qualified one scores the fixed
	// containment value.
	if got := Similarity("Lisinopril", "Lisinopril 10mg"); got != 0.90 {
		t.Errorf("Similarity = %v, want 0.90", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a, b := "Metformin", "Metphormin"
	if Similarity(a, b) != Similarity(b, a) {
		t.Errorf("Similarity(%q,%q) != Similarity(%q,%q)", a, b, b, a)
	}
}

func TestSimilarity_AbbreviationScoresLow(t *testing.T) {
	// "HTN" vs "Hypertension" shares letters but is not a near match at
	// edit-distance level.
	if got := Similarity("HTN", "Hypertension"); got >= 0.80 {
		t.Errorf("Similarity = %v, want < 0.80", got)
	}
}

func TestDetect_SuggestsSkipAboveThreshold(t *testing.T) {
	d := NewDetector(nil)
	ents := []entity.Entity{
		&entity.Medication{Name: "Lisinopril", Confidence: 0.9},
	}
	existing := []entity.ExistingRecord{
		{ID: "r1", Type: constants.EntityMedication, Name: "lisinopril"},
	}
	got := d.Detect(ents, existing)
	if len(got) != 1 {
		t.Fatalf("Detect returned %d candidates, want 1", len(got))
	}
	if got[0].Suggested != constants.ActionSkip {
		t.Errorf("Suggested = %s, want %s", got[0].Suggested, constants.ActionSkip)
	}
	if got[0].ExistingID != "r1" {
		t.Errorf("ExistingID = %s, want r1", got[0].ExistingID)
	}
}

func TestDetect_SuggestsMergeInBand(t *testing.T) {
	d := NewDetector(nil)
	ents := []entity.Entity{
		&entity.Medication{Name: "Lisinopril", Confidence: 0.9},
	}
	existing := []entity.ExistingRecord{
		{ID: "r1", Type: constants.EntityMedication, Name: "Lisinopril 10mg"},
	}
	got := d.Detect(ents, existing)
	if len(got) != 1 {
		t.Fatalf("Detect returned %d candidates, want 1", len(got))
	}
	if got[0].Suggested != constants.ActionMerge {
		t.Errorf("Suggested = %s, want %s", got[0].Suggested, constants.ActionMerge)
	}
}

func TestDetect_IgnoresOtherEntityTypes(t *testing.T) {
	d := NewDetector(nil)
	ents := []entity.Entity{
		&entity.Condition{Name: "Lisinopril", Confidence: 0.9},
	}
	existing := []entity.ExistingRecord{
		{ID: "r1", Type: constants.EntityMedication, Name: "Lisinopril"},
	}
	if got := d.Detect(ents, existing); len(got) != 0 {
		t.Errorf("Detect returned %d candidates across types, want 0", len(got))
	}
}

func TestDetect_BelowBandProducesNothing(t *testing.T) {
	d := NewDetector(nil)
	ents := []entity.Entity{
		&entity.Condition{Name: "HTN", Confidence: 0.9},
	}
	existing := []entity.ExistingRecord{
		{ID: "r1", Type: constants.EntityCondition, Name: "Hypertension"},
	}
	if got := d.Detect(ents, existing); len(got) != 0 {
		t.Errorf("Detect returned %d candidates, want 0", len(got))
	}
}
