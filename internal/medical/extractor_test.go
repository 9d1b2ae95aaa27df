package medical

import (
	"testing"

	"github.com/oezeakachi/chartintake/constants"
)

const sampleChart = `Patient Name: Jordan Rivera
DOB: 04/12/1961
MRN: A-204981
Vitals today: BP 142/88, HR 78, Temp 98.6
Follow up in 3 months.

MEDICAL HISTORY:
- Type 2 Diabetes Mellitus (E11.9), diagnosed 2015
- Hypertension, resolved

CURRENT MEDICATIONS:
- Metformin 500mg twice daily
- Lisinopril 10mg once daily
- also reviewed exercise plan

RECENT LABS:
Glucose: 210 mg/dL (high)
HbA1c: 8.2% (elevated)
Sodium: 139 mmol/L (normal)
TSH: 2.1

ALLERGIES:
- Penicillin (hives)
- NKDA for foods

PROCEDURES:
- Appendectomy - 1998
- Colonoscopy (06/14/2021)`

func TestExtract_MedicationSection(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if len(got.Medications) != 2 {
		t.Fatalf("Medications = %d, want 2 (narrative line must not match)", len(got.Medications))
	}
	m := got.Medications[0]
	if m.Name != "Metformin" || m.Dosage != "500mg" || m.Frequency != "twice daily" {
		t.Errorf("medication[0] = %+v, want Metformin/500mg/twice daily", m)
	}
	if m.Confidence != 0.90 {
		t.Errorf("medication confidence = %v, want 0.90", m.Confidence)
	}
}

func TestExtract_ConditionSection(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if len(got.Conditions) != 2 {
		t.Fatalf("Conditions = %d, want 2", len(got.Conditions))
	}
	c := got.Conditions[0]
	if c.Name != "Type 2 Diabetes Mellitus" {
		t.Errorf("condition name = %q", c.Name)
	}
	if c.Code != "E11.9" {
		t.Errorf("condition code = %q, want E11.9", c.Code)
	}
	if c.OnsetDate != "2015" {
		t.Errorf("condition onset = %q, want 2015", c.OnsetDate)
	}
	if c.Status != "active" {
		t.Errorf("condition status = %q, want active", c.Status)
	}
	if got.Conditions[1].Status != "resolved" {
		t.Errorf("condition[1] status = %q, want resolved", got.Conditions[1].Status)
	}
}

func TestExtract_LabSection(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if len(got.Labs) != 4 {
		t.Fatalf("Labs = %d, want 4", len(got.Labs))
	}
	cases := []struct {
		name   string
		status constants.LabStatus
	}{
		{"Glucose", constants.LabStatusAbnormal},
		{"HbA1c", constants.LabStatusAbnormal},
		{"Sodium", constants.LabStatusNormal},
		{"TSH", constants.LabStatusUnknown},
	}
	for i, want := range cases {
		if got.Labs[i].TestName != want.name {
			t.Errorf("lab[%d] name = %q, want %q", i, got.Labs[i].TestName, want.name)
		}
		if got.Labs[i].Status != want.status {
			t.Errorf("lab[%d] (%s) status = %s, want %s", i, want.name, got.Labs[i].Status, want.status)
		}
	}
	if got.Labs[0].Value != "210 mg/dL" {
		t.Errorf("glucose value = %q, want 210 mg/dL", got.Labs[0].Value)
	}
}

func TestExtract_AllergySection(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if len(got.Allergies) != 1 {
		t.Fatalf("Allergies = %d, want 1 (NKDA lines are skipped)", len(got.Allergies))
	}
	a := got.Allergies[0]
	if a.Allergen != "Penicillin" || a.Reaction != "hives" {
		t.Errorf("allergy = %+v, want Penicillin/hives", a)
	}
}

func TestExtract_ProcedureSection(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if len(got.Procedures) != 2 {
		t.Fatalf("Procedures = %d, want 2", len(got.Procedures))
	}
	if got.Procedures[0].Name != "Appendectomy" || got.Procedures[0].Date != "1998" {
		t.Errorf("procedure[0] = %+v, want Appendectomy/1998", got.Procedures[0])
	}
	if got.Procedures[1].Name != "Colonoscopy" || got.Procedures[1].Date != "06/14/2021" {
		t.Errorf("procedure[1] = %+v, want Colonoscopy/06/14/2021", got.Procedures[1])
	}
}

func TestExtract_PatientHeader(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if got.Header == nil {
		t.Fatal("Header = nil")
	}
	if got.Header.Name != "Jordan Rivera" {
		t.Errorf("header name = %q", got.Header.Name)
	}
	if got.Header.DateOfBirth != "04/12/1961" {
		t.Errorf("header dob = %q", got.Header.DateOfBirth)
	}
	if got.Header.Identifier != "A-204981" {
		t.Errorf("header mrn = %q", got.Header.Identifier)
	}
}

func TestExtract_Vitals(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(sampleChart)

	if got.Vitals == nil {
		t.Fatal("Vitals = nil")
	}
	if got.Vitals.BloodPressure != "142/88" {
		t.Errorf("bp = %q, want 142/88", got.Vitals.BloodPressure)
	}
	if got.Vitals.HeartRate != "78" {
		t.Errorf("hr = %q, want 78", got.Vitals.HeartRate)
	}
	if got.Vitals.Temperature != "98.6" {
		t.Errorf("temp = %q, want 98.6", got.Vitals.Temperature)
	}
}

func TestExtract_PageLabelsStripped(t *testing.T) {
	e := NewExtractor(nil)
	text := "--- Page 1 ---\nCURRENT MEDICATIONS\n- Aspirin 81mg daily\n--- Page 2 ---\n- Atorvastatin 20mg nightly"
	got := e.Extract(text)

	if len(got.Medications) != 2 {
		t.Fatalf("Medications = %d, want 2 (section must span the page break)", len(got.Medications))
	}
	for _, ln := range got.Unmapped {
		if ln == "--- Page 1 ---" || ln == "--- Page 2 ---" {
			t.Errorf("page label leaked into unmapped: %q", ln)
		}
	}
}

func TestExtract_UnclaimedTextLandsInUnmapped(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract("Clinic visit note, follow-up.\nSigned by Dr. Osei.")

	if len(got.Unmapped) != 2 {
		t.Fatalf("Unmapped = %v, want both preamble lines", got.Unmapped)
	}
	if len(got.Conditions)+len(got.Medications)+len(got.Labs) != 0 {
		t.Error("entities extracted from unclaimed narrative text")
	}
}

func TestExtract_SingleMedicationBetweenMarkers(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract("CURRENT MEDICATIONS\n- Metformin 500mg twice daily\nRECENT LABS")

	if len(got.Medications) != 1 {
		t.Fatalf("Medications = %d, want exactly 1", len(got.Medications))
	}
	m := got.Medications[0]
	if m.Name != "Metformin" || m.Dosage != "500mg" || m.Frequency != "twice daily" {
		t.Errorf("medication = %+v", m)
	}
	if len(got.Labs) != 0 {
		t.Errorf("Labs = %d, want 0 (empty section)", len(got.Labs))
	}
}

func TestExtract_MarkerCaseAndColonTolerance(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract("Current Medications:\n- Aspirin 81mg daily")

	if len(got.Medications) != 1 {
		t.Fatalf("Medications = %d, want 1 (marker match is case-insensitive, colon tolerated)", len(got.Medications))
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract("")

	if got.Header != nil || got.Vitals != nil {
		t.Error("empty input produced header or vitals")
	}
	if len(got.All()) != 0 {
		t.Errorf("All() = %d entities, want 0", len(got.All()))
	}
}
