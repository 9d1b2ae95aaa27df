package entity

import "github.com/oezeakachi/chartintake/constants"

// EntityConfidence is a rule-match certainty on the 0..1 scale.
type EntityConfidence float64

// Entity is the tagged-variant view over the concrete clinical types. Every
// entity carries the verbatim source span it was derived from; no entity may
// exist without traceable source text.
type Entity interface {
	Kind() constants.EntityType
	// Label is the name used for display and duplicate comparison.
	Label() string
	Score() EntityConfidence
	// Span returns the verbatim source text the entity was derived from.
	Span() string
	// Fields returns the domain fields as display key/value pairs.
	Fields() map[string]string
}

type Condition struct {
	Name       string           `json:"name"`
	Code       string           `json:"code,omitempty"`
	OnsetDate  string           `json:"onset_date,omitempty"`
	Status     string           `json:"status"` // "active" unless stated otherwise
	Confidence EntityConfidence `json:"confidence"`
	Source     string           `json:"source"`
}

func (c Condition) Kind() constants.EntityType { return constants.EntityCondition }
func (c Condition) Label() string              { return c.Name }
func (c Condition) Score() EntityConfidence    { return c.Confidence }
func (c Condition) Span() string               { return c.Source }
func (c Condition) Fields() map[string]string {
	return map[string]string{"name": c.Name, "code": c.Code, "onset_date": c.OnsetDate, "status": c.Status}
}

type Medication struct {
	Name       string           `json:"name"`
	Dosage     string           `json:"dosage"` // numeric amount plus unit, e.g. "500mg"
	Frequency  string           `json:"frequency,omitempty"`
	Confidence EntityConfidence `json:"confidence"`
	Source     string           `json:"source"`
}

func (m Medication) Kind() constants.EntityType { return constants.EntityMedication }
func (m Medication) Label() string              { return m.Name }
func (m Medication) Score() EntityConfidence    { return m.Confidence }
func (m Medication) Span() string               { return m.Source }
func (m Medication) Fields() map[string]string {
	return map[string]string{"name": m.Name, "dosage": m.Dosage, "frequency": m.Frequency}
}

type LabResult struct {
	TestName   string              `json:"test_name"`
	Value      string              `json:"value"`
	Status     constants.LabStatus `json:"status"`
	Confidence EntityConfidence    `json:"confidence"`
	Source     string              `json:"source"`
}

func (l LabResult) Kind() constants.EntityType { return constants.EntityLabResult }
func (l LabResult) Label() string              { return l.TestName }
func (l LabResult) Score() EntityConfidence    { return l.Confidence }
func (l LabResult) Span() string               { return l.Source }
func (l LabResult) Fields() map[string]string {
	return map[string]string{"test_name": l.TestName, "value": l.Value, "status": string(l.Status)}
}

type Procedure struct {
	Name       string           `json:"name"`
	Date       string           `json:"date,omitempty"`
	Confidence EntityConfidence `json:"confidence"`
	Source     string           `json:"source"`
}

func (p Procedure) Kind() constants.EntityType { return constants.EntityProcedure }
func (p Procedure) Label() string              { return p.Name }
func (p Procedure) Score() EntityConfidence    { return p.Confidence }
func (p Procedure) Span() string               { return p.Source }
func (p Procedure) Fields() map[string]string {
	return map[string]string{"name": p.Name, "date": p.Date}
}

type Allergy struct {
	Allergen   string           `json:"allergen"`
	Reaction   string           `json:"reaction,omitempty"`
	Confidence EntityConfidence `json:"confidence"`
	Source     string           `json:"source"`
}

func (a Allergy) Kind() constants.EntityType { return constants.EntityAllergy }
func (a Allergy) Label() string              { return a.Allergen }
func (a Allergy) Score() EntityConfidence    { return a.Confidence }
func (a Allergy) Span() string               { return a.Source }
func (a Allergy) Fields() map[string]string {
	return map[string]string{"allergen": a.Allergen, "reaction": a.Reaction}
}

// Vital is a single aggregate record per document, collected from patterns
// found anywhere in the text rather than per encounter.
type Vital struct {
	BloodPressure string           `json:"blood_pressure,omitempty"`
	HeartRate     string           `json:"heart_rate,omitempty"`
	Temperature   string           `json:"temperature,omitempty"`
	Confidence    EntityConfidence `json:"confidence"`
	Source        string           `json:"source"`
}

func (v Vital) Kind() constants.EntityType { return constants.EntityVital }
func (v Vital) Label() string              { return "Vitals" }
func (v Vital) Score() EntityConfidence    { return v.Confidence }
func (v Vital) Span() string               { return v.Source }
func (v Vital) Fields() map[string]string {
	return map[string]string{"blood_pressure": v.BloodPressure, "heart_rate": v.HeartRate, "temperature": v.Temperature}
}

type PatientHeader struct {
	Name        string           `json:"name,omitempty"`
	DateOfBirth string           `json:"date_of_birth,omitempty"`
	Identifier  string           `json:"identifier,omitempty"`
	Confidence  EntityConfidence `json:"confidence"`
	Source      string           `json:"source"`
}

func (h PatientHeader) Kind() constants.EntityType { return constants.EntityPatientHeader }
func (h PatientHeader) Label() string              { return h.Name }
func (h PatientHeader) Score() EntityConfidence    { return h.Confidence }
func (h PatientHeader) Span() string               { return h.Source }
func (h PatientHeader) Fields() map[string]string {
	return map[string]string{"name": h.Name, "date_of_birth": h.DateOfBirth, "identifier": h.Identifier}
}

// ExtractedMedicalData is the typed entity set for one document. Text not
// captured by any recognized section lands in Unmapped so every input line
// stays accounted for.
type ExtractedMedicalData struct {
	Header      *PatientHeader `json:"header,omitempty"`
	Conditions  []Condition    `json:"conditions,omitempty"`
	Medications []Medication   `json:"medications,omitempty"`
	Labs        []LabResult    `json:"labs,omitempty"`
	Procedures  []Procedure    `json:"procedures,omitempty"`
	Allergies   []Allergy      `json:"allergies,omitempty"`
	Vitals      *Vital         `json:"vitals,omitempty"`
	Unmapped    []string       `json:"unmapped,omitempty"`
}

// All flattens the typed sets into the tagged-variant view, in a stable
// order.
func (d *ExtractedMedicalData) All() []Entity {
	var out []Entity
	if d == nil {
		return out
	}
	if d.Header != nil {
		out = append(out, *d.Header)
	}
	for _, c := range d.Conditions {
		out = append(out, c)
	}
	for _, m := range d.Medications {
		out = append(out, m)
	}
	for _, l := range d.Labs {
		out = append(out, l)
	}
	for _, p := range d.Procedures {
		out = append(out, p)
	}
	for _, a := range d.Allergies {
		out = append(out, a)
	}
	if d.Vitals != nil {
		out = append(out, *d.Vitals)
	}
	return out
}
