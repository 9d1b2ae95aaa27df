package constants

// EntityType tags the clinical entity variants produced by extraction.
type EntityType string

const (
	EntityCondition     EntityType = "condition"
	EntityMedication    EntityType = "medication"
	EntityLabResult     EntityType = "lab_result"
	EntityProcedure     EntityType = "procedure"
	EntityAllergy       EntityType = "allergy"
	EntityVital         EntityType = "vital"
	EntityPatientHeader EntityType = "patient_header"
)

// LabStatus classifies a lab result from its bracketed comment.
type LabStatus string

const (
	LabStatusNormal   LabStatus = "normal"
	LabStatusAbnormal LabStatus = "abnormal"
	LabStatusCritical LabStatus = "critical"
	LabStatusUnknown  LabStatus = "unknown"
)

// Disposition is the reviewer's decision for one extracted entity.
type Disposition string

const (
	DispositionAccept Disposition = "accept"
	DispositionReject Disposition = "reject"
	DispositionModify Disposition = "modify"
)

// SuggestedAction is the advisory suggestion attached to a duplicate
// candidate. It never auto-applies.
type SuggestedAction string

const (
	ActionMerge    SuggestedAction = "merge"
	ActionKeepBoth SuggestedAction = "keep-both"
	ActionSkip     SuggestedAction = "skip"
)
