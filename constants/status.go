package constants

// JobStatus is the canonical lifecycle status for an import job.
type JobStatus string

// Stable values (these exact strings are stored in the staging table).
const (
	JobStatusPending    JobStatus = "PENDING"    // submitted, not yet started
	JobStatusProcessing JobStatus = "PROCESSING" // pages being read / OCR'd
	JobStatusExtracting JobStatus = "EXTRACTING" // entity extraction over aggregated text
	JobStatusReview     JobStatus = "REVIEW"     // review package assembled, awaiting decisions
	JobStatusCompleted  JobStatus = "COMPLETED"  // terminal success
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure
	JobStatusCancelled  JobStatus = "CANCELLED"  // terminal, caller-initiated
)

// forwardOrder is the only permitted forward path. FAILED and CANCELLED sit
// outside the path and are reachable from any non-terminal state.
var forwardOrder = map[JobStatus]JobStatus{
	JobStatusPending:    JobStatusProcessing,
	JobStatusProcessing: JobStatusExtracting,
	JobStatusExtracting: JobStatusReview,
	JobStatusReview:     JobStatusCompleted,
}

// Terminal reports whether a job in this status accepts no further mutation.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanTransition reports whether from -> to is a legal move: one step forward
// along the fixed sequence, or into FAILED/CANCELLED from any non-terminal
// state. No transition ever leaves a terminal state.
func CanTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == JobStatusFailed || to == JobStatusCancelled {
		return true
	}
	return forwardOrder[from] == to
}
