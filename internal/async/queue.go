package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one queued intake run. The payload was already registered with the
// job manager at submission time.
type Job struct {
	JobID       uuid.UUID
	SourceName  string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
