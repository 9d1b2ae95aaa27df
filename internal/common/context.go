package common

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const contextKeyJobID contextKey = "job_id"

// WithJobID adds a job ID to the context for downstream logging.
func WithJobID(ctx context.Context, jobID uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKeyJobID, jobID)
}

// JobIDFromContext extracts the job ID from context, if any.
func JobIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	jobID, ok := ctx.Value(contextKeyJobID).(uuid.UUID)
	return jobID, ok
}
