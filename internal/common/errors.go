package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors with a stable code.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy. Document-level errors abort a job; page-level errors
// degrade a single page and are recorded on the job instead.
var (
	// ErrDocumentParse marks a corrupt or unreadable document payload.
	ErrDocumentParse = errors.New("document parse error")
	// ErrPageRender marks a single page that could not be rasterized.
	ErrPageRender = errors.New("page render error")
	// ErrRecognition marks a failed OCR pass over one page image.
	ErrRecognition = errors.New("recognition error")

	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("resource not found")
	ErrJobTerminal       = errors.New("job is in a terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsDocumentFailure reports whether err should abort the whole job rather
// than degrade a single page.
func IsDocumentFailure(err error) bool {
	return errors.Is(err, ErrDocumentParse)
}
