package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed or incomplete client input.
	ErrValidation = errors.New("validation failed")
	// ErrMissingQuestion signals a query payload without a question.
	ErrMissingQuestion = fmt.Errorf("%w: missing question", ErrValidation)
	// ErrUnsupportedMedia signals an upload with an unrecognized document extension.
	ErrUnsupportedMedia = fmt.Errorf("%w: unsupported media type", ErrValidation)
	// ErrNotFound signals a reference to a nonexistent stored record.
	ErrNotFound = errors.New("not found")
	// ErrCollaborator signals a failure raised inside the ingestion or retrieval collaborator.
	ErrCollaborator = errors.New("collaborator failure")
)

// Collaborator names used in CollaboratorError.
const (
	CollaboratorIngestion = "ingestion"
	CollaboratorRetrieval = "retrieval"
)

// CollaboratorError wraps ErrCollaborator with the collaborator's own message.
type CollaboratorError struct {
	Collaborator string
	Message      string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Collaborator, ErrCollaborator.Error(), e.Message)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *CollaboratorError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCollaborator}
	}
	return []error{ErrCollaborator, e.Err}
}

// NewCollaboratorError wraps err as a failure of the named collaborator, keeping its text verbatim.
func NewCollaboratorError(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Message: err.Error(), Err: err}
}

// UnsupportedMediaError wraps ErrUnsupportedMedia with the accepted extensions.
type UnsupportedMediaError struct {
	FileName string
	Accepted []string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedMedia.Error(), e.FileName)
}

func (e *UnsupportedMediaError) Unwrap() error { return ErrUnsupportedMedia }
