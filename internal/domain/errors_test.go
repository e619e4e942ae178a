package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelHierarchy(t *testing.T) {
	if !errors.Is(ErrMissingQuestion, ErrValidation) {
		t.Error("ErrMissingQuestion must wrap ErrValidation")
	}
	if !errors.Is(ErrUnsupportedMedia, ErrValidation) {
		t.Error("ErrUnsupportedMedia must wrap ErrValidation")
	}
	if errors.Is(ErrNotFound, ErrValidation) {
		t.Error("ErrNotFound must not be a validation error")
	}
}

func TestCollaboratorError_KeepsMessageVerbatim(t *testing.T) {
	cause := errors.New("psycopg2.OperationalError: connection refused")
	err := fmt.Errorf("ingest: %w", NewCollaboratorError(CollaboratorIngestion, cause))

	if !errors.Is(err, ErrCollaborator) {
		t.Fatal("expected ErrCollaborator")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected underlying cause to be reachable")
	}

	var ce *CollaboratorError
	if !errors.As(err, &ce) {
		t.Fatal("expected *CollaboratorError")
	}
	if ce.Message != cause.Error() {
		t.Errorf("message = %q, want %q", ce.Message, cause.Error())
	}
	if ce.Collaborator != CollaboratorIngestion {
		t.Errorf("collaborator = %q", ce.Collaborator)
	}
}

func TestUnsupportedMediaError(t *testing.T) {
	err := error(&UnsupportedMediaError{FileName: "notes.txt", Accepted: []string{".pdf"}})
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatal("expected ErrUnsupportedMedia")
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected ErrValidation")
	}
}
