package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing project or target.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateProject reports an existing project for the chat.
	ErrDuplicateProject = errors.New("project already exists for chat")
)

// ValidationError is a user-correctable input failure. The session stays on
// the same step so the owner can retry.
type ValidationError struct {
	Field  string
	Reason string
	Msg    string
}

// NewValidationError builds a ValidationError for field with a machine-readable reason.
func NewValidationError(field, reason, msg string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Msg: msg}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Code exposes the reason for log err_code derivation.
func (e *ValidationError) Code() string {
	return "validation_" + e.Reason
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Collaborator names the external system a call failed against.
type Collaborator string

const (
	// CollaboratorTransport is the messaging transport.
	CollaboratorTransport Collaborator = "transport"
	// CollaboratorPersistence is the record store.
	CollaboratorPersistence Collaborator = "persistence"
	// CollaboratorGeneration is the text generation service.
	CollaboratorGeneration Collaborator = "generation"
)

// CollaboratorError wraps a failure returned by an external collaborator.
type CollaboratorError struct {
	Kind Collaborator
	Op   string
	Err  error
}

// Wrap returns a CollaboratorError for op, or nil when err is nil.
func Wrap(kind Collaborator, op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Kind: kind, Op: op, Err: err}
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Code exposes the collaborator kind for log err_code derivation.
func (e *CollaboratorError) Code() string {
	return string(e.Kind) + "_error"
}

// IsCollaborator reports whether err came from the given collaborator kind.
func IsCollaborator(err error, kind Collaborator) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
