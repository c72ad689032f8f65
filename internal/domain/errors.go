package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no session exists for an id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionSetNotFound indicates a stored question set could not be located.
	ErrQuestionSetNotFound = errors.New("question set not found")

	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrGeneration matches any *GenerationError via errors.Is.
	ErrGeneration = errors.New("question generation failed")
	// ErrInvalidState matches any *StateError via errors.Is.
	ErrInvalidState = errors.New("operation invalid for session state")
)

// ValidationError reports a malformed or incomplete question set or config.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// GenerationError reports a failed or unusable AI generation round trip.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generate questions: " + e.Reason
	}
	return "generate questions: " + e.Reason + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// StateError reports an explicit command issued in a state that does not allow it.
type StateError struct {
	Op    string
	State SessionState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: session is %s", e.Op, e.State)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
