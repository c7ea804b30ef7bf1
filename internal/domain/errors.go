package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks local form checks that failed before any request was sent.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned for 401/403 responses; the session must be cleared.
	ErrUnauthorized = errors.New("authentication failed")
	// ErrNotFound indicates the backend has no such resource.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a write lost an optimistic-concurrency race.
	ErrConflict = errors.New("version conflict")
	// ErrNetwork indicates the backend could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrServer covers every other non-2xx response.
	ErrServer = errors.New("server error")

	// ErrInvalidSubject is returned for subjects outside Subjects.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrAnswerRequired blocks advancing past an unanswered question.
	ErrAnswerRequired = errors.New("answer required before advancing")
	// ErrOptionNotFound indicates a selected option is not part of the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNoAttempt is returned when no quiz attempt is in progress.
	ErrNoAttempt = errors.New("no quiz attempt in progress")
	// ErrNoSession is returned when an operation needs a logged-in session.
	ErrNoSession = errors.New("no session")
)

// ValidationError describes a failed local check on one form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UserMessage maps an error to the text shown inline on a page.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrUnauthorized):
		return "Authentication failed. Please log in again."
	case errors.Is(err, ErrNetwork):
		return "Network error: unable to reach the server."
	case errors.Is(err, ErrInvalidSubject):
		return "Invalid subject. Choose Math, English or Current Affairs."
	case errors.Is(err, ErrAnswerRequired):
		return "Select an answer first."
	}
	var msg interface{ UserMessage() string }
	if errors.As(err, &msg) {
		return msg.UserMessage()
	}
	return err.Error()
}
