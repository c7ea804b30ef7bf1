package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	"quizmaster-web/internal/domain"
)

// RequestError is returned for every failed backend call.
// It unwraps to the domain error class matching the status code.
type RequestError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
}

// UserMessage is the text shown verbatim for server errors.
func (e *RequestError) UserMessage() string { return e.Message }

func (e *RequestError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return classify(e.Status)
}

func classify(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return domain.ErrConflict
	}
	return domain.ErrServer
}

// newStatusError pulls the message field from a JSON error body, falling back to the status code.
func newStatusError(op string, status int, body []byte) *RequestError {
	msg := fmt.Sprintf("HTTP %d", status)
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	return &RequestError{Op: op, Status: status, Message: msg}
}
