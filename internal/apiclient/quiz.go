package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"quizmaster-web/internal/domain"
)

// QuizPayload is the body for quiz create and full replace.
type QuizPayload struct {
	Subject   domain.Subject         `json:"subject"`
	Questions []domain.QuestionInput `json:"questions"`
}

// quizList accepts the three list shapes the backend has returned:
// a bare array, {"quizzes": [...]}, or {"message": "No quizzes found"}.
type quizList []domain.Quiz

func (l *quizList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var quizzes []domain.Quiz
		if err := json.Unmarshal(data, &quizzes); err != nil {
			return err
		}
		*l = quizzes
		return nil
	}
	var wrapped struct {
		Quizzes []domain.Quiz `json:"quizzes"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Quizzes
	return nil
}

// ListQuizzes returns every quiz document for the subject.
func (c *Client) ListQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error) {
	var out quizList
	path := "/api/quiz?subject=" + url.QueryEscape(string(subject))
	if err := c.do(ctx, request{op: "list_quizzes", method: http.MethodGet, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateQuiz posts a new quiz document.
func (c *Client) CreateQuiz(ctx context.Context, token string, in QuizPayload) (domain.Quiz, error) {
	var out struct {
		domain.Quiz
		Wrapped *domain.Quiz `json:"quiz"`
	}
	if err := c.do(ctx, request{op: "create_quiz", method: http.MethodPost, path: "/api/quiz", token: token, body: in}, &out); err != nil {
		return domain.Quiz{}, err
	}
	if out.Wrapped != nil {
		return *out.Wrapped, nil
	}
	return out.Quiz, nil
}

// ReplaceQuiz overwrites the whole question list of a quiz. When version is
// non-nil the request is conditional and a stale version yields ErrConflict.
func (c *Client) ReplaceQuiz(ctx context.Context, token, quizID string, version *int, in QuizPayload) error {
	req := request{
		op:     "replace_quiz",
		method: http.MethodPut,
		path:   "/api/quiz/" + url.PathEscape(quizID),
		token:  token,
		body:   in,
	}
	if version != nil {
		req.headers = map[string]string{"If-Match": strconv.Quote(strconv.Itoa(*version))}
	}
	return c.do(ctx, req, nil)
}

// UpdateQuestion applies a partial update to one question.
func (c *Client) UpdateQuestion(ctx context.Context, token, quizID, questionID string, in domain.QuestionUpdate) error {
	return c.do(ctx, request{
		op:     "update_question",
		method: http.MethodPut,
		path:   questionPath(quizID, questionID),
		token:  token,
		body:   in,
	}, nil)
}

// DeleteQuestion removes one question from a quiz.
func (c *Client) DeleteQuestion(ctx context.Context, token, quizID, questionID string) error {
	return c.do(ctx, request{
		op:     "delete_question",
		method: http.MethodDelete,
		path:   questionPath(quizID, questionID),
		token:  token,
	}, nil)
}

func questionPath(quizID, questionID string) string {
	return fmt.Sprintf("/api/quiz/%s/question/%s", url.PathEscape(quizID), url.PathEscape(questionID))
}
