package memory

import (
	"context"
	"sync"

	"quizmaster-web/internal/app"
)

// AttemptStore keeps quiz attempts in-process. Values are deep-copied on the
// way in and out so callers never share state.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]app.Attempt)}
}

func (s *AttemptStore) Get(_ context.Context, sessionID string) (*app.Attempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[sessionID]
	if !ok {
		return nil, false, nil
	}
	cp := clone(a)
	return &cp, true, nil
}

func (s *AttemptStore) Put(_ context.Context, sessionID string, attempt *app.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[sessionID] = clone(*attempt)
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, sessionID)
	return nil
}

func clone(a app.Attempt) app.Attempt {
	answers := make(map[int]string, len(a.Answers))
	for k, v := range a.Answers {
		answers[k] = v
	}
	a.Answers = answers
	a.Questions = append(a.Questions[:0:0], a.Questions...)
	if a.Result != nil {
		res := *a.Result
		a.Result = &res
	}
	return a
}
