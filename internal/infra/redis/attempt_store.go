package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizmaster-web/internal/app"
)

// AttemptStore keeps quiz attempts as JSON strings. The TTL is refreshed on
// every write, so an abandoned attempt eventually disappears.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Get(ctx context.Context, sessionID string) (*app.Attempt, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var attempt app.Attempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, false, fmt.Errorf("decode attempt: %w", err)
	}
	if attempt.Answers == nil {
		attempt.Answers = make(map[int]string)
	}
	return &attempt, true, nil
}

func (s *AttemptStore) Put(ctx context.Context, sessionID string, attempt *app.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err()
}

func (s *AttemptStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *AttemptStore) key(sessionID string) string {
	return "quizmaster:attempt:" + sessionID
}
