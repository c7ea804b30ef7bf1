package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizmaster-web/internal/domain"
)

// QuizLoader fetches a subject's quizzes from the backend.
type QuizLoader interface {
	ListQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error)
}

// QuizRepository caches each subject's quizzes in Redis and falls back to the
// loader on a miss. Stored as: SET quizmaster:quizzes:{subject} <json> EX ttl
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	logger *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: slog.Default(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error) {
	if quizzes, ok := r.lookup(ctx, subject); ok {
		return quizzes, nil
	}

	result, err, _ := r.sf.Do(string(subject), func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if quizzes, ok := r.lookup(ctx, subject); ok {
			return quizzes, nil
		}

		quizzes, err := r.loader.ListQuizzes(ctx, token, subject)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if quizzes == nil {
			quizzes = []domain.Quiz{}
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			data, err := json.Marshal(quizzes)
			if err == nil {
				err = r.client.Set(ctx, r.key(subject), data, ttl).Err()
			}
			if err != nil {
				r.logger.Warn("quiz cache write failed", "subject", subject, "error", err)
			}
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// Invalidate drops the cached quizzes of a subject.
func (r *QuizRepository) Invalidate(ctx context.Context, subject domain.Subject) {
	if err := r.client.Del(ctx, r.key(subject)).Err(); err != nil {
		r.logger.Warn("quiz cache invalidate failed", "subject", subject, "error", err)
	}
	r.sf.Forget(string(subject))
}

func (r *QuizRepository) lookup(ctx context.Context, subject domain.Subject) ([]domain.Quiz, bool) {
	data, err := r.client.Get(ctx, r.key(subject)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("quiz cache read failed", "subject", subject, "error", err)
		}
		return nil, false
	}
	var quizzes []domain.Quiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		return nil, false
	}
	return quizzes, true
}

func (r *QuizRepository) key(subject domain.Subject) string {
	return "quizmaster:quizzes:" + string(subject)
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
