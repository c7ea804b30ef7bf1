package memory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizmaster-web/internal/domain"
)

// QuizLoader fetches a subject's quizzes from the backend.
type QuizLoader interface {
	ListQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error)
}

// QuizRepository caches quizzes per subject with TTL to avoid repeated backend hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[domain.Subject]cachedQuizzes
}

type cachedQuizzes struct {
	quizzes   []domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.Subject]cachedQuizzes),
	}
}

// GetQuizzes serves from cache when fresh. Concurrent misses for one subject
// share a single backend call. A 404 is cached as "no quizzes".
func (r *QuizRepository) GetQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error) {
	if quizzes, ok := r.lookup(subject); ok {
		return quizzes, nil
	}

	result, err, _ := r.sf.Do(string(subject), func() (interface{}, error) {
		if quizzes, ok := r.lookup(subject); ok {
			return quizzes, nil
		}

		quizzes, err := r.loader.ListQuizzes(ctx, token, subject)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[subject] = cachedQuizzes{
				quizzes:   quizzes,
				expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
			}
			r.mu.Unlock()
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// Invalidate drops the cached quizzes of a subject.
func (r *QuizRepository) Invalidate(_ context.Context, subject domain.Subject) {
	r.mu.Lock()
	delete(r.cache, subject)
	r.mu.Unlock()
	r.sf.Forget(string(subject))
}

func (r *QuizRepository) lookup(subject domain.Subject) ([]domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[subject]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.quizzes, true
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[domain.Subject][]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[domain.Subject][]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) ListQuizzes(_ context.Context, _ string, subject domain.Subject) ([]domain.Quiz, error) {
	if quizzes, ok := l.quizzes[subject]; ok {
		return quizzes, nil
	}
	return nil, domain.ErrNotFound
}
