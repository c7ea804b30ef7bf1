package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quizmaster-web/internal/domain"
)

// AttemptRepository abstracts where in-progress attempts are kept, keyed by browser session.
type AttemptRepository interface {
	Get(ctx context.Context, sessionID string) (*Attempt, bool, error)
	Put(ctx context.Context, sessionID string, attempt *Attempt) error
	Delete(ctx context.Context, sessionID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error)
	Invalidate(ctx context.Context, subject domain.Subject)
}

// AttemptJournal keeps finished attempts for the dashboard history.
type AttemptJournal interface {
	Record(ctx context.Context, rec domain.AttemptRecord) error
	Recent(ctx context.Context, email string, limit int) ([]domain.AttemptRecord, error)
}

// RunnerService drives quiz attempts.
type RunnerService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	journal  AttemptJournal
	locks    *keyedMutex
	now      func() time.Time
	logger   *slog.Logger
}

func NewRunnerService(attempts AttemptRepository, quizzes QuizRepository, journal AttemptJournal, logger *slog.Logger) *RunnerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunnerService{
		attempts: attempts,
		quizzes:  quizzes,
		journal:  journal,
		locks:    newKeyedMutex(),
		now:      time.Now,
		logger:   logger,
	}
}

// Start resets the attempt to a new subject and loads its questions. If another
// Start for the same session lands while this one is fetching, this result is
// dropped and the newer attempt is returned untouched.
func (s *RunnerService) Start(ctx context.Context, sessionID string, sess domain.Session, rawSubject string) (*Attempt, error) {
	subject, err := domain.ParseSubject(rawSubject)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sessionID)
	attempt, err := s.load(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	gen := attempt.reset(subject)
	err = s.attempts.Put(ctx, sessionID, attempt)
	unlock()
	if err != nil {
		return nil, err
	}

	quizzes, fetchErr := s.quizzes.GetQuizzes(ctx, sess.Token, subject)

	unlock = s.locks.Lock(sessionID)
	defer unlock()
	current, ok, err := s.attempts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok || current.Generation != gen {
		s.logger.Debug("discarding stale question load", "subject", subject, "generation", gen)
		if !ok {
			return nil, domain.ErrNoAttempt
		}
		return current, nil
	}
	if fetchErr != nil {
		current.fail(fetchErr)
		if err := s.attempts.Put(ctx, sessionID, current); err != nil {
			return nil, err
		}
		return current, fetchErr
	}
	current.load(flatten(quizzes))
	if err := s.attempts.Put(ctx, sessionID, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Current returns the attempt in progress.
func (s *RunnerService) Current(ctx context.Context, sessionID string) (*Attempt, error) {
	attempt, ok, err := s.attempts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoAttempt
	}
	return attempt, nil
}

// Select records the answer for the current question.
func (s *RunnerService) Select(ctx context.Context, sessionID, option string) (*Attempt, error) {
	return s.mutate(ctx, sessionID, func(a *Attempt) error { return a.Select(option) })
}

// Previous moves back one question.
func (s *RunnerService) Previous(ctx context.Context, sessionID string) (*Attempt, error) {
	return s.mutate(ctx, sessionID, func(a *Attempt) error {
		a.Previous()
		return nil
	})
}

// Next advances, or finishes and scores the attempt on the last question.
func (s *RunnerService) Next(ctx context.Context, sessionID string, sess domain.Session) (*Attempt, error) {
	finished := false
	attempt, err := s.mutate(ctx, sessionID, func(a *Attempt) error {
		var err error
		finished, err = a.Next()
		return err
	})
	if err != nil {
		return attempt, err
	}
	if finished {
		s.record(ctx, sess, *attempt.Result)
	}
	return attempt, nil
}

// Result returns the outcome of the finished attempt.
func (s *RunnerService) Result(ctx context.Context, sessionID string) (domain.Result, error) {
	attempt, err := s.Current(ctx, sessionID)
	if err != nil {
		return domain.Result{}, err
	}
	if attempt.State != AttemptFinished || attempt.Result == nil {
		return domain.Result{}, domain.ErrNoAttempt
	}
	return *attempt.Result, nil
}

// Discard drops the attempt, e.g. on logout.
func (s *RunnerService) Discard(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.attempts.Delete(ctx, sessionID)
}

// History returns the user's most recent finished attempts from the journal.
func (s *RunnerService) History(ctx context.Context, email string, limit int) ([]domain.AttemptRecord, error) {
	if s.journal == nil || email == "" {
		return nil, nil
	}
	return s.journal.Recent(ctx, email, limit)
}

func (s *RunnerService) mutate(ctx context.Context, sessionID string, fn func(*Attempt) error) (*Attempt, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	attempt, ok, err := s.attempts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoAttempt
	}
	if err := fn(attempt); err != nil {
		return attempt, err
	}
	if err := s.attempts.Put(ctx, sessionID, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *RunnerService) load(ctx context.Context, sessionID string) (*Attempt, error) {
	attempt, ok, err := s.attempts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Attempt{Answers: make(map[int]string)}, nil
	}
	return attempt, nil
}

// record journals a finished attempt; failures are logged, never shown.
func (s *RunnerService) record(ctx context.Context, sess domain.Session, res domain.Result) {
	if s.journal == nil {
		return
	}
	rec := domain.AttemptRecord{
		ID:         uuid.NewString(),
		UserEmail:  sess.User.Email,
		Subject:    res.Subject,
		Score:      res.Score,
		Total:      res.Total,
		FinishedAt: s.now().UTC(),
	}
	if err := s.journal.Record(ctx, rec); err != nil {
		s.logger.Warn("record attempt failed", "subject", res.Subject, "error", err)
	}
}

func flatten(quizzes []domain.Quiz) []domain.Question {
	var questions []domain.Question
	for _, quiz := range quizzes {
		questions = append(questions, quiz.Questions...)
	}
	return questions
}
