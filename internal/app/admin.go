package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"quizmaster-web/internal/apiclient"
	"quizmaster-web/internal/domain"
)

// QuizBackend is the quiz content API used by the admin screen.
type QuizBackend interface {
	ListQuizzes(ctx context.Context, token string, subject domain.Subject) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, token string, in apiclient.QuizPayload) (domain.Quiz, error)
	ReplaceQuiz(ctx context.Context, token, quizID string, version *int, in apiclient.QuizPayload) error
	UpdateQuestion(ctx context.Context, token, quizID, questionID string, in domain.QuestionUpdate) error
	DeleteQuestion(ctx context.Context, token, quizID, questionID string) error
}

// RetryPolicy bounds the admin add flow: Attempts tries with a fixed Delay between them.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is five attempts three seconds apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Delay: 3 * time.Second}

// NewQuestion is the admin add form.
type NewQuestion struct {
	Subject string
	Text    string
	Options []string
	Correct string
}

// AddOutcome reports what the add flow wrote.
type AddOutcome struct {
	QuizID    string
	Created   bool
	Questions int
}

// AdminService manages quiz content.
type AdminService struct {
	backend QuizBackend
	cache   QuizRepository
	retry   RetryPolicy
	locks   *keyedMutex
	logger  *slog.Logger
}

func NewAdminService(backend QuizBackend, cache QuizRepository, retry RetryPolicy, logger *slog.Logger) *AdminService {
	if retry.Attempts <= 0 {
		retry.Attempts = DefaultRetryPolicy.Attempts
	}
	if retry.Delay < 0 {
		retry.Delay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		backend: backend,
		cache:   cache,
		retry:   retry,
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

// ValidateNewQuestion applies the add form's local checks.
func ValidateNewQuestion(in NewQuestion) (domain.Subject, domain.QuestionInput, error) {
	subject, err := domain.ParseSubject(in.Subject)
	if err != nil {
		return "", domain.QuestionInput{}, domain.Invalid("subject", "Choose Math, English or Current Affairs.")
	}
	text := strings.TrimSpace(in.Text)
	options := make([]string, 0, len(in.Options))
	for _, opt := range in.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	correct := strings.TrimSpace(in.Correct)
	if text == "" || len(in.Options) != 4 || len(options) != 4 || correct == "" {
		return "", domain.QuestionInput{}, domain.Invalid("question", "Question, exactly four options, and a correct answer are required")
	}
	found := false
	for _, opt := range options {
		if opt == correct {
			found = true
			break
		}
	}
	if !found {
		return "", domain.QuestionInput{}, domain.Invalid("correctAnswer", "Correct answer must match one of the provided options")
	}
	return subject, domain.QuestionInput{Question: text, Options: options, CorrectAnswer: correct}, nil
}

// AddQuestion appends a question to the subject's quiz, creating the quiz when
// none exists. Adds for one subject are serialized in-process; across processes
// the replace is conditional on the quiz version and a lost race restarts the
// whole read-append-write cycle.
func (s *AdminService) AddQuestion(ctx context.Context, token string, in NewQuestion) (AddOutcome, error) {
	subject, question, err := ValidateNewQuestion(in)
	if err != nil {
		return AddOutcome{}, err
	}

	unlock := s.locks.Lock(string(subject))
	defer unlock()

	for cycle := 1; cycle <= s.retry.Attempts; cycle++ {
		quiz, err := s.fetchCurrent(ctx, token, subject)
		if err != nil {
			return AddOutcome{}, fmt.Errorf("fetch quiz: %w", err)
		}
		outcome, err := s.write(ctx, token, subject, quiz, question)
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Info("quiz changed concurrently, retrying add", "subject", subject, "cycle", cycle)
			continue
		}
		if err != nil {
			return AddOutcome{}, err
		}
		s.cache.Invalidate(ctx, subject)
		return outcome, nil
	}
	return AddOutcome{}, fmt.Errorf("add question: %w", domain.ErrConflict)
}

// fetchCurrent reads the subject's quiz with bounded retries. A 404 means there
// is no quiz yet and ends the retries with a nil quiz.
func (s *AdminService) fetchCurrent(ctx context.Context, token string, subject domain.Subject) (*domain.Quiz, error) {
	var quiz *domain.Quiz
	op := func() error {
		quizzes, err := s.backend.ListQuizzes(ctx, token, subject)
		switch {
		case err == nil:
			quiz = nil
			if len(quizzes) > 0 {
				quiz = &quizzes[0]
			}
			return nil
		case errors.Is(err, domain.ErrNotFound):
			quiz = nil
			return nil
		case errors.Is(err, domain.ErrUnauthorized):
			return backoff.Permanent(err)
		}
		return err
	}
	if err := s.withRetry(ctx, "fetch quiz", op); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *AdminService) write(ctx context.Context, token string, subject domain.Subject, quiz *domain.Quiz, question domain.QuestionInput) (AddOutcome, error) {
	if quiz == nil {
		payload := apiclient.QuizPayload{Subject: subject, Questions: []domain.QuestionInput{question}}
		var created domain.Quiz
		err := s.withRetry(ctx, "create quiz", func() error {
			var err error
			created, err = s.backend.CreateQuiz(ctx, token, payload)
			return permanentUnlessTransient(err)
		})
		if err != nil {
			return AddOutcome{}, err
		}
		return AddOutcome{QuizID: created.ID, Created: true, Questions: 1}, nil
	}

	questions := make([]domain.QuestionInput, 0, len(quiz.Questions)+1)
	for _, q := range quiz.Questions {
		questions = append(questions, domain.InputFromQuestion(q))
	}
	questions = append(questions, question)
	payload := apiclient.QuizPayload{Subject: subject, Questions: questions}

	err := s.withRetry(ctx, "replace quiz", func() error {
		return permanentUnlessTransient(s.backend.ReplaceQuiz(ctx, token, quiz.ID, quiz.Version, payload))
	})
	if err != nil {
		return AddOutcome{}, err
	}
	return AddOutcome{QuizID: quiz.ID, Questions: len(questions)}, nil
}

func (s *AdminService) withRetry(ctx context.Context, what string, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retry.Delay), uint64(s.retry.Attempts-1)),
		ctx,
	)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		s.logger.Warn("retrying backend call", "call", what, "wait", wait, "error", err)
	})
}

// permanentUnlessTransient stops retries for everything but network and 5xx failures.
func permanentUnlessTransient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNetwork) || errors.Is(err, domain.ErrServer) {
		return err
	}
	return backoff.Permanent(err)
}

// ListQuizzes returns the subject's quizzes; a 404 is an empty list.
func (s *AdminService) ListQuizzes(ctx context.Context, token, rawSubject string) ([]domain.Quiz, error) {
	subject, err := domain.ParseSubject(rawSubject)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.backend.ListQuizzes(ctx, token, subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return quizzes, err
}

// UpdateQuestion submits an inline edit.
func (s *AdminService) UpdateQuestion(ctx context.Context, token string, subject domain.Subject, quizID, questionID string, in domain.QuestionUpdate) error {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	if in.QuestionText == "" {
		return domain.Invalid("questionText", "Question text is required.")
	}
	if quizID == "" || questionID == "" {
		return domain.Invalid("question", "Unknown question.")
	}
	if err := s.backend.UpdateQuestion(ctx, token, quizID, questionID, in); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, subject)
	return nil
}

// DeleteQuestion removes a question once the admin has confirmed.
func (s *AdminService) DeleteQuestion(ctx context.Context, token string, subject domain.Subject, quizID, questionID string, confirmed bool) error {
	if !confirmed {
		return domain.Invalid("confirm", "Confirm the deletion first.")
	}
	if err := s.backend.DeleteQuestion(ctx, token, quizID, questionID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, subject)
	return nil
}
