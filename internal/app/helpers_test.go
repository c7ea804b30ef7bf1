package app_test

import (
	"context"
	"sync"

	"quizmaster-web/internal/domain"
)

func option(text string, correct bool) domain.Option {
	return domain.Option{Text: text, IsCorrect: correct}
}

func question(id, text string, correct string, others ...string) domain.Question {
	opts := []domain.Option{option(correct, true)}
	for _, o := range others {
		opts = append(opts, option(o, false))
	}
	return domain.Question{ID: id, QuestionText: text, Options: opts}
}

func mathQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-math",
		Subject: domain.SubjectMath,
		Questions: []domain.Question{
			question("q1", "1+1?", "2", "3", "4", "5"),
			question("q2", "2+2?", "4", "3", "5", "6"),
			question("q3", "3+3?", "6", "7", "8", "9"),
		},
	}
}

// gatedQuizzes blocks GetQuizzes for a subject until its gate is closed.
type gatedQuizzes struct {
	mu      sync.Mutex
	quizzes map[domain.Subject][]domain.Quiz
	gates   map[domain.Subject]chan struct{}
	entered chan domain.Subject
}

func newGatedQuizzes(quizzes map[domain.Subject][]domain.Quiz) *gatedQuizzes {
	return &gatedQuizzes{
		quizzes: quizzes,
		gates:   make(map[domain.Subject]chan struct{}),
		entered: make(chan domain.Subject, 4),
	}
}

func (g *gatedQuizzes) gate(subject domain.Subject) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[subject] = ch
	return ch
}

func (g *gatedQuizzes) GetQuizzes(ctx context.Context, _ string, subject domain.Subject) ([]domain.Quiz, error) {
	g.mu.Lock()
	gate := g.gates[subject]
	g.mu.Unlock()
	if gate != nil {
		g.entered <- subject
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	quizzes, ok := g.quizzes[subject]
	if !ok {
		return nil, nil
	}
	return quizzes, nil
}

func (g *gatedQuizzes) Invalidate(context.Context, domain.Subject) {}
