package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
	"quizmaster-web/internal/infra/memory"
)

var testSession = domain.Session{Token: "t1", User: domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleUser}}

func newRunner(quizzes app.QuizRepository, journal app.AttemptJournal) *app.RunnerService {
	return app.NewRunnerService(memory.NewAttemptStore(), quizzes, journal, nil)
}

func staticQuizzes() app.QuizRepository {
	loader := memory.NewStaticQuizLoader(map[domain.Subject][]domain.Quiz{
		domain.SubjectMath: {mathQuiz()},
	})
	return memory.NewQuizRepository(loader, time.Minute)
}

func TestRunnerScoresFinishedAttempt(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal(10)
	runner := newRunner(staticQuizzes(), journal)

	attempt, err := runner.Start(ctx, "s1", testSession, "Math")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if attempt.State != app.AttemptReady || len(attempt.Questions) != 3 {
		t.Fatalf("expected 3 ready questions, got %s/%d", attempt.State, len(attempt.Questions))
	}

	for _, choice := range []string{"2", "4", "7"} {
		if _, err := runner.Select(ctx, "s1", choice); err != nil {
			t.Fatalf("select %q failed: %v", choice, err)
		}
		if _, err := runner.Next(ctx, "s1", testSession); err != nil {
			t.Fatalf("next failed: %v", err)
		}
	}

	res, err := runner.Result(ctx, "s1")
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if res.Score != 2 || res.Total != 3 || res.Percentage() != 67 {
		t.Fatalf("expected 2/3 (67%%), got %+v (%d%%)", res, res.Percentage())
	}

	history, err := runner.History(ctx, testSession.User.Email, 5)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 || history[0].Score != 2 || history[0].ID == "" {
		t.Fatalf("expected journaled attempt, got %+v", history)
	}
}

func TestRunnerRequiresAnswerBeforeNext(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(staticQuizzes(), nil)
	if _, err := runner.Start(ctx, "s1", testSession, "Mathematics"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := runner.Next(ctx, "s1", testSession); !errors.Is(err, domain.ErrAnswerRequired) {
		t.Fatalf("expected answer required, got %v", err)
	}
	if _, err := runner.Select(ctx, "s1", "not an option"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}
}

func TestRunnerPreviousKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(staticQuizzes(), nil)
	if _, err := runner.Start(ctx, "s1", testSession, "Math"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	attempt, _ := runner.Previous(ctx, "s1")
	if attempt.Index != 0 {
		t.Fatalf("previous on first question moved to %d", attempt.Index)
	}

	_, _ = runner.Select(ctx, "s1", "3")
	_, _ = runner.Next(ctx, "s1", testSession)
	attempt, _ = runner.Previous(ctx, "s1")
	if attempt.Index != 0 || attempt.Selected() != "3" {
		t.Fatalf("expected to return to answered first question, got index %d answer %q", attempt.Index, attempt.Selected())
	}
	attempt, _ = runner.Select(ctx, "s1", "2")
	if attempt.Selected() != "2" {
		t.Fatalf("expected overwritten answer, got %q", attempt.Selected())
	}
}

func TestRunnerEmptySubject(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(staticQuizzes(), nil)
	attempt, err := runner.Start(ctx, "s1", testSession, "English")
	if err != nil {
		t.Fatalf("expected missing quizzes to be empty, got %v", err)
	}
	if attempt.State != app.AttemptEmpty {
		t.Fatalf("expected empty state, got %s", attempt.State)
	}
}

func TestRunnerRejectsUnknownSubject(t *testing.T) {
	runner := newRunner(staticQuizzes(), nil)
	if _, err := runner.Start(context.Background(), "s1", testSession, "History"); !errors.Is(err, domain.ErrInvalidSubject) {
		t.Fatalf("expected invalid subject, got %v", err)
	}
}

func TestRunnerDiscardsStaleLoad(t *testing.T) {
	ctx := context.Background()
	english := domain.Quiz{ID: "quiz-en", Subject: domain.SubjectEnglish, Questions: []domain.Question{
		question("e1", "Plural of mouse?", "mice", "mouses", "meese", "mousen"),
	}}
	quizzes := newGatedQuizzes(map[domain.Subject][]domain.Quiz{
		domain.SubjectMath:    {mathQuiz()},
		domain.SubjectEnglish: {english},
	})
	gate := quizzes.gate(domain.SubjectMath)
	runner := newRunner(quizzes, nil)

	type result struct {
		attempt *app.Attempt
		err     error
	}
	slow := make(chan result, 1)
	go func() {
		a, err := runner.Start(ctx, "s1", testSession, "Math")
		slow <- result{a, err}
	}()
	<-quizzes.entered

	fast, err := runner.Start(ctx, "s1", testSession, "English")
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if fast.Subject != domain.SubjectEnglish || fast.State != app.AttemptReady {
		t.Fatalf("unexpected second attempt %+v", fast)
	}

	close(gate)
	got := <-slow
	if got.err != nil {
		t.Fatalf("stale start returned error: %v", got.err)
	}
	if got.attempt.Subject != domain.SubjectEnglish {
		t.Fatalf("stale load overwrote attempt with %s", got.attempt.Subject)
	}

	current, err := runner.Current(ctx, "s1")
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if current.Subject != domain.SubjectEnglish || len(current.Questions) != 1 {
		t.Fatalf("expected English attempt to survive, got %s with %d questions", current.Subject, len(current.Questions))
	}
}

func TestRunnerResultRequiresFinishedAttempt(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(staticQuizzes(), nil)
	if _, err := runner.Result(ctx, "nobody"); !errors.Is(err, domain.ErrNoAttempt) {
		t.Fatalf("expected no attempt, got %v", err)
	}
	_, _ = runner.Start(ctx, "s1", testSession, "Math")
	if _, err := runner.Result(ctx, "s1"); !errors.Is(err, domain.ErrNoAttempt) {
		t.Fatalf("expected unfinished attempt to have no result, got %v", err)
	}
	if err := runner.Discard(ctx, "s1"); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if _, err := runner.Current(ctx, "s1"); !errors.Is(err, domain.ErrNoAttempt) {
		t.Fatalf("expected discarded attempt, got %v", err)
	}
}

func TestScoreIgnoresQuestionsWithoutCorrectOption(t *testing.T) {
	questions := []domain.Question{
		{Options: []domain.Option{option("a", false), option("b", false)}},
		question("q2", "x", "yes", "no"),
	}
	if got := app.Score(questions, map[int]string{0: "a", 1: "yes"}); got != 1 {
		t.Fatalf("expected score 1, got %d", got)
	}
}
