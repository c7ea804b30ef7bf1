package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

type quizView struct {
	Attempt  *app.Attempt
	Question domain.Question
	Number   int
	Total    int
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	dash, err := app.LoadDashboard(r.Context(), sess, s.svc.Leaderboard, s.svc.Runner, s.opts.DashboardSize)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if s.authFailed(w, r, dash.Top.Err) {
		return
	}
	if dash.HistoryErr != nil {
		s.logger.Warn("load attempt history", "error", dash.HistoryErr)
	}
	s.render(w, http.StatusOK, "dashboard.html", s.newPage(r, "Dashboard", dash))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "select.html", s.newPage(r, "Choose a subject", nil))
}

// handleQuiz starts a new attempt when ?subject= names a different subject (or
// the previous attempt is over) and otherwise shows the attempt in progress.
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := sessionID(r)
	if raw := r.URL.Query().Get("subject"); raw != "" {
		subject, err := domain.ParseSubject(raw)
		if err != nil {
			p := s.newPage(r, "Choose a subject", nil)
			p.Error = domain.UserMessage(err)
			s.render(w, statusFor(err), "select.html", p)
			return
		}
		current, cerr := s.svc.Runner.Current(ctx, id)
		if cerr != nil || current.Subject != subject || current.State != app.AttemptReady {
			s.start(w, r, string(subject))
			return
		}
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
		return
	}

	attempt, err := s.svc.Runner.Current(ctx, id)
	if errors.Is(err, domain.ErrNoAttempt) {
		http.Redirect(w, r, "/select", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	if attempt.State == app.AttemptFinished {
		http.Redirect(w, r, app.PathResults, http.StatusSeeOther)
		return
	}
	s.renderQuiz(w, r, http.StatusOK, attempt, nil)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, subject string) {
	sess, _ := currentSession(r)
	attempt, err := s.svc.Runner.Start(r.Context(), sessionID(r), sess, subject)
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		if attempt == nil {
			p := s.newPage(r, "Choose a subject", nil)
			p.Error = domain.UserMessage(err)
			s.render(w, statusFor(err), "select.html", p)
			return
		}
		// the attempt is in its error state and the page offers a retry
	}
	http.Redirect(w, r, "/quiz", http.StatusSeeOther)
}

func (s *Server) renderQuiz(w http.ResponseWriter, r *http.Request, status int, attempt *app.Attempt, err error) {
	view := quizView{Attempt: attempt, Total: len(attempt.Questions), Number: attempt.Index + 1}
	if q, ok := attempt.Current(); ok {
		view.Question = q
	}
	p := s.newPage(r, string(attempt.Subject)+" quiz", view)
	if err != nil {
		p.Error = domain.UserMessage(err)
	}
	s.render(w, status, "quiz.html", p)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.svc.Runner.Select(r.Context(), sessionID(r), r.PostFormValue("option"))
	s.afterMove(w, r, attempt, err)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.svc.Runner.Previous(r.Context(), sessionID(r))
	s.afterMove(w, r, attempt, err)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentSession(r)
	attempt, err := s.svc.Runner.Next(r.Context(), sessionID(r), sess)
	if err == nil && attempt.State == app.AttemptFinished {
		http.Redirect(w, r, app.PathResults, http.StatusSeeOther)
		return
	}
	s.afterMove(w, r, attempt, err)
}

// handleRestart re-fetches the questions, optionally for a different subject.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	subject := r.PostFormValue("subject")
	if subject == "" {
		current, err := s.svc.Runner.Current(r.Context(), sessionID(r))
		if err != nil {
			http.Redirect(w, r, "/select", http.StatusSeeOther)
			return
		}
		subject = string(current.Subject)
	}
	s.start(w, r, subject)
}

func (s *Server) afterMove(w http.ResponseWriter, r *http.Request, attempt *app.Attempt, err error) {
	switch {
	case err == nil:
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
	case errors.Is(err, domain.ErrNoAttempt) && (attempt == nil || attempt.State != app.AttemptReady):
		http.Redirect(w, r, "/select", http.StatusSeeOther)
	case attempt != nil:
		s.renderQuiz(w, r, statusFor(err), attempt, err)
	default:
		s.internalError(w, err)
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Runner.Result(r.Context(), sessionID(r))
	if err != nil {
		http.Redirect(w, r, "/select", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "results.html", s.newPage(r, "Results", res))
}

func (s *Server) handleResultsPDF(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Runner.Result(r.Context(), sessionID(r))
	if err != nil {
		http.Redirect(w, r, "/select", http.StatusSeeOther)
		return
	}
	sess, _ := currentSession(r)
	doc, err := resultPDF(sess.User, res)
	if err != nil {
		s.internalError(w, fmt.Errorf("results pdf: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.pdf"`, slug(string(res.Subject))))
	_, _ = w.Write(doc)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}
