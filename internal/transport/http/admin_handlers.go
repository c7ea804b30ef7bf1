package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

type adminView struct {
	Subject domain.Subject
	Quizzes []domain.Quiz
	Form    app.NewQuestion
}

func adminSubject(raw string) domain.Subject {
	if subject, err := domain.ParseSubject(raw); err == nil {
		return subject
	}
	return domain.SubjectMath
}

func adminLocation(subject domain.Subject, notice string) string {
	q := url.Values{}
	q.Set("subject", string(subject))
	if notice != "" {
		q.Set("notice", notice)
	}
	return app.PathAdmin + "?" + q.Encode()
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	subject := adminSubject(r.URL.Query().Get("subject"))
	s.renderAdmin(w, r, http.StatusOK, subject, app.NewQuestion{Subject: string(subject), Options: make([]string, 4)}, nil)
}

func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, status int, subject domain.Subject, form app.NewQuestion, formErr error) {
	sess, _ := currentSession(r)
	quizzes, err := s.svc.Admin.ListQuizzes(r.Context(), sess.Token, string(subject))
	if s.authFailed(w, r, err) || s.authFailed(w, r, formErr) {
		return
	}
	p := s.newPage(r, "Admin", adminView{Subject: subject, Quizzes: quizzes, Form: form})
	switch {
	case formErr != nil:
		p.Error = domain.UserMessage(formErr)
	case err != nil:
		p.Error = domain.UserMessage(err)
		status = statusFor(err)
	}
	s.render(w, status, "admin.html", p)
}

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	in := app.NewQuestion{
		Subject: r.PostForm.Get("subject"),
		Text:    r.PostForm.Get("question"),
		Options: r.PostForm["option"],
		Correct: r.PostForm.Get("correct"),
	}
	sess, _ := currentSession(r)
	out, err := s.svc.Admin.AddQuestion(r.Context(), sess.Token, in)
	if err != nil {
		for len(in.Options) < 4 {
			in.Options = append(in.Options, "")
		}
		s.renderAdmin(w, r, statusFor(err), adminSubject(in.Subject), in, err)
		return
	}
	notice := "Question added."
	if out.Created {
		notice = "Quiz created with its first question."
	}
	http.Redirect(w, r, adminLocation(adminSubject(in.Subject), notice), http.StatusSeeOther)
}

// handleUpdateQuestion reads the inline edit form: option texts in order and
// the index of the correct one.
func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	subject := adminSubject(r.PostForm.Get("subject"))
	blank := app.NewQuestion{Subject: string(subject), Options: make([]string, 4)}
	number, nerr := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("number")))
	if nerr != nil || number < 1 {
		err := domain.Invalid("number", "Question number must be a whole number of at least 1.")
		s.renderAdmin(w, r, statusFor(err), subject, blank, err)
		return
	}
	correct, cerr := strconv.Atoi(r.PostForm.Get("correct"))
	update := domain.QuestionUpdate{Number: number, QuestionText: r.PostForm.Get("questionText")}
	for i, text := range r.PostForm["option"] {
		update.Options = append(update.Options, domain.Option{Text: text, IsCorrect: cerr == nil && i == correct})
	}

	sess, _ := currentSession(r)
	err := s.svc.Admin.UpdateQuestion(r.Context(), sess.Token, subject, chi.URLParam(r, "quizID"), chi.URLParam(r, "questionID"), update)
	if err != nil {
		s.renderAdmin(w, r, statusFor(err), subject, blank, err)
		return
	}
	http.Redirect(w, r, adminLocation(subject, "Question updated."), http.StatusSeeOther)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	subject := adminSubject(r.PostFormValue("subject"))
	confirmed := r.PostFormValue("confirm") == "yes"
	sess, _ := currentSession(r)
	err := s.svc.Admin.DeleteQuestion(r.Context(), sess.Token, subject, chi.URLParam(r, "quizID"), chi.URLParam(r, "questionID"), confirmed)
	if err != nil {
		s.renderAdmin(w, r, statusFor(err), subject, app.NewQuestion{Subject: string(subject), Options: make([]string, 4)}, err)
		return
	}
	http.Redirect(w, r, adminLocation(subject, "Question deleted."), http.StatusSeeOther)
}
