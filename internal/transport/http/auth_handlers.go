package http

import (
	"errors"
	"net/http"
	"net/url"

	"quizmaster-web/internal/apiclient"
	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

type loginForm struct {
	Email string
}

type signupForm struct {
	Name  string
	Email string
	Role  string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.html", s.newPage(r, "QuizMaster", nil))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if sess, ok := currentSession(r); ok {
		http.Redirect(w, r, app.LandingPath(sess.Role()), http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", s.newPage(r, "Log in", loginForm{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	location, err := s.svc.Auth.Login(r.Context(), sessionID(r), email, r.PostFormValue("password"))
	if err != nil {
		p := s.newPage(r, "Log in", loginForm{Email: email})
		p.Error = backendMessage(err)
		s.render(w, statusFor(err), "login.html", p)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "signup.html", s.newPage(r, "Sign up", signupForm{Role: domain.RoleUser}))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	in := apiclient.SignupRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}
	res, err := s.svc.Auth.Signup(r.Context(), sessionID(r), in)
	if err != nil {
		p := s.newPage(r, "Sign up", signupForm{Name: in.Name, Email: in.Email, Role: in.Role})
		p.Error = backendMessage(err)
		s.render(w, statusFor(err), "signup.html", p)
		return
	}
	location := res.Location
	if location == app.PathLogin {
		location += "?notice=" + url.QueryEscape(res.Message)
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := s.svc.Runner.Discard(r.Context(), id); err != nil {
		s.logger.Warn("discard attempt on logout", "error", err)
	}
	if err := s.svc.Auth.Logout(r.Context(), id); err != nil {
		s.internalError(w, err)
		return
	}
	http.Redirect(w, r, app.PathLogin, http.StatusSeeOther)
}

// backendMessage prefers the backend's own wording on the auth forms, where a
// 401 means bad credentials rather than an expired session.
func backendMessage(err error) string {
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) && reqErr.Status != 0 {
		return reqErr.Message
	}
	return domain.UserMessage(err)
}
