package http

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

// Services are the use cases the front end drives.
type Services struct {
	Sessions    *app.SessionController
	Auth        *app.AuthService
	Runner      *app.RunnerService
	Admin       *app.AdminService
	Leaderboard *app.LeaderboardService
	Profiles    *app.ProfileService
}

// Options tune the HTTP surface.
type Options struct {
	// Fallback is where a role mismatch redirects; app.DefaultFallback when empty.
	Fallback     string
	CookieSecure bool
	// CSRFKey must be 32 bytes; a random key is generated when empty.
	CSRFKey           []byte
	AuthRedirectDelay time.Duration
	DashboardSize     int
	Logger            *slog.Logger
}

type Server struct {
	svc      Services
	opts     Options
	pages    *renderer
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(svc Services, opts Options) (*Server, error) {
	if opts.Fallback == "" {
		opts.Fallback = app.DefaultFallback
	}
	if opts.AuthRedirectDelay <= 0 {
		opts.AuthRedirectDelay = 1500 * time.Millisecond
	}
	if opts.DashboardSize <= 0 {
		opts.DashboardSize = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.CSRFKey) == 0 {
		opts.CSRFKey = make([]byte, 32)
		if _, err := rand.Read(opts.CSRFKey); err != nil {
			return nil, err
		}
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		svc:    svc,
		opts:   opts,
		pages:  pages,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Router wires every page. Pages under the session group require a login,
// pages under the admin group require the admin role.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.limitBody(maxFormBytes))
		r.Use(csrf.Protect(
			s.opts.CSRFKey,
			csrf.Secure(s.opts.CookieSecure),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
		))
		r.Use(s.loadSession)

		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/signup", s.handleSignupForm)
		r.Post("/signup", s.handleSignup)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.require(""))
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/select", s.handleSelect)
			r.Get("/quiz", s.handleQuiz)
			r.Post("/quiz/answer", s.handleAnswer)
			r.Post("/quiz/next", s.handleNext)
			r.Post("/quiz/previous", s.handlePrevious)
			r.Post("/quiz/restart", s.handleRestart)
			r.Get("/results", s.handleResults)
			r.Get("/results.pdf", s.handleResultsPDF)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/leaderboard/ws", s.handleLeaderboardWS)
			r.Get("/profile", s.handleProfile)
			r.Post("/profile", s.handleProfileUpdate)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.require(domain.RoleAdmin))
			r.Get("/admin", s.handleAdmin)
			r.Post("/admin/questions", s.handleAddQuestion)
			r.Post("/admin/quiz/{quizID}/question/{questionID}", s.handleUpdateQuestion)
			r.Post("/admin/quiz/{quizID}/question/{questionID}/delete", s.handleDeleteQuestion)
		})
	})
	return r
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	// an oversized body hides the token, so report the real cause
	if bodyExceeded(r) {
		s.bodyTooLarge(w, r)
		return
	}
	s.logger.Warn("csrf rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "Forbidden: invalid or missing CSRF token", http.StatusForbidden)
}
