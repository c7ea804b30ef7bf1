package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

// SessionCookie holds the opaque browser session id.
const SessionCookie = "quizmaster_sid"

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	sessionKey
	bodyLimitKey
)

type loadedSession struct {
	sess domain.Session
	ok   bool
}

// loadSession assigns a session id cookie on first visit and reads the
// session for every request. Nothing is cached between requests.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		sess, ok := s.svc.Sessions.Read(r.Context(), id)
		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		ctx = context.WithValue(ctx, sessionKey, loadedSession{sess: sess, ok: ok})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

func currentSession(r *http.Request) (domain.Session, bool) {
	ls, _ := r.Context().Value(sessionKey).(loadedSession)
	return ls.sess, ls.ok
}

// require runs the route guard before the handler. An empty role only
// requires a session.
func (s *Server) require(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := currentSession(r)
			decision := app.Guard(ok, sess.Role(), role, s.opts.Fallback)
			switch decision.Action {
			case app.Render:
				next.ServeHTTP(w, r)
			default:
				s.logger.Info("guard redirect", "path", r.URL.Path, "role", sess.Role(), "required", role, "location", decision.Location)
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			}
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// limitedBody records when a read ran into the MaxBytesReader limit, so the
// 413 can be reported even when the form was parsed by an earlier middleware.
type limitedBody struct {
	io.ReadCloser
	exceeded *atomic.Bool
}

func (b limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded.Store(true)
	}
	return n, err
}

// limitBody caps request bodies. It must run before csrf.Protect, which
// parses the form to find the token.
func (s *Server) limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				s.bodyTooLarge(w, r)
				return
			}
			exceeded := new(atomic.Bool)
			r.Body = limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, limit), exceeded: exceeded}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyLimitKey, exceeded)))
		})
	}
}

func bodyExceeded(r *http.Request) bool {
	exceeded, _ := r.Context().Value(bodyLimitKey).(*atomic.Bool)
	return exceeded != nil && exceeded.Load()
}

func (s *Server) bodyTooLarge(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("request body too large", "path", r.URL.Path, "content_length", r.ContentLength)
	http.Error(w, "Request too large: pictures must be at most 2 MiB.", http.StatusRequestEntityTooLarge)
}
