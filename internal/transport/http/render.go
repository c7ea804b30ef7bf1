package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer escapes raw HTML in the input; WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var funcs = template.FuncMap{
	"markdown":   renderMarkdown,
	"percentage": domain.Percentage,
	"subjects":   func() []domain.Subject { return domain.Subjects },
	"inc":        func(i int) int { return i + 1 },
	"when":       func(t time.Time) string { return t.Local().Format("2 Jan 2006 15:04") },
	"pictureURL": pictureURL,
}

// pictureURL trusts only image data URLs. Anything else goes through the
// template's own URL filtering, which keeps http(s) and blanks the rest.
func pictureURL(raw string) any {
	if strings.HasPrefix(strings.ToLower(raw), "data:image/") {
		return template.URL(raw)
	}
	return raw
}

type renderer struct {
	pages map[string]*template.Template
}

// newRenderer parses every page together with the layout once at startup.
func newRenderer() (*renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := name[len("templates/"):]
		if base == "layout.html" {
			continue
		}
		tpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[base] = tpl
	}
	return r, nil
}

// page is what every template receives.
type page struct {
	Title     string
	Session   domain.Session
	LoggedIn  bool
	IsAdmin   bool
	CSRFField template.HTML
	Notice    string
	Error     string
	// Refresh, when set, emits a meta refresh to RefreshURL after that many seconds.
	Refresh    float64
	RefreshURL string
	Data       any
}

func (s *Server) newPage(r *http.Request, title string, data any) page {
	sess, ok := currentSession(r)
	return page{
		Title:     title,
		Session:   sess,
		LoggedIn:  ok,
		IsAdmin:   ok && sess.User.IsAdmin(),
		CSRFField: csrf.TemplateField(r),
		Notice:    r.URL.Query().Get("notice"),
		Data:      data,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	tpl, ok := s.pages.pages[name]
	if !ok {
		s.internalError(w, fmt.Errorf("unknown template %q", name))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		s.internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message.
func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("internal error", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// authFailed clears the session after a 401/403 and shows the message briefly
// before sending the browser to the login page. It reports whether err was an
// auth failure.
func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if !s.svc.Sessions.ClearOnAuthFailure(r.Context(), sessionID(r), err) {
		return false
	}
	_ = s.svc.Runner.Discard(r.Context(), sessionID(r))
	p := s.newPage(r, "Session expired", nil)
	p.LoggedIn, p.IsAdmin, p.Session = false, false, domain.Session{}
	p.Error = domain.UserMessage(err)
	p.Refresh = s.opts.AuthRedirectDelay.Seconds()
	p.RefreshURL = app.PathLogin
	s.render(w, http.StatusUnauthorized, "auth_failed.html", p)
	return true
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrAnswerRequired),
		errors.Is(err, domain.ErrOptionNotFound), errors.Is(err, domain.ErrInvalidSubject):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrServer):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
