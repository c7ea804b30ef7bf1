package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"quizmaster-web/internal/apiclient"
	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
	"quizmaster-web/internal/infra/memory"
)

// fakeBackend stands in for the remote REST API.
type fakeBackend struct {
	mu            sync.Mutex
	quizzes       map[domain.Subject][]domain.Quiz
	board         []map[string]any
	profile       domain.Profile
	profileStatus int
	created       []apiclient.QuizPayload
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		quizzes: map[domain.Subject][]domain.Quiz{domain.SubjectMath: {sampleQuiz()}},
		board:   []map[string]any{},
		profile: domain.Profile{Name: "Ann", Email: "ann@example.com", Bio: "I like **maths**"},
	}
}

func sampleQuiz() domain.Quiz {
	opts := func(correct string, others ...string) []domain.Option {
		out := []domain.Option{{Text: correct, IsCorrect: true}}
		for _, o := range others {
			out = append(out, domain.Option{Text: o})
		}
		return out
	}
	return domain.Quiz{
		ID:      "quiz-math",
		Subject: domain.SubjectMath,
		Questions: []domain.Question{
			{ID: "q1", Number: 1, QuestionText: "1+1?", Options: opts("2", "3", "4", "5")},
			{ID: "q2", Number: 2, QuestionText: "2+2?", Options: opts("4", "3", "5", "6")},
			{ID: "q3", Number: 3, QuestionText: "3+3?", Options: opts("6", "7", "8", "9")},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/signin", func(w http.ResponseWriter, r *http.Request) {
		var in apiclient.Credentials
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		role := domain.RoleUser
		if strings.HasPrefix(in.Email, "admin") {
			role = domain.RoleAdmin
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "token-" + role,
			"user":  map[string]string{"name": "Ann", "email": in.Email, "role": role},
		})
	})
	// signup issues a token but no user object, so no role is confirmed
	mux.HandleFunc("POST /api/user/signup", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "ok", "token": "tok-unverified"})
	})
	mux.HandleFunc("GET /api/quiz", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		quizzes, ok := b.quizzes[domain.Subject(r.URL.Query().Get("subject"))]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "No quizzes found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
	})
	mux.HandleFunc("POST /api/quiz", func(w http.ResponseWriter, r *http.Request) {
		var in apiclient.QuizPayload
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		b.created = append(b.created, in)
		b.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"quiz": map[string]any{"_id": "quiz-new", "subject": in.Subject}})
	})
	mux.HandleFunc("GET /api/results/public", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.board)
	})
	mux.HandleFunc("GET /api/profile/me", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.profileStatus != 0 {
			writeJSON(w, b.profileStatus, map[string]string{"message": "Token expired"})
			return
		}
		writeJSON(w, http.StatusOK, b.profile)
	})
	mux.HandleFunc("PUT /api/profile/me", func(w http.ResponseWriter, r *http.Request) {
		var in domain.Profile
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		defer b.mu.Unlock()
		in.Username = strings.ToLower(in.Name)
		b.profile = in
		writeJSON(w, http.StatusOK, map[string]any{"profile": in})
	})
	return mux
}

type testApp struct {
	front    *httptest.Server
	browser  *http.Client
	sessions *app.SessionController
	token    string
}

func newTestApp(t *testing.T, backend *fakeBackend) *testApp {
	t.Helper()
	api := httptest.NewServer(backend.handler())
	t.Cleanup(api.Close)

	client := apiclient.New(api.URL)
	sessions := app.NewSessionController(memory.NewSessionStore(), time.Hour, nil)
	quizzes := memory.NewQuizRepository(client, 0)
	svc := Services{
		Sessions:    sessions,
		Auth:        app.NewAuthService(client, sessions),
		Runner:      app.NewRunnerService(memory.NewAttemptStore(), quizzes, memory.NewJournal(100), nil),
		Admin:       app.NewAdminService(client, quizzes, app.RetryPolicy{Attempts: 2}, nil),
		Leaderboard: app.NewLeaderboardService(client, 20*time.Millisecond),
		Profiles:    app.NewProfileService(client),
	}
	srv, err := NewServer(svc, Options{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	front := httptest.NewServer(srv.Router())
	t.Cleanup(front.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{front: front, browser: browser, sessions: sessions}
}

var csrfField = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.browser.Get(a.front.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if m := csrfField.FindSubmatch(body); m != nil {
		a.token = string(m[1])
	}
	return resp, string(body)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	if a.token == "" {
		a.get(t, "/login")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("gorilla.csrf.Token", a.token)
	resp, err := a.browser.PostForm(a.front.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	a.get(t, "/login")
	resp, _ := a.post(t, "/login", url.Values{"email": {email}, "password": {"secret"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login: expected redirect, got %d", resp.StatusCode)
	}
	return resp.Header.Get("Location")
}

func (a *testApp) sessionID(t *testing.T) string {
	t.Helper()
	u, _ := url.Parse(a.front.URL)
	for _, c := range a.browser.Jar.Cookies(u) {
		if c.Name == SessionCookie {
			return c.Value
		}
	}
	t.Fatalf("no session cookie")
	return ""
}
