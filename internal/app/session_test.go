package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizmaster-web/internal/apiclient"
	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
	"quizmaster-web/internal/infra/memory"
)

func newSessions() *app.SessionController {
	return app.NewSessionController(memory.NewSessionStore(), time.Hour, nil)
}

func TestSessionSaveReadClear(t *testing.T) {
	ctx := context.Background()
	sessions := newSessions()
	user := domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleAdmin}

	if err := sessions.Save(ctx, "s1", "t1", user); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	sess, ok := sessions.Read(ctx, "s1")
	if !ok || sess.Token != "t1" || sess.Role() != domain.RoleAdmin {
		t.Fatalf("unexpected session %+v %v", sess, ok)
	}

	if err := sessions.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := sessions.Read(ctx, "s1"); ok {
		t.Fatalf("expected no session after clear")
	}
}

func TestSessionSaveRequiresToken(t *testing.T) {
	sessions := newSessions()
	if err := sessions.Save(context.Background(), "s1", "", domain.User{Name: "Ann"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := sessions.Read(context.Background(), "s1"); ok {
		t.Fatalf("tokenless session must not be stored")
	}
}

func TestSessionReadTreatsCorruptRecordAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	_ = store.Put(ctx, "s1", []byte("{not json"), time.Hour)
	sessions := app.NewSessionController(store, time.Hour, nil)
	if _, ok := sessions.Read(ctx, "s1"); ok {
		t.Fatalf("expected corrupt record to read as no session")
	}
}

func TestSessionSubscribersSeeChanges(t *testing.T) {
	ctx := context.Background()
	sessions := newSessions()
	events, cancel := sessions.Subscribe()
	defer cancel()

	_ = sessions.Save(ctx, "s1", "t1", domain.User{})
	_ = sessions.Clear(ctx, "s1")

	for _, want := range []app.SessionEventKind{app.SessionSaved, app.SessionCleared} {
		select {
		case ev := <-events:
			if ev.ID != "s1" || ev.Kind != want {
				t.Fatalf("expected %s for s1, got %+v", want, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestSessionClearOnAuthFailure(t *testing.T) {
	ctx := context.Background()
	sessions := newSessions()
	_ = sessions.Save(ctx, "s1", "t1", domain.User{})

	if sessions.ClearOnAuthFailure(ctx, "s1", &apiclient.RequestError{Status: 500}) {
		t.Fatalf("server error must not clear the session")
	}
	if _, ok := sessions.Read(ctx, "s1"); !ok {
		t.Fatalf("session should survive a server error")
	}
	if !sessions.ClearOnAuthFailure(ctx, "s1", &apiclient.RequestError{Status: 403}) {
		t.Fatalf("expected 403 to clear the session")
	}
	if _, ok := sessions.Read(ctx, "s1"); ok {
		t.Fatalf("session should be gone after 403")
	}
}

type fakeAuth struct {
	resp apiclient.AuthResponse
	err  error
	got  apiclient.SignupRequest
}

func (f *fakeAuth) Signup(_ context.Context, in apiclient.SignupRequest) (apiclient.AuthResponse, error) {
	f.got = in
	return f.resp, f.err
}

func (f *fakeAuth) Signin(context.Context, apiclient.Credentials) (apiclient.AuthResponse, error) {
	return f.resp, f.err
}

func TestLoginSavesSessionAndLands(t *testing.T) {
	ctx := context.Background()
	sessions := newSessions()
	user := &domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleUser}
	auth := app.NewAuthService(&fakeAuth{resp: apiclient.AuthResponse{Token: "t1", User: user}}, sessions)

	location, err := auth.Login(ctx, "s1", "ann@example.com", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if location != app.PathDashboard {
		t.Fatalf("expected dashboard, got %s", location)
	}
	sess, ok := sessions.Read(ctx, "s1")
	if !ok || sess.Token != "t1" || sess.User != *user {
		t.Fatalf("unexpected session %+v", sess)
	}

	if err := auth.Logout(ctx, "s1"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, ok := sessions.Read(ctx, "s1"); ok {
		t.Fatalf("expected logout to clear session")
	}
}

func TestLoginWithoutTokenShowsBackendMessage(t *testing.T) {
	auth := app.NewAuthService(&fakeAuth{resp: apiclient.AuthResponse{Message: "Invalid credentials"}}, newSessions())
	_, err := auth.Login(context.Background(), "s1", "ann@example.com", "bad")
	if got := domain.UserMessage(err); got != "Invalid credentials" {
		t.Fatalf("expected backend message, got %q", got)
	}
}

func TestSignupDefaultsRoleAndRedirectsToLogin(t *testing.T) {
	backend := &fakeAuth{resp: apiclient.AuthResponse{Message: "User created"}}
	auth := app.NewAuthService(backend, newSessions())
	res, err := auth.Signup(context.Background(), "s1", apiclient.SignupRequest{Name: "Ann", Email: "ann@example.com", Password: "pw", Role: "root"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if backend.got.Role != domain.RoleUser {
		t.Fatalf("expected role to default to user, got %q", backend.got.Role)
	}
	if res.Location != app.PathLogin || res.Message != "User created" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSignupWithTokenIgnoresRequestedRole(t *testing.T) {
	sessions := newSessions()
	backend := &fakeAuth{resp: apiclient.AuthResponse{Token: "t2"}}
	auth := app.NewAuthService(backend, sessions)
	res, err := auth.Signup(context.Background(), "s1", apiclient.SignupRequest{Name: "Root", Email: "root@example.com", Password: "pw", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if res.Location != app.PathDashboard {
		t.Fatalf("expected dashboard landing, got %s", res.Location)
	}
	sess, ok := sessions.Read(context.Background(), "s1")
	if !ok || sess.Role() != "" || sess.User.Email != "root@example.com" {
		t.Fatalf("expected session without a role, got %+v", sess)
	}
	if d := app.Guard(ok, sess.Role(), domain.RoleAdmin, ""); d.Action == app.Render {
		t.Fatalf("admin guard passed on a role the backend never returned")
	}
}

func TestSignupWithTokenUsesBackendUser(t *testing.T) {
	sessions := newSessions()
	backend := &fakeAuth{resp: apiclient.AuthResponse{Token: "t2", User: &domain.User{Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin}}}
	auth := app.NewAuthService(backend, sessions)
	res, err := auth.Signup(context.Background(), "s1", apiclient.SignupRequest{Name: "Root", Email: "root@example.com", Password: "pw", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if res.Location != app.PathAdmin {
		t.Fatalf("expected admin landing, got %s", res.Location)
	}
	if sess, ok := sessions.Read(context.Background(), "s1"); !ok || sess.Role() != domain.RoleAdmin {
		t.Fatalf("expected admin session, got %+v", sess)
	}
}
