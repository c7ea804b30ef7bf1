package app

import (
	"context"
	"strings"

	"quizmaster-web/internal/apiclient"
	"quizmaster-web/internal/domain"
)

// AuthBackend is the part of the backend that issues tokens.
type AuthBackend interface {
	Signup(ctx context.Context, in apiclient.SignupRequest) (apiclient.AuthResponse, error)
	Signin(ctx context.Context, in apiclient.Credentials) (apiclient.AuthResponse, error)
}

// AuthService logs users in and out and keeps the session in step.
type AuthService struct {
	backend  AuthBackend
	sessions *SessionController
}

func NewAuthService(backend AuthBackend, sessions *SessionController) *AuthService {
	return &AuthService{backend: backend, sessions: sessions}
}

// Login authenticates and saves the session, returning the landing path.
func (s *AuthService) Login(ctx context.Context, sessionID, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", domain.Invalid("email", "Email and password are required.")
	}
	resp, err := s.backend.Signin(ctx, apiclient.Credentials{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Login failed. Please try again."
		}
		return "", domain.Invalid("", msg)
	}
	user := domain.User{}
	if resp.User != nil {
		user = *resp.User
	}
	if err := s.sessions.Save(ctx, sessionID, resp.Token, user); err != nil {
		return "", err
	}
	return LandingPath(user.Role), nil
}

// SignupResult carries the backend message and where to go next.
type SignupResult struct {
	Message  string
	Location string
}

// Signup registers the account. When the backend also issues a token the user is
// logged in immediately; otherwise they are sent to the login page.
func (s *AuthService) Signup(ctx context.Context, sessionID string, in apiclient.SignupRequest) (SignupResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Name == "":
		return SignupResult{}, domain.Invalid("name", "Name is required.")
	case in.Email == "":
		return SignupResult{}, domain.Invalid("email", "Email is required.")
	case in.Password == "":
		return SignupResult{}, domain.Invalid("password", "Password is required.")
	}
	if in.Role != domain.RoleAdmin {
		in.Role = domain.RoleUser
	}

	resp, err := s.backend.Signup(ctx, in)
	if err != nil {
		return SignupResult{}, err
	}
	msg := resp.Message
	if msg == "" {
		msg = "Signup successful!"
	}
	if resp.Token == "" {
		return SignupResult{Message: msg, Location: PathLogin}, nil
	}
	// the role is only trusted from the backend's user object
	user := domain.User{Name: in.Name, Email: in.Email}
	if resp.User != nil {
		user = *resp.User
	}
	if err := s.sessions.Save(ctx, sessionID, resp.Token, user); err != nil {
		return SignupResult{}, err
	}
	return SignupResult{Message: msg, Location: LandingPath(user.Role)}, nil
}

// Logout drops the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}
