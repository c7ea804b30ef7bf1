package apiclient

import (
	"context"
	"net/http"

	"quizmaster-web/internal/domain"
)

// SignupRequest is the registration payload.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse covers both signup and signin. Signup may omit the token.
type AuthResponse struct {
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{op: "signup", method: http.MethodPost, path: "/api/user/signup", body: in}, &out)
	return out, err
}

// Signin exchanges credentials for a bearer token.
func (c *Client) Signin(ctx context.Context, in Credentials) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{op: "signin", method: http.MethodPost, path: "/api/user/signin", body: in}, &out)
	return out, err
}
