package app

import "quizmaster-web/internal/domain"

// Paths the guard and auth flows navigate to.
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
	PathAdmin     = "/admin"
	PathResults   = "/results"
)

// DefaultFallback is where a role mismatch lands.
const DefaultFallback = PathDashboard

// GuardAction is the outcome of a guard check.
type GuardAction int

const (
	Render GuardAction = iota
	RedirectLogin
	RedirectFallback
)

// Decision is what the guard tells the router to do.
type Decision struct {
	Action   GuardAction
	Location string
}

// Guard decides whether a protected view may render. It is a pure function of
// (session present, session role, required role) and must run on every request.
func Guard(hasSession bool, role, requiredRole, fallback string) Decision {
	if !hasSession {
		return Decision{Action: RedirectLogin, Location: PathLogin}
	}
	if requiredRole != "" && role != requiredRole {
		if fallback == "" {
			fallback = DefaultFallback
		}
		return Decision{Action: RedirectFallback, Location: fallback}
	}
	return Decision{Action: Render}
}

// LandingPath is where a freshly authenticated user goes.
func LandingPath(role string) string {
	if role == domain.RoleAdmin {
		return PathAdmin
	}
	return PathDashboard
}
