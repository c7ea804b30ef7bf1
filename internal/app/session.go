package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"quizmaster-web/internal/domain"
)

// SessionRepository abstracts where serialized sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	Put(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Get(ctx context.Context, id string) ([]byte, bool, error)
	Delete(ctx context.Context, id string) error
}

// SessionEventKind tells subscribers what happened to a session.
type SessionEventKind string

const (
	SessionSaved   SessionEventKind = "saved"
	SessionCleared SessionEventKind = "cleared"
)

// SessionEvent is broadcast on every save and clear.
type SessionEvent struct {
	ID   string
	Kind SessionEventKind
}

// SessionController is the single owner of session state. Views read through it
// and it notifies subscribers when a session changes.
type SessionController struct {
	repo   SessionRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[chan SessionEvent]struct{}
}

func NewSessionController(repo SessionRepository, ttl time.Duration, logger *slog.Logger) *SessionController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionController{
		repo:        repo,
		ttl:         ttl,
		now:         time.Now,
		logger:      logger,
		subscribers: make(map[chan SessionEvent]struct{}),
	}
}

// Save stores token and user together; a token without a user is never written.
func (c *SessionController) Save(ctx context.Context, id, token string, user domain.User) error {
	if id == "" {
		return domain.ErrNoSession
	}
	if token == "" {
		return domain.Invalid("token", "login response did not include a token")
	}
	data, err := json.Marshal(domain.Session{Token: token, User: user})
	if err != nil {
		return err
	}
	if err := c.repo.Put(ctx, id, data, c.lifetime(token)); err != nil {
		return err
	}
	c.broadcast(SessionEvent{ID: id, Kind: SessionSaved})
	return nil
}

// Read returns the session for id. Missing, expired, or unreadable records all
// read as "no session"; a parse failure never surfaces as an error.
func (c *SessionController) Read(ctx context.Context, id string) (domain.Session, bool) {
	if id == "" {
		return domain.Session{}, false
	}
	data, ok, err := c.repo.Get(ctx, id)
	if err != nil {
		c.logger.Warn("session read failed", "error", err)
		return domain.Session{}, false
	}
	if !ok {
		return domain.Session{}, false
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.Token == "" {
		return domain.Session{}, false
	}
	return sess, true
}

// Clear removes the whole session record.
func (c *SessionController) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.broadcast(SessionEvent{ID: id, Kind: SessionCleared})
	return nil
}

// ClearOnAuthFailure clears the session when err is a 401/403 and reports whether it did.
func (c *SessionController) ClearOnAuthFailure(ctx context.Context, id string, err error) bool {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	if cerr := c.Clear(ctx, id); cerr != nil {
		c.logger.Error("clear session after auth failure", "error", cerr)
	}
	return true
}

// Subscribe returns a channel of session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *SessionController) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *SessionController) broadcast(ev SessionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			// full buffer: drop the oldest event so publishers never block
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// lifetime keeps a session as long as its JWT claims to be valid, falling back
// to the configured TTL for opaque tokens. This bounds storage only; validity is
// still decided by the backend.
func (c *SessionController) lifetime(token string) time.Duration {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return c.ttl
	}
	d := claims.ExpiresAt.Time.Sub(c.now())
	if d <= 0 {
		return c.ttl
	}
	return d
}
