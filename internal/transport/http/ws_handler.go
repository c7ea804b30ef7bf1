package http

import (
	"context"
	"errors"
	"net/http"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// handleLeaderboardWS streams leaderboard snapshots until the client goes
// away or the browser session is cleared (logout or auth failure elsewhere).
func (s *Server) handleLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	subject, err := app.ParseFilter(r.URL.Query().Get("subject"))
	if err != nil {
		http.Error(w, domain.UserMessage(err), http.StatusBadRequest)
		return
	}
	sess, _ := currentSession(r)
	id := sessionID(r)

	// subscribe before upgrading so a clear racing the handshake is not missed
	events, unsubscribe := s.svc.Sessions.Subscribe()
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	updates := s.svc.Leaderboard.Watch(ctx, sess.Token, subject)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("ws write error", "error", err)
				cancel()
				return
			}
		}
	}()

	// the client never sends anything; reading detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.pump(ctx, id, updates, events, send)
	cancel()
	close(send)
	<-writerDone
}

// pump forwards snapshots to send until ctx ends, the session is cleared, or
// the backend rejects the token.
func (s *Server) pump(ctx context.Context, id string, updates <-chan app.LeaderboardSnapshot, events <-chan app.SessionEvent, send chan<- outboundMessage[any]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.ID == id && ev.Kind == app.SessionCleared {
				trySend(ctx, send, outboundMessage[any]{Type: "sessionCleared", Payload: errorPayload{Message: "Session ended."}})
				return
			}
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if errors.Is(snap.Err, domain.ErrUnauthorized) {
				s.svc.Sessions.ClearOnAuthFailure(ctx, id, snap.Err)
				trySend(ctx, send, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: snap.Error}})
				return
			}
			if !trySend(ctx, send, outboundMessage[any]{Type: "leaderboard", Payload: snap}) {
				return
			}
		}
	}
}

func trySend(ctx context.Context, send chan<- outboundMessage[any], msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
