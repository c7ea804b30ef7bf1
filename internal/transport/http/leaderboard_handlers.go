package http

import (
	"net/http"

	"quizmaster-web/internal/app"
	"quizmaster-web/internal/domain"
)

type leaderboardView struct {
	Filter   domain.Subject
	Snapshot app.LeaderboardSnapshot
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	subject, err := app.ParseFilter(r.URL.Query().Get("subject"))
	if err != nil {
		p := s.newPage(r, "Leaderboard", leaderboardView{})
		p.Error = domain.UserMessage(err)
		s.render(w, statusFor(err), "leaderboard.html", p)
		return
	}
	sess, _ := currentSession(r)
	snap := s.svc.Leaderboard.Fetch(r.Context(), sess.Token, subject)
	if s.authFailed(w, r, snap.Err) {
		return
	}
	s.render(w, http.StatusOK, "leaderboard.html", s.newPage(r, "Leaderboard", leaderboardView{Filter: subject, Snapshot: snap}))
}
