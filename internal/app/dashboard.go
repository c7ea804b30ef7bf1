package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"quizmaster-web/internal/domain"
)

// Dashboard is the landing page data for a logged-in user.
type Dashboard struct {
	Top        LeaderboardSnapshot
	History    []domain.AttemptRecord
	HistoryErr error
}

// LoadDashboard fetches the top of the leaderboard and the user's recent
// attempts concurrently. History failures are not fatal.
func LoadDashboard(ctx context.Context, sess domain.Session, boards *LeaderboardService, runner *RunnerService, limit int) (Dashboard, error) {
	var dash Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash.Top = boards.Fetch(gctx, sess.Token, "")
		if len(dash.Top.Entries) > limit {
			dash.Top.Entries = dash.Top.Entries[:limit]
		}
		return nil
	})
	g.Go(func() error {
		dash.History, dash.HistoryErr = runner.History(gctx, sess.User.Email, limit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}
