package app

import (
	"context"
	"sort"
	"time"

	"quizmaster-web/internal/domain"
)

// LeaderboardBackend reads leaderboard rows.
type LeaderboardBackend interface {
	Leaderboard(ctx context.Context, token string, subject domain.Subject) ([]domain.LeaderboardEntry, error)
}

// LeaderboardSnapshot is one render of the leaderboard. An empty Entries with a
// nil Err is the "no results" state, distinct from a failed fetch.
type LeaderboardSnapshot struct {
	Subject   domain.Subject            `json:"subject"`
	Entries   []domain.LeaderboardEntry `json:"entries"`
	Err       error                     `json:"-"`
	Error     string                    `json:"error,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// Empty reports the successful-but-empty state.
func (s LeaderboardSnapshot) Empty() bool { return s.Err == nil && len(s.Entries) == 0 }

// LeaderboardService fetches and polls leaderboards.
type LeaderboardService struct {
	backend  LeaderboardBackend
	interval time.Duration
	now      func() time.Time
}

// DefaultPollInterval is how often a watched leaderboard refreshes.
const DefaultPollInterval = 10 * time.Second

func NewLeaderboardService(backend LeaderboardBackend, interval time.Duration) *LeaderboardService {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &LeaderboardService{backend: backend, interval: interval, now: time.Now}
}

// ParseFilter reads an optional subject filter; empty means all subjects.
func ParseFilter(raw string) (domain.Subject, error) {
	if raw == "" {
		return "", nil
	}
	return domain.ParseSubject(raw)
}

// Fetch returns the leaderboard sorted by score descending, ties by name.
func (s *LeaderboardService) Fetch(ctx context.Context, token string, subject domain.Subject) LeaderboardSnapshot {
	snap := LeaderboardSnapshot{Subject: subject, UpdatedAt: s.now()}
	entries, err := s.backend.Leaderboard(ctx, token, subject)
	if err != nil {
		snap.Err = err
		snap.Error = domain.UserMessage(err)
		return snap
	}
	Rank(entries)
	snap.Entries = entries
	if snap.Entries == nil {
		snap.Entries = []domain.LeaderboardEntry{}
	}
	return snap
}

// Rank orders entries by score descending, then name ascending.
func Rank(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
}

// Watch emits a snapshot right away and then every poll interval until ctx is
// cancelled, at which point the ticker is stopped and the channel closed.
// A slow reader always gets the newest snapshot; older ones are dropped.
func (s *LeaderboardService) Watch(ctx context.Context, token string, subject domain.Subject) <-chan LeaderboardSnapshot {
	out := make(chan LeaderboardSnapshot, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			snap := s.Fetch(ctx, token, subject)
			if ctx.Err() != nil {
				return
			}
			publishLatest(out, snap)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

func publishLatest(ch chan LeaderboardSnapshot, snap LeaderboardSnapshot) {
	select {
	case ch <- snap:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
