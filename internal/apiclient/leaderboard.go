package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"quizmaster-web/internal/domain"
)

// Leaderboard returns the raw leaderboard rows; an empty subject means all subjects.
func (c *Client) Leaderboard(ctx context.Context, token string, subject domain.Subject) ([]domain.LeaderboardEntry, error) {
	path := c.paths.Leaderboard
	if subject != "" {
		path += "?subject=" + url.QueryEscape(string(subject))
	}
	var out entryList
	if err := c.do(ctx, request{op: "leaderboard", method: http.MethodGet, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// entryList accepts a bare array or an object wrapping it under results/leaderboard.
type entryList []domain.LeaderboardEntry

func (l *entryList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var entries []domain.LeaderboardEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	}
	var wrapped struct {
		Results     []domain.LeaderboardEntry `json:"results"`
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Results != nil {
		*l = wrapped.Results
	} else {
		*l = wrapped.Leaderboard
	}
	return nil
}
