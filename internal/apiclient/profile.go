package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"quizmaster-web/internal/domain"
)

// GetProfile reads the caller's profile record.
func (c *Client) GetProfile(ctx context.Context, token string) (domain.Profile, error) {
	var out profileBody
	err := c.do(ctx, request{op: "get_profile", method: http.MethodGet, path: c.paths.Profile, token: token}, &out)
	return domain.Profile(out), err
}

// UpdateProfile sends the full profile and returns the copy stored by the server.
func (c *Client) UpdateProfile(ctx context.Context, token string, in domain.Profile) (domain.Profile, error) {
	var out profileBody
	err := c.do(ctx, request{op: "update_profile", method: http.MethodPut, path: c.paths.Profile, token: token, body: in}, &out)
	return domain.Profile(out), err
}

// profileBody accepts both a bare profile and {"profile": {...}}.
type profileBody domain.Profile

func (p *profileBody) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Profile *domain.Profile `json:"profile"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Profile != nil {
		*p = profileBody(*wrapped.Profile)
		return nil
	}
	var bare domain.Profile
	if err := json.Unmarshal(data, &bare); err != nil {
		return err
	}
	*p = profileBody(bare)
	return nil
}
