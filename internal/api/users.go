package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// GetUser fetches a public profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.get(ctx, "/api/users/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile persists profile changes and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (*domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.put(ctx, "/api/users/profile", upd, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// SearchUsers finds members by name, username or organisation.
func (c *Client) SearchUsers(ctx context.Context, query string, page Page) ([]domain.User, error) {
	v := page.values()
	v.Set("q", query)
	var out struct {
		Users []domain.User `json:"users"`
	}
	if err := c.get(ctx, "/api/users/search", v, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}
