package api

import (
	"context"

	"github.com/nfrund/podclient/internal/domain"
)

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// LoginRequest holds sign-in credentials. Identifier is an email or username.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// SignupRequest holds the fields of a new account.
type SignupRequest struct {
	FullName     string      `json:"fullName" validate:"required"`
	Email        string      `json:"email" validate:"required,email"`
	Password     string      `json:"password" validate:"required,min=8"`
	Username     string      `json:"username,omitempty"`
	Organisation string      `json:"organisation,omitempty"`
	Designation  string      `json:"designation,omitempty"`
	Role         domain.Role `json:"role,omitempty" validate:"omitempty,oneof=user pod_owner"`
}

// Login exchanges credentials for a token and the user profile.
func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	req := LoginRequest{Identifier: identifier, Password: password}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.post(ctx, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup creates an account and signs it in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.post(ctx, "/api/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/auth/logout", nil, nil)
}

// CurrentUser fetches the profile of the token's owner.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.get(ctx, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
