package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sawa-platform/sawa/pkg/api"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// LoginRequest is the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshResponse is the body of a successful token refresh. Refresh is only
// set when the backend rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Login exchanges credentials for an access/refresh token pair and the user record.
// No bearer header is sent.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	var pair domain.TokenPair
	req := LoginRequest{Username: username, Password: password}
	if err := c.doRequest(ctx, http.MethodPost, api.PathLogin, req, &pair, false); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &pair, nil
}

// Register creates a backend account from the given field set.
func (c *Client) Register(ctx context.Context, fields any) error {
	if err := c.doRequest(ctx, http.MethodPost, api.PathRegister, fields, nil, false); err != nil {
		return fmt.Errorf("client.Register: %w", err)
	}
	return nil
}

// RefreshToken trades a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	var out RefreshResponse
	body := map[string]string{"refresh": refresh}
	if err := c.doRequest(ctx, http.MethodPost, api.PathTokenRefresh, body, &out, false); err != nil {
		return nil, fmt.Errorf("client.RefreshToken: %w", err)
	}
	return &out, nil
}

// GetProfile returns the authenticated user's account record.
func (c *Client) GetProfile(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, api.PathProfile, &u); err != nil {
		return nil, fmt.Errorf("client.GetProfile: %w", err)
	}
	return &u, nil
}

// ChangePassword changes the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	if err := c.post(ctx, api.PathChangePassword, body, nil); err != nil {
		return fmt.Errorf("client.ChangePassword: %w", err)
	}
	return nil
}
