package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/styleguard/styleguard/internal/models"
)

// RegisterRequest is the JSON payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account. Registration alone does not
// authenticate; callers log in afterwards with the same credentials.
func (c *Client) Register(ctx context.Context, email, username, password string) (models.User, error) {
	var user models.User
	req := RegisterRequest{Email: email, Username: username, Password: password}
	if err := c.postJSON(ctx, "/auth/register", req, &user, false); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Token exchanges credentials for an access/refresh token pair. The
// endpoint expects a form-encoded body.
func (c *Client) Token(ctx context.Context, username, password string) (models.TokenPair, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var pair models.TokenPair
	if err := c.postForm(ctx, "/auth/token", form, &pair); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

// Me fetches the profile of the currently authenticated user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/auth/me", &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Logout invalidates the session server-side. Callers treat it as
// fire-and-forget: local state is cleared regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/logout", authed: true})
	return err
}
