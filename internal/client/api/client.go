// Package api implements the HTTP transport for the StyleGuard API:
// bearer-token injection, classified errors, and transparent recovery
// from expired access tokens via a single-flight refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every outbound request, matching the 15s budget
// of the web client.
const DefaultTimeout = 15 * time.Second

// Credentials supplies and receives the token pair the transport works
// with. The session manager implements it; the transport never persists
// tokens itself.
type Credentials interface {
	// AccessToken returns the current bearer token, or "" when absent.
	AccessToken() string
	// RefreshToken returns the current refresh token, or "" when absent.
	RefreshToken() string
	// SetTokens installs a rotated token pair.
	SetTokens(access, refresh string)
	// Clear wipes both tokens.
	Clear()
}

// Client performs StyleGuard API calls. All methods are safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	log     *zap.Logger

	// refreshGroup collapses concurrent refresh attempts into one flight.
	refreshGroup singleflight.Group

	// expireMu serializes session expiry so the handler fires at most
	// once per session generation.
	expireMu  sync.Mutex
	onExpired func()
}

// New constructs a Client for the API at baseURL. A zero timeout selects
// DefaultTimeout.
func New(baseURL string, timeout time.Duration, creds Credentials, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		log:     log,
	}
}

// SetSessionExpiredHandler installs the callback fired when a 401 survives
// the refresh protocol. The front end uses it to navigate to the login
// screen. Fired at most once per session generation.
func (c *Client) SetSessionExpiredHandler(fn func()) {
	c.expireMu.Lock()
	defer c.expireMu.Unlock()
	c.onExpired = fn
}

// call describes one request so the pipeline can replay it after a
// token refresh.
type call struct {
	method      string
	path        string
	body        []byte
	contentType string
	// authed marks requests that carry the bearer token and participate
	// in the 401 refresh protocol.
	authed bool
}

// do dispatches a call through the pipeline and returns the response body.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	return c.attempt(ctx, req, 0)
}

// attempt performs one send of req. The attempt counter replaces the
// original client's mutated retry flag: a request is replayed at most
// once, and only for the first 401 it sees.
func (c *Client) attempt(ctx context.Context, req call, attempt int) ([]byte, error) {
	token := ""
	if req.authed {
		token = c.creds.AccessToken()
	}

	hr, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bytes.NewReader(req.body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.contentType != "" {
		hr.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		hr.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	hr.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(hr)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	c.log.Debug("request completed",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Int("attempt", attempt))

	if resp.StatusCode == http.StatusUnauthorized && req.authed {
		if attempt == 0 && c.creds.RefreshToken() != "" {
			if err := c.refreshForToken(ctx, token); err != nil {
				// The failed flight already cleared the session.
				return nil, &Error{Kind: KindAuth, Key: KeySessionExpired, Status: resp.StatusCode}
			}
			// Replay exactly once with the rotated token. A second 401
			// falls through to session expiry below.
			return c.attempt(ctx, req, attempt+1)
		}
		c.expireSession()
		return nil, &Error{Kind: KindAuth, Key: KeySessionExpired, Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classify(resp.StatusCode, body)
	}
	return body, nil
}

// refreshForToken rotates the token pair, guaranteeing at most one refresh
// per token generation: concurrent callers share a single flight, and a
// caller whose 401 arrives after the rotation already happened finds the
// stale check failing and skips the exchange entirely.
func (c *Client) refreshForToken(ctx context.Context, staleToken string) error {
	_, err, shared := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		if c.creds.AccessToken() != staleToken {
			// Another caller already rotated the pair.
			return nil, nil
		}
		if err := c.exchangeRefreshToken(ctx); err != nil {
			// Expire inside the flight so stragglers see the cleared
			// credentials and cannot start a second exchange.
			c.expireSession()
			return nil, err
		}
		return nil, nil
	})
	if shared {
		c.log.Debug("refresh shared with concurrent caller")
	}
	return err
}

// exchangeRefreshToken performs the actual POST /auth/refresh. It bypasses
// the 401 protocol: a refresh that fails is fatal to the session, never
// retried.
func (c *Client) exchangeRefreshToken(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"refresh_token": c.creds.RefreshToken(),
	})
	if err != nil {
		return fmt.Errorf("encode refresh request: %w", err)
	}

	body, err := c.attempt(ctx, call{
		method:      http.MethodPost,
		path:        "/auth/refresh",
		body:        payload,
		contentType: "application/json",
	}, 0)
	if err != nil {
		c.log.Warn("token refresh failed", zap.Error(err))
		return err
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &pair); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return &Error{Kind: KindAuth, Key: KeySessionExpired}
	}

	c.creds.SetTokens(pair.AccessToken, pair.RefreshToken)
	c.log.Info("access token refreshed")
	return nil
}

// Refresh forces a token rotation using the stored refresh token. The
// session manager calls this; it shares the same single flight as the
// 401 protocol.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshForToken(ctx, c.creds.AccessToken())
}

// expireSession clears the credentials and fires the session-expired
// handler. Idempotent per session generation: once the tokens are gone,
// later callers (e.g. the other requests of a failed 401 burst) no-op.
func (c *Client) expireSession() {
	c.expireMu.Lock()
	defer c.expireMu.Unlock()
	if c.creds.AccessToken() == "" && c.creds.RefreshToken() == "" {
		return
	}
	c.creds.Clear()
	c.log.Info("session expired, credentials cleared")
	if c.onExpired != nil {
		c.onExpired()
	}
}

// getJSON issues an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.do(ctx, call{method: http.MethodGet, path: path, authed: true})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON issues a POST with a JSON body and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}, authed bool) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	body, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: "application/json",
		authed:      authed,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postForm issues an unauthenticated POST with a form-encoded body and
// decodes the JSON response.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	body, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        path,
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// delete issues an authenticated DELETE, discarding any response body.
func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: path, authed: true})
	return err
}
