// Package session owns the authentication session: the token pair, the
// user identity, and their persisted mirror.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/styleguard/styleguard/internal/client/api"
	"github.com/styleguard/styleguard/internal/models"
)

// storageKey is the fixed key the serialized session lives under.
const storageKey = "auth-storage"

// snapshot is the persisted mirror of the session. Transient fields
// (loading, last error) are never persisted.
type snapshot struct {
	AccessToken     string       `json:"accessToken"`
	RefreshToken    string       `json:"refreshToken"`
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

// Manager owns the credential lifecycle: login, register, logout,
// refresh, and restore from the persistent store. It implements
// api.Credentials so the transport can read and rotate the token pair.
type Manager struct {
	mu    sync.Mutex
	store Store
	log   *zap.Logger

	client *api.Client

	access  string
	refresh string
	user    *models.User
	loading bool
	lastErr error
}

// NewManager constructs a Manager and restores any persisted session.
// A missing or unreadable snapshot yields the unauthenticated state.
func NewManager(store Store, log *zap.Logger) *Manager {
	m := &Manager{store: store, log: log}
	m.restore()
	return m
}

// SetClient binds the API client the manager drives. Set once during
// wiring; the client in turn holds the manager as its Credentials.
func (m *Manager) SetClient(c *api.Client) {
	m.client = c
}

func (m *Manager) restore() {
	data, err := m.store.Load(storageKey)
	if err != nil {
		m.log.Warn("failed to read persisted session", zap.Error(err))
		return
	}
	if data == nil {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.log.Warn("corrupt persisted session, starting unauthenticated", zap.Error(err))
		return
	}
	m.access = snap.AccessToken
	m.refresh = snap.RefreshToken
	m.user = snap.User
	m.log.Info("session restored", zap.Bool("authenticated", m.authenticatedLocked()))
}

// persistLocked writes the current session mirror. Callers hold m.mu.
func (m *Manager) persistLocked() {
	snap := snapshot{
		AccessToken:     m.access,
		RefreshToken:    m.refresh,
		User:            m.user,
		IsAuthenticated: m.authenticatedLocked(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		m.log.Error("failed to encode session snapshot", zap.Error(err))
		return
	}
	if err := m.store.Save(storageKey, data); err != nil {
		m.log.Warn("failed to persist session", zap.Error(err))
	}
}

func (m *Manager) authenticatedLocked() bool {
	return m.access != "" && m.user != nil
}

// AccessToken implements api.Credentials.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

// RefreshToken implements api.Credentials.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

// SetTokens implements api.Credentials: installs a rotated pair and
// keeps the persisted mirror current.
func (m *Manager) SetTokens(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
	m.persistLocked()
}

// Clear implements api.Credentials: synchronously wipes the session and
// its persisted mirror without any network call.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *Manager) clearLocked() {
	m.access = ""
	m.refresh = ""
	m.user = nil
	m.lastErr = nil
	if err := m.store.Delete(storageKey); err != nil {
		m.log.Warn("failed to wipe persisted session", zap.Error(err))
	}
}

// User returns the authenticated user, or nil.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// IsAuthenticated reports whether both an access token and a user
// identity are present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticatedLocked()
}

// IsLoading reports whether a session operation is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the classified error of the last failed operation, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
	if v {
		m.lastErr = nil
	}
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// Login exchanges credentials for a token pair, fetches the user profile
// with the new access token, then atomically installs and persists the
// session. The error is re-thrown so forms can show inline feedback.
func (m *Manager) Login(ctx context.Context, identifier, password string) error {
	m.setLoading(true)
	defer m.setLoading(false)

	pair, err := m.client.Token(ctx, identifier, password)
	if err != nil {
		classified := api.AsError(err)
		m.setErr(classified)
		return classified
	}

	// Install the pair so the profile fetch carries the new bearer token.
	m.SetTokens(pair.AccessToken, pair.RefreshToken)

	user, err := m.client.Me(ctx)
	if err != nil {
		// Roll back the partial session.
		m.Clear()
		classified := api.AsError(err)
		m.setErr(classified)
		return classified
	}

	m.mu.Lock()
	m.user = &user
	m.persistLocked()
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("username", user.Username))
	return nil
}

// Register creates an account, then logs in with the same credentials to
// establish the session: registration alone does not authenticate.
func (m *Manager) Register(ctx context.Context, email, username, password string) error {
	m.setLoading(true)

	if _, err := m.client.Register(ctx, email, username, password); err != nil {
		classified := api.AsError(err)
		m.setErr(classified)
		m.setLoading(false)
		return classified
	}
	m.setLoading(false)

	return m.Login(ctx, email, password)
}

// Logout best-effort invalidates the session server-side, then always
// clears local state and the persisted mirror. Server failure never
// leaves a stale local session behind.
func (m *Manager) Logout(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.client.Logout(ctx); err != nil {
		m.log.Warn("server-side logout failed", zap.Error(err))
	}
	m.Clear()
	m.log.Info("logged out")
}

// Refresh exchanges the stored refresh token for a new pair. On failure
// the session is cleared; refresh is never retried.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.client.Refresh(ctx); err != nil {
		m.Clear()
		classified := api.AsError(err)
		m.setErr(classified)
		return classified
	}
	return nil
}
