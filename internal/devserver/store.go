// Package devserver implements an in-memory StyleGuard API for local
// development and tests: the full auth and corrections surface, bearer
// middleware, a naive corrector, and a switchable outage mode.
package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/styleguard/styleguard/internal/models"
)

var (
	// ErrUserExists means the email or username is already registered.
	ErrUserExists = errors.New("devserver: user already exists")
	// ErrBadCredentials means the identifier/password pair did not match.
	ErrBadCredentials = errors.New("devserver: bad credentials")
)

// account is a registered user with its plaintext password. This is a
// development stub; nothing here is meant to hold real credentials.
type account struct {
	user     models.User
	password string
}

// accessInfo tracks one issued access token.
type accessInfo struct {
	userID  int
	expires time.Time
}

// Store holds all devserver state in memory.
type Store struct {
	mu sync.Mutex

	accounts         map[int]*account
	nextUserID       int
	corrections      map[int]models.Correction
	nextCorrectionID int

	access  map[string]accessInfo
	refresh map[string]int

	// accessTTL bounds issued access tokens. A very short TTL is handy
	// for exercising the client's refresh protocol.
	accessTTL time.Duration

	now func() time.Time
}

// NewStore creates an empty Store issuing access tokens valid for
// accessTTL. A non-positive TTL defaults to 30 minutes.
func NewStore(accessTTL time.Duration) *Store {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	return &Store{
		accounts:         map[int]*account{},
		nextUserID:       1,
		corrections:      map[int]models.Correction{},
		nextCorrectionID: 1,
		access:           map[string]accessInfo{},
		refresh:          map[string]int{},
		accessTTL:        accessTTL,
		now:              time.Now,
	}
}

// CreateUser registers an account. Email and username must both be free.
func (s *Store) CreateUser(email, username, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.user.Email == email || a.user.Username == username {
			return models.User{}, ErrUserExists
		}
	}

	user := models.User{ID: s.nextUserID, Email: email, Username: username}
	s.nextUserID++
	s.accounts[user.ID] = &account{user: user, password: password}
	return user, nil
}

// Authenticate matches the identifier (email or username) and password
// against registered accounts.
func (s *Store) Authenticate(identifier, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if (a.user.Email == identifier || a.user.Username == identifier) && a.password == password {
			return a.user, nil
		}
	}
	return models.User{}, ErrBadCredentials
}

// IssueTokens mints a fresh access/refresh pair for the user.
func (s *Store) IssueTokens(userID int) models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

func (s *Store) issueLocked(userID int) models.TokenPair {
	pair := models.TokenPair{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
	}
	s.access[pair.AccessToken] = accessInfo{userID: userID, expires: s.now().Add(s.accessTTL)}
	s.refresh[pair.RefreshToken] = userID
	return pair
}

// ResolveAccess maps an access token to its user, rejecting unknown and
// expired tokens.
func (s *Store) ResolveAccess(token string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.access[token]
	if !ok || s.now().After(info.expires) {
		return models.User{}, false
	}
	a, ok := s.accounts[info.userID]
	if !ok {
		return models.User{}, false
	}
	return a.user, true
}

// Rotate exchanges a refresh token for a new pair, invalidating the old
// refresh token so each one is single-use.
func (s *Store) Rotate(refreshToken string) (models.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refresh[refreshToken]
	if !ok {
		return models.TokenPair{}, false
	}
	delete(s.refresh, refreshToken)
	return s.issueLocked(userID), true
}

// RevokeUser drops every token issued to the user.
func (s *Store) RevokeUser(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, info := range s.access {
		if info.userID == userID {
			delete(s.access, token)
		}
	}
	for token, id := range s.refresh {
		if id == userID {
			delete(s.refresh, token)
		}
	}
}

// ExpireAccessTokens force-expires every outstanding access token while
// leaving refresh tokens valid. Tests use it to trigger the client's
// refresh protocol on demand.
func (s *Store) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, info := range s.access {
		info.expires = s.now().Add(-time.Second)
		s.access[token] = info
	}
}

// CreateCorrection stores a correction with the given corrected text.
func (s *Store) CreateCorrection(userID int, original, corrected string) models.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := models.Correction{
		ID:            s.nextCorrectionID,
		OriginalText:  original,
		CorrectedText: corrected,
		CreatedAt:     s.now().UTC(),
		UserID:        userID,
	}
	s.nextCorrectionID++
	s.corrections[c.ID] = c
	return c
}

// ListCorrections pages through the user's corrections, newest first.
// Negative skip values are treated as 0.
func (s *Store) ListCorrections(userID, skip, limit int) []models.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if skip < 0 {
		skip = 0
	}
	out := []models.Correction{}
	for _, c := range s.corrections {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if skip >= len(out) {
		return []models.Correction{}
	}
	out = out[skip:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// GetCorrection fetches one correction owned by the user.
func (s *Store) GetCorrection(userID, id int) (models.Correction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.corrections[id]
	if !ok || c.UserID != userID {
		return models.Correction{}, false
	}
	return c, true
}

// DeleteCorrection removes one correction owned by the user.
func (s *Store) DeleteCorrection(userID, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.corrections[id]
	if !ok || c.UserID != userID {
		return false
	}
	delete(s.corrections, id)
	return true
}

// Correct is the stub corrector: it trims the text, upper-cases the first
// rune, and guarantees terminal punctuation. Good enough to make the
// round trip visible.
func Correct(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	runes := []rune(text)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	text = string(runes)
	switch text[len(text)-1] {
	case '.', '!', '?':
	default:
		text += "."
	}
	return text
}
