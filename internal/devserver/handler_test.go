package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/styleguard/styleguard/internal/models"
)

func newTestServer(t *testing.T, ttl time.Duration) (*httptest.Server, *Store, *CorrectionHandler) {
	t.Helper()
	store := NewStore(ttl)
	authHandler := &AuthHandler{Store: store}
	correctionHandler := &CorrectionHandler{Store: store}
	ts := httptest.NewServer(NewRouter(authHandler, correctionHandler, zap.NewNop()))
	t.Cleanup(ts.Close)
	return ts, store, correctionHandler
}

func register(t *testing.T, ts *httptest.Server, email, username, password string) models.User {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email": email, "username": username, "password": password,
	})
	resp, err := http.Post(ts.URL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d; want 201", resp.StatusCode)
	}
	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return user
}

func obtainTokens(t *testing.T, ts *httptest.Server, identifier, password string) models.TokenPair {
	t.Helper()
	form := url.Values{}
	form.Set("username", identifier)
	form.Set("password", password)
	resp, err := http.Post(ts.URL+"/auth/token", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("token request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d; want 200", resp.StatusCode)
	}
	var pair models.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return pair
}

func doAuthed(t *testing.T, method, urlStr, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, urlStr, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestRegister_Validation(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid JSON", `not a json`, http.StatusUnprocessableEntity},
		{"missing email", `{"username":"bob","password":"x"}`, http.StatusUnprocessableEntity},
		{"missing password", `{"email":"b@x.com","username":"bob"}`, http.StatusUnprocessableEntity},
		{"valid", `{"email":"b@x.com","username":"bob","password":"x"}`, http.StatusCreated},
		{"duplicate", `{"email":"b@x.com","username":"bob","password":"x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/auth/register", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d; want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestTokenAndMe(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	user := register(t, ts, "alice@example.com", "alice", "secret")

	// Login works with both email and username as the identifier.
	for _, identifier := range []string{"alice@example.com", "alice"} {
		pair := obtainTokens(t, ts, identifier, "secret")

		resp := doAuthed(t, http.MethodGet, ts.URL+"/auth/me", pair.AccessToken, nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("me status = %d; want 200", resp.StatusCode)
		}
		var got models.User
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode me response: %v", err)
		}
		if got.ID != user.ID || got.Username != "alice" {
			t.Errorf("me = %+v; want id %d username alice", got, user.ID)
		}
	}
}

func TestToken_BadCredentials(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	register(t, ts, "alice@example.com", "alice", "secret")

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "wrong")
	resp, err := http.Post(ts.URL+"/auth/token", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", resp.StatusCode)
	}
}

func TestMe_RequiresBearer(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)

	resp, err := http.Get(ts.URL + "/auth/me")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", resp.StatusCode)
	}
}

func TestRefresh_RotatesAndInvalidatesOldToken(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	register(t, ts, "alice@example.com", "alice", "secret")
	pair := obtainTokens(t, ts, "alice", "secret")

	body, _ := json.Marshal(map[string]string{"refresh_token": pair.RefreshToken})
	resp, err := http.Post(ts.URL+"/auth/refresh", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("refresh request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d; want 200", resp.StatusCode)
	}
	var rotated models.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&rotated); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if rotated.AccessToken == pair.AccessToken || rotated.RefreshToken == pair.RefreshToken {
		t.Error("rotation must issue a fresh pair")
	}

	// The consumed refresh token is single-use.
	resp2, err := http.Post(ts.URL+"/auth/refresh", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("second refresh request failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("second refresh status = %d; want 401", resp2.StatusCode)
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	ts, store, _ := newTestServer(t, time.Minute)
	register(t, ts, "alice@example.com", "alice", "secret")
	pair := obtainTokens(t, ts, "alice", "secret")

	store.ExpireAccessTokens()

	resp := doAuthed(t, http.MethodGet, ts.URL+"/auth/me", pair.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401 for expired token", resp.StatusCode)
	}
}

func TestLogout_RevokesTokens(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	register(t, ts, "alice@example.com", "alice", "secret")
	pair := obtainTokens(t, ts, "alice", "secret")

	resp := doAuthed(t, http.MethodPost, ts.URL+"/auth/logout", pair.AccessToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d; want 200", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodGet, ts.URL+"/auth/me", pair.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d; want 401", resp.StatusCode)
	}
}

func TestCorrectionsCRUD(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	user := register(t, ts, "alice@example.com", "alice", "secret")
	pair := obtainTokens(t, ts, "alice", "secret")

	// Create.
	body, _ := json.Marshal(map[string]string{"original_text": "hello there"})
	resp := doAuthed(t, http.MethodPost, ts.URL+"/corrections/", pair.AccessToken, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d; want 201", resp.StatusCode)
	}
	var created models.Correction
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	resp.Body.Close()
	if created.CorrectedText != "Hello there." {
		t.Errorf("corrected text = %q; want %q", created.CorrectedText, "Hello there.")
	}
	if created.UserID != user.ID {
		t.Errorf("user id = %d; want %d", created.UserID, user.ID)
	}

	// List, newest first.
	body2, _ := json.Marshal(map[string]string{"original_text": "second"})
	resp = doAuthed(t, http.MethodPost, ts.URL+"/corrections/", pair.AccessToken, body2)
	resp.Body.Close()

	resp = doAuthed(t, http.MethodGet, ts.URL+"/corrections/?skip=0&limit=10", pair.AccessToken, nil)
	var listed []models.Correction
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	resp.Body.Close()
	if len(listed) != 2 || listed[0].OriginalText != "second" {
		t.Errorf("unexpected listing: %+v", listed)
	}

	// Get.
	resp = doAuthed(t, http.MethodGet, ts.URL+"/corrections/1", pair.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d; want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete, then the record is gone.
	resp = doAuthed(t, http.MethodDelete, ts.URL+"/corrections/1", pair.AccessToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d; want 204", resp.StatusCode)
	}
	resp = doAuthed(t, http.MethodGet, ts.URL+"/corrections/1", pair.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d; want 404", resp.StatusCode)
	}
}

func TestList_NegativeSkipRejected(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	register(t, ts, "alice@example.com", "alice", "secret")
	pair := obtainTokens(t, ts, "alice", "secret")

	body, _ := json.Marshal(map[string]string{"original_text": "one"})
	resp := doAuthed(t, http.MethodPost, ts.URL+"/corrections/", pair.AccessToken, body)
	resp.Body.Close()

	resp = doAuthed(t, http.MethodGet, ts.URL+"/corrections/?skip=-1&limit=10", pair.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d; want 422 for negative skip", resp.StatusCode)
	}
}

func TestList_StoreClampsNegativeSkip(t *testing.T) {
	store := NewStore(time.Minute)
	user, err := store.CreateUser("alice@example.com", "alice", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	store.CreateCorrection(user.ID, "one", "One.")
	store.CreateCorrection(user.ID, "two", "Two.")

	got := store.ListCorrections(user.ID, -3, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if got[0].OriginalText != "two" {
		t.Errorf("first record = %q; want newest first", got[0].OriginalText)
	}
}

func TestUnsupportedContentTypeRejected(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)

	resp, err := http.Post(ts.URL+"/auth/register", "text/plain",
		strings.NewReader(`{"email":"a@x.com","username":"a","password":"x"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d; want 415", resp.StatusCode)
	}
}

func TestCorrections_Isolation(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	register(t, ts, "alice@example.com", "alice", "secret")
	register(t, ts, "bob@example.com", "bob", "secret")
	alicePair := obtainTokens(t, ts, "alice", "secret")
	bobPair := obtainTokens(t, ts, "bob", "secret")

	body, _ := json.Marshal(map[string]string{"original_text": "private"})
	resp := doAuthed(t, http.MethodPost, ts.URL+"/corrections/", alicePair.AccessToken, body)
	resp.Body.Close()

	// Bob can neither read nor delete Alice's correction.
	resp = doAuthed(t, http.MethodGet, ts.URL+"/corrections/1", bobPair.AccessToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user get status = %d; want 404", resp.StatusCode)
	}
	resp = doAuthed(t, http.MethodDelete, ts.URL+"/corrections/1", bobPair.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d; want 404", resp.StatusCode)
	}
}

func TestCreate_OutageModes(t *testing.T) {
	tests := []struct {
		mode       string
		wantDetail string
	}{
		{OutageConnection, "OLLAMA_CONNECTION_ERROR"},
		{OutageTimeout, "OLLAMA_TIMEOUT_ERROR"},
		{OutageGeneral, "OLLAMA_GENERAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			ts, _, correctionHandler := newTestServer(t, time.Minute)
			register(t, ts, "alice@example.com", "alice", "secret")
			pair := obtainTokens(t, ts, "alice", "secret")
			correctionHandler.SetOutage(tt.mode)

			body, _ := json.Marshal(map[string]string{"original_text": "doomed"})
			resp := doAuthed(t, http.MethodPost, ts.URL+"/corrections/", pair.AccessToken, body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusServiceUnavailable {
				t.Fatalf("status = %d; want 503", resp.StatusCode)
			}
			var envelope struct {
				Detail string `json:"detail"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if envelope.Detail != tt.wantDetail {
				t.Errorf("detail = %q; want %q", envelope.Detail, tt.wantDetail)
			}
		})
	}
}

func TestCorrect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "Hello world."},
		{"already done.", "Already done."},
		{"  padded  ", "Padded."},
		{"shout!", "Shout!"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Correct(tt.in); got != tt.want {
			t.Errorf("Correct(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
