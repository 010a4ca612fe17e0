package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
)

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	// Store holds accounts and issued tokens.
	Store *Store
}

// registerRequest is the JSON payload for user registration.
type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// writeDetail writes the API's JSON error envelope.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Register handles POST /auth/register. All three fields are required;
// duplicate email or username conflicts.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.Email == "" || req.Username == "" || req.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid registration payload")
		return
	}

	user, err := h.Store.CreateUser(req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			writeDetail(w, http.StatusBadRequest, "Email or username already registered")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Token handles POST /auth/token: a form-encoded credential exchange.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form payload")
		return
	}
	identifier := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if identifier == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Missing credentials")
		return
	}

	user, err := h.Store.Authenticate(identifier, password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	writeJSON(w, http.StatusOK, h.Store.IssueTokens(user.ID))
}

// Me handles GET /auth/me, returning the profile of the bearer's user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// refreshRequest is the JSON payload for token rotation.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh. Each refresh token is single-use:
// rotation invalidates it and issues a fresh pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid refresh payload")
		return
	}

	pair, ok := h.Store.Rotate(req.RefreshToken)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout, revoking every token of the bearer's
// user.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	h.Store.RevokeUser(user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
