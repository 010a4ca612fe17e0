package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Outage modes simulated by the correction handler. Each maps to one of
// the backend's reserved detail discriminators.
const (
	OutageNone       = ""
	OutageConnection = "connection"
	OutageTimeout    = "timeout"
	OutageGeneral    = "general"
)

// CorrectionHandler serves the /corrections endpoints.
type CorrectionHandler struct {
	// Store holds the correction records.
	Store *Store

	mu     sync.Mutex
	outage string
}

// SetOutage switches the simulated correction-engine outage mode.
func (h *CorrectionHandler) SetOutage(mode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outage = mode
}

// outageDetail returns the reserved detail string for the current outage
// mode, or "" when the engine is healthy.
func (h *CorrectionHandler) outageDetail() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.outage {
	case OutageConnection:
		return "OLLAMA_CONNECTION_ERROR"
	case OutageTimeout:
		return "OLLAMA_TIMEOUT_ERROR"
	case OutageGeneral:
		return "OLLAMA_GENERAL_ERROR"
	}
	return ""
}

// correctionRequest is the JSON payload for submitting text.
type correctionRequest struct {
	OriginalText string `json:"original_text"`
}

// Create handles POST /corrections/.
func (h *CorrectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OriginalText == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "original_text is required")
		return
	}

	if detail := h.outageDetail(); detail != "" {
		writeDetail(w, http.StatusServiceUnavailable, detail)
		return
	}

	created := h.Store.CreateCorrection(user.ID, req.OriginalText, Correct(req.OriginalText))
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /corrections/?skip=&limit=.
func (h *CorrectionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "skip must be non-negative")
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	writeJSON(w, http.StatusOK, h.Store.ListCorrections(user.ID, skip, limit))
}

// Get handles GET /corrections/{id}.
func (h *CorrectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid correction id")
		return
	}

	c, ok := h.Store.GetCorrection(user.ID, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Correction not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /corrections/{id}.
func (h *CorrectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid correction id")
		return
	}

	if !h.Store.DeleteCorrection(user.ID, id) {
		writeDetail(w, http.StatusNotFound, "Correction not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
