package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure for the UI layer.
type Kind int

const (
	// KindUnexpected covers anything without a more specific classification.
	KindUnexpected Kind = iota
	// KindBackendUnavailable means the correction engine behind the API
	// could not be reached or timed out.
	KindBackendUnavailable
	// KindNotFound means the referenced record does not exist.
	KindNotFound
	// KindValidation means the server rejected malformed client input.
	KindValidation
	// KindAuth means bad credentials or an expired/invalid session.
	KindAuth
)

// Message keys surfaced to the UI layer. The UI owns the wording; the
// client only guarantees a stable key.
const (
	KeyOllamaConnection   = "ollamaConnectionError"
	KeyOllamaTimeout      = "ollamaTimeoutError"
	KeyOllamaGeneral      = "ollamaGeneralError"
	KeyCorrectionNotFound = "correctionNotFound"
	KeyInvalidCredentials = "invalidCredentials"
	KeySessionExpired     = "sessionExpired"
	KeyBackendUnreachable = "backendUnreachable"
	KeyUnexpected         = "unexpectedError"
)

// Backend detail discriminators that signal a correction-engine outage.
const (
	detailOllamaConnection = "OLLAMA_CONNECTION_ERROR"
	detailOllamaTimeout    = "OLLAMA_TIMEOUT_ERROR"
	detailOllamaGeneral    = "OLLAMA_GENERAL_ERROR"
)

// Error is the single error representation that crosses the client
// boundary. Raw transport errors never leave this package.
type Error struct {
	// Kind is the classification of the failure.
	Kind Kind
	// Key is a stable machine-readable message key.
	Key string
	// Detail carries additional context, when available.
	Detail string
	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int
}

func (e *Error) Error() string {
	if e.Detail != "" && e.Detail != e.Key {
		return fmt.Sprintf("%s: %s", e.Key, e.Detail)
	}
	return e.Key
}

// BackendUnavailable reports whether the failure denotes a
// correction-engine outage rather than an ordinary error.
func (e *Error) BackendUnavailable() bool {
	return e.Kind == KindBackendUnavailable
}

// AsError extracts the classified *Error from err, wrapping anything
// foreign as an unexpected failure so callers always get one shape.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: KindUnexpected, Key: KeyUnexpected, Detail: err.Error()}
}

// errorBody is the JSON error envelope returned by the API.
type errorBody struct {
	Detail string `json:"detail"`
}

// classify converts a non-2xx HTTP response into an *Error, following the
// backend's detail-string convention: reserved OLLAMA_* discriminators map
// to a backend outage, any other detail is surfaced as-is, and an empty
// body falls back to the HTTP status text.
func classify(status int, body []byte) *Error {
	var eb errorBody
	if len(body) > 0 {
		_ = json.Unmarshal(body, &eb)
	}

	switch eb.Detail {
	case detailOllamaConnection:
		return &Error{Kind: KindBackendUnavailable, Key: KeyOllamaConnection, Status: status}
	case detailOllamaTimeout:
		return &Error{Kind: KindBackendUnavailable, Key: KeyOllamaTimeout, Status: status}
	case detailOllamaGeneral:
		return &Error{Kind: KindBackendUnavailable, Key: KeyOllamaGeneral, Status: status}
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindAuth, Key: KeyInvalidCredentials, Detail: eb.Detail, Status: status}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Key: KeyCorrectionNotFound, Detail: eb.Detail, Status: status}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidation, Key: keyOr(eb.Detail, KeyUnexpected), Status: status}
	}

	if eb.Detail != "" {
		return &Error{Kind: KindUnexpected, Key: eb.Detail, Status: status}
	}
	if text := http.StatusText(status); text != "" {
		return &Error{Kind: KindUnexpected, Key: text, Status: status}
	}
	return &Error{Kind: KindUnexpected, Key: KeyUnexpected, Status: status}
}

// classifyTransport converts a failure that produced no HTTP response at
// all (connection refused, timeout) into an *Error. Timeouts count as the
// backend being unavailable and never enter the 401 protocol.
func classifyTransport(err error) *Error {
	return &Error{Kind: KindBackendUnavailable, Key: KeyBackendUnreachable, Detail: err.Error()}
}

func keyOr(key, fallback string) string {
	if key != "" {
		return key
	}
	return fallback
}
