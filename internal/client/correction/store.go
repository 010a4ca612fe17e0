// Package correction maintains the client-side cache of correction
// records: the fetched sequence, the current selection, and the
// classified error surfaced to the UI.
package correction

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/styleguard/styleguard/internal/client/api"
	"github.com/styleguard/styleguard/internal/models"
)

// Store owns the correction cache. The sequence is newest-first; a new
// submission is prepended. The selection is a non-owning reference: a
// record selected by direct fetch is not required to be present in the
// sequence. All methods are safe for concurrent use, but cache-mutating
// operations are last-resolved-wins, not isolated.
type Store struct {
	mu  sync.Mutex
	api *api.Client
	log *zap.Logger

	corrections []models.Correction
	selected    *models.Correction
	loading     bool
	errInfo     *api.Error
}

// New constructs an empty Store backed by client.
func New(client *api.Client, log *zap.Logger) *Store {
	return &Store{api: client, log: log}
}

// begin marks an operation in flight and clears prior error info.
func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.errInfo = nil
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Store) fail(err error) *api.Error {
	classified := api.AsError(err)
	s.mu.Lock()
	s.errInfo = classified
	s.mu.Unlock()
	return classified
}

// FetchAll replaces the cached sequence wholesale with one server page.
// The selection is left untouched.
func (s *Store) FetchAll(ctx context.Context, skip, limit int) error {
	s.begin()
	defer s.end()

	corrections, err := s.api.Corrections(ctx, skip, limit)
	if err != nil {
		s.fail(err)
		return fmt.Errorf("%s", s.messageFor(api.AsError(err), "errorLoadingCorrections"))
	}

	s.mu.Lock()
	s.corrections = corrections
	s.mu.Unlock()
	s.log.Debug("corrections fetched", zap.Int("count", len(corrections)))
	return nil
}

// Submit sends text for correction. Callers validate and trim before
// calling; a blank submission is a UI-boundary no-op, not an error here.
// On success the new record is prepended and becomes the selection. On
// failure the classified error is retained and a consolidated error
// carrying the resolved message is returned, so callers that never read
// the store still observe a meaningful failure.
func (s *Store) Submit(ctx context.Context, text string) (models.Correction, error) {
	s.begin()
	defer s.end()

	created, err := s.api.CreateCorrection(ctx, text)
	if err != nil {
		classified := s.fail(err)
		return models.Correction{}, fmt.Errorf("%s", s.messageFor(classified, "errorCreatingCorrection"))
	}

	s.mu.Lock()
	s.corrections = append([]models.Correction{created}, s.corrections...)
	s.selected = &created
	s.mu.Unlock()

	s.log.Info("correction created", zap.Int("id", created.ID))
	return created, nil
}

// Remove deletes a correction server-side, then drops it from the cache.
// A matching selection is cleared; an id absent locally is not an error
// once the server confirms.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.begin()
	defer s.end()

	if err := s.api.DeleteCorrection(ctx, id); err != nil {
		classified := s.fail(err)
		return fmt.Errorf("%s", s.messageFor(classified, "errorDeletingCorrection"))
	}

	s.mu.Lock()
	kept := s.corrections[:0]
	for _, c := range s.corrections {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.corrections = kept
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
	s.mu.Unlock()

	s.log.Info("correction deleted", zap.Int("id", id))
	return nil
}

// Select makes the correction with the given id the selection, preferring
// the cached copy over a fetch. When the record is absent locally it is
// fetched and selected without being merged into the sequence. A missing
// record sets NotFound error info instead of returning an error.
func (s *Store) Select(ctx context.Context, id int) error {
	s.begin()
	defer s.end()

	s.mu.Lock()
	for i := range s.corrections {
		if s.corrections[i].ID == id {
			cached := s.corrections[i]
			s.selected = &cached
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	fetched, err := s.api.Correction(ctx, id)
	if err != nil {
		classified := api.AsError(err)
		if classified.Kind == api.KindNotFound {
			s.mu.Lock()
			s.errInfo = &api.Error{Kind: api.KindNotFound, Key: api.KeyCorrectionNotFound}
			s.mu.Unlock()
			return nil
		}
		s.fail(classified)
		return fmt.Errorf("%s", s.messageFor(classified, "errorLoadingCorrection"))
	}

	s.mu.Lock()
	s.selected = &fetched
	s.mu.Unlock()
	return nil
}

// SetSelected installs the selection directly, without any network call
// or error side effects. Pass nil to deselect.
func (s *Store) SetSelected(c *models.Correction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = c
}

// ClearSelected drops the selection and any error info.
func (s *Store) ClearSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.errInfo = nil
}

// ClearError resets the error info only.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errInfo = nil
}

// Corrections returns a copy of the cached sequence, newest first.
func (s *Store) Corrections() []models.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Correction, len(s.corrections))
	copy(out, s.corrections)
	return out
}

// Selected returns the current selection, or nil.
func (s *Store) Selected() *models.Correction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	c := *s.selected
	return &c
}

// IsLoading reports whether an operation is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ErrorInfo returns the classified error of the last failed operation,
// or nil.
func (s *Store) ErrorInfo() *api.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errInfo
}

// ErrorMessage derives the human-readable message for the current error
// info, or "" when there is none. Backend-outage errors surface their key
// alone; other errors append the detail when present.
func (s *Store) ErrorMessage() string {
	s.mu.Lock()
	info := s.errInfo
	s.mu.Unlock()
	if info == nil {
		return ""
	}
	if info.BackendUnavailable() {
		return info.Key
	}
	return info.Error()
}

// IsBackendUnavailable reports whether the current error denotes a
// correction-engine outage. The UI renders these with an extra hint.
func (s *Store) IsBackendUnavailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errInfo != nil && s.errInfo.BackendUnavailable()
}

// messageFor resolves the display message for a failure, falling back to
// the operation's default key when the error carries none.
func (s *Store) messageFor(err *api.Error, fallbackKey string) string {
	if err == nil {
		return fallbackKey
	}
	if err.Key == "" || err.Key == api.KeyUnexpected {
		if err.Detail != "" {
			return fmt.Sprintf("%s: %s", fallbackKey, err.Detail)
		}
		return fallbackKey
	}
	return err.Error()
}
