// Package models defines the core data structures exchanged with the
// StyleGuard API.
package models

import "time"

// User represents an authenticated StyleGuard account.
type User struct {
	// ID is the unique identifier for the user.
	ID int `json:"id"`
	// Email is the address the account was registered with.
	Email string `json:"email"`
	// Username is the display name chosen by the user.
	Username string `json:"username"`
}

// Correction holds one text correction produced by the backend.
// Records are immutable once created; the client only adds and removes
// whole records from its cache.
type Correction struct {
	// ID is the unique identifier for the correction.
	ID int `json:"id"`
	// OriginalText is the text as submitted by the user.
	OriginalText string `json:"original_text"`
	// CorrectedText is the text as rewritten by the correction engine.
	CorrectedText string `json:"corrected_text"`
	// CreatedAt is the server-side creation timestamp.
	CreatedAt time.Time `json:"created_at"`
	// UserID is the owner of the correction.
	UserID int `json:"user_id"`
}

// TokenPair is the access/refresh credential pair issued by the
// authentication endpoints.
type TokenPair struct {
	// AccessToken is the short-lived bearer token.
	AccessToken string `json:"access_token"`
	// RefreshToken exchanges for a new pair when the access token expires.
	RefreshToken string `json:"refresh_token"`
}
