package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Credentials holds an opaque identifier and secret for form authentication.
// The secret is never logged and never enters a cache key.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// String implements fmt.Stringer with the secret redacted
func (c Credentials) String() string {
	return "Credentials{username: " + c.Username + ", password: ***}"
}

// Fingerprint derives a non-reversible cache key from the origin and the
// identifier. The secret is deliberately excluded so rotating a password
// does not orphan cache entries.
func (c Credentials) Fingerprint(origin string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(origin) + "|" + c.Username))
	return hex.EncodeToString(sum[:])
}

// SessionCookie is a single captured browser cookie
type SessionCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
	SameSite string    `json:"same_site"`
}

// Session is opaque authentication state bound to a single origin
type Session struct {
	Origin    string          `json:"origin"`
	Cookies   []SessionCookie `json:"cookies"`
	CreatedAt time.Time       `json:"created_at"`
	TTL       time.Duration   `json:"ttl"`
}

// Expired reports whether the session TTL has elapsed
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	return time.Since(s.CreatedAt) >= s.TTL
}

// FailureReason is the closed set of authentication failure classifications
type FailureReason string

const (
	FailureNone               FailureReason = ""
	FailureFormNotFound       FailureReason = "form_not_found"
	FailureInvalidCredentials FailureReason = "invalid_credentials"
	FailureTimeout            FailureReason = "auth_timeout"
	FailureNavigation         FailureReason = "navigation_error"
)

// AuthResult is the outcome of an authentication probe
type AuthResult struct {
	Success              bool          `json:"success"`
	Reason               FailureReason `json:"reason,omitempty"`
	Message              string        `json:"message"`
	LoginDetected        bool          `json:"login_detected"`
	FormFilled           bool          `json:"form_filled"`
	SubmissionSuccessful bool          `json:"submission_successful"`
	PostLoginURL         string        `json:"post_login_url,omitempty"`
	SessionSaved         bool          `json:"session_saved"`
	Duration             time.Duration `json:"duration"`
	RequestID            string        `json:"request_id"`
	Timestamp            time.Time     `json:"timestamp"`
}
