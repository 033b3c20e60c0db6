package interfaces

import (
	"context"

	"github.com/ternarybob/scrutor/internal/models"
)

// Detector runs the full field detection pipeline for one request
type Detector interface {
	// Detect resolves url into a structured field inventory, authenticating
	// first when credentials are provided. It never returns an error: every
	// failure path terminates in a well-formed DetectionResult.
	Detect(ctx context.Context, url string, credentials *models.Credentials) *models.DetectionResult
}

// AuthProber verifies credentials against a login page
type AuthProber interface {
	// Probe authenticates against url and classifies the outcome. The
	// returned session is non-nil only on success.
	Probe(ctx context.Context, url string, credentials models.Credentials) (*models.AuthResult, *models.Session)
}

// SessionStore caches authenticated sessions keyed by (origin, fingerprint)
type SessionStore interface {
	// Get returns the cached live session for the key, or nil when absent
	// or expired
	Get(origin, fingerprint string) *models.Session

	// Put stores a session for the key, overwriting any previous entry
	Put(origin, fingerprint string, session *models.Session)

	// Invalidate removes any cached session for the key
	Invalidate(origin, fingerprint string)
}
