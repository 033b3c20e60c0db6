package interfaces

import (
	"context"

	"github.com/ternarybob/scrutor/internal/models"
)

// LoginSubmission describes one credential submission attempt against a page
type LoginSubmission struct {
	URL              string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string // Empty means submit via Enter in the password field
	Credentials      models.Credentials
	Session          *models.Session
}

// LoginAttempt is the observed outcome of a LoginSubmission
type LoginAttempt struct {
	StartURL string
	FinalURL string
	Snapshot *models.PageSnapshot   // Page state after the submit wait elapsed
	Cookies  []models.SessionCookie // Browser cookies for the target origin after submit
}

// PageProvider renders pages and exposes their DOM. The engine treats the
// browser as an external collaborator behind this interface; the chromedp
// implementation lives in services/browser.
type PageProvider interface {
	// Capture navigates to url (presenting session cookies when given) and
	// returns a structured snapshot of the rendered page.
	Capture(ctx context.Context, url string, session *models.Session) (*models.PageSnapshot, error)

	// SubmitLogin navigates to the submission URL, fills the located
	// credential inputs, submits, waits for navigation or DOM settlement,
	// and reports the resulting page state.
	SubmitLogin(ctx context.Context, sub *LoginSubmission) (*LoginAttempt, error)

	// Close releases all browser resources
	Close() error
}
