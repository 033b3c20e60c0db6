// Package auth implements the credential probe: locating a login form on a
// rendered page, submitting credentials through the browser, and classifying
// the outcome. Form location and outcome classification are pure functions
// over snapshots so they are testable without a browser.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// loginPathHints are URL path fragments that suggest a login page
var loginPathHints = []string{
	"/login", "/signin", "/sign-in", "/auth", "/entrar", "/acesso", "/session",
}

// loginKeywords in the page title or body suggest a login page
var loginKeywords = []string{
	"login", "sign in", "entrar", "acessar", "autenticar", "log in",
}

// failurePhrases in the post-submit page indicate rejected credentials
var failurePhrases = []string{
	"invalid", "incorrect", "login failed", "try again",
	"credenciais inválidas", "senha inválida", "senha incorreta",
	"usuário ou senha", "usuario ou senha", "falha no login",
	"dados incorretos",
}

// usernameHints rank text inputs as likely identifier fields
var usernameHints = []string{
	"user", "usuario", "login", "email", "e-mail", "cpf", "account",
}

// submitHints rank buttons as likely form submitters
var submitHints = []string{
	"entrar", "login", "log in", "sign in", "acessar", "submit", "continuar",
}

// Prober verifies credentials against a login page and caches the resulting
// session on success.
type Prober struct {
	pages    interfaces.PageProvider
	sessions interfaces.SessionStore
	config   common.AuthConfig
	logger   arbor.ILogger
}

// NewProber creates an authentication prober
func NewProber(pages interfaces.PageProvider, sessions interfaces.SessionStore, config common.AuthConfig, logger arbor.ILogger) *Prober {
	return &Prober{
		pages:    pages,
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

// Probe authenticates against url and classifies the outcome. The returned
// session is non-nil only when authentication succeeded; it has already been
// stored in the session cache.
func (p *Prober) Probe(ctx context.Context, url string, credentials models.Credentials) (*models.AuthResult, *models.Session) {
	start := time.Now()
	requestID := common.NewRequestID()
	log := p.logger.WithCorrelationId(requestID)

	result := &models.AuthResult{
		RequestID: requestID,
		Timestamp: start,
	}
	finish := func() (*models.AuthResult, *models.Session) {
		result.Duration = time.Since(start)
		return result, nil
	}

	log.Info().Str("url", url).Msg("Starting authentication probe")

	origin, err := common.Origin(url)
	if err != nil {
		result.Reason = models.FailureNavigation
		result.Message = "invalid url: " + err.Error()
		return finish()
	}

	snapshot, err := p.pages.Capture(ctx, url, nil)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Login page capture failed")
		result.Reason = models.FailureNavigation
		result.Message = "navigation error: login page could not be loaded"
		return finish()
	}

	result.LoginDetected = IsLoginPage(snapshot, url)

	form, found := LocateLoginForm(snapshot)
	if !found {
		log.Info().Str("url", url).Msg("No login form located on page")
		result.Reason = models.FailureFormNotFound
		result.Message = "no login form found on page"
		return finish()
	}

	submitCtx, cancel := context.WithTimeout(ctx, p.config.SubmitWait+30*time.Second)
	defer cancel()

	attempt, err := p.pages.SubmitLogin(submitCtx, &interfaces.LoginSubmission{
		URL:              url,
		UsernameSelector: form.UsernameSelector,
		PasswordSelector: form.PasswordSelector,
		SubmitSelector:   form.SubmitSelector,
		Credentials:      credentials,
	})
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Login submission failed")
		result.Reason = models.FailureNavigation
		result.Message = "navigation error during login submission"
		return finish()
	}
	result.FormFilled = true

	outcome := ClassifyOutcome(attempt)
	switch outcome {
	case models.FailureNone:
		session := &models.Session{
			Origin:    origin,
			Cookies:   attempt.Cookies,
			CreatedAt: time.Now(),
			TTL:       p.config.SessionTTL,
		}
		p.sessions.Put(origin, credentials.Fingerprint(origin), session)

		result.Success = true
		result.SubmissionSuccessful = true
		result.PostLoginURL = attempt.FinalURL
		result.SessionSaved = true
		result.Message = "authentication successful"
		result.Duration = time.Since(start)

		log.Info().
			Str("origin", origin).
			Dur("duration", result.Duration).
			Msg("Authentication probe succeeded")
		return result, session

	case models.FailureInvalidCredentials:
		p.sessions.Invalidate(origin, credentials.Fingerprint(origin))
		result.SubmissionSuccessful = true
		result.Reason = models.FailureInvalidCredentials
		result.Message = "credenciais inválidas"

	default:
		result.Reason = models.FailureTimeout
		result.Message = "no navigation or page change after login submission"
	}

	log.Info().
		Str("url", url).
		Str("reason", string(result.Reason)).
		Msg("Authentication probe failed")
	return finish()
}

// LoginForm holds the selectors of a located login form
type LoginForm struct {
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
}

// IsLoginPage reports whether the page looks like a login page: a password
// input plus either a login-ish URL path or login keywords in the title or
// body text.
func IsLoginPage(snapshot *models.PageSnapshot, url string) bool {
	hasPassword := false
	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		if el.Tag == "input" && strings.EqualFold(el.Attr("type"), "password") && el.Visible {
			hasPassword = true
			break
		}
	}
	if !hasPassword {
		return false
	}

	lowered := strings.ToLower(url)
	for _, hint := range loginPathHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}

	haystack := strings.ToLower(snapshot.Title + " " + snapshot.BodyText)
	for _, keyword := range loginKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}

	return false
}

// LocateLoginForm finds the credential inputs and submit control. The
// password input anchors the search: the least-nested visible one wins, with
// DOM order breaking ties. The identifier input is the nearest preceding
// visible text-like input; the submit control is the first plausible button
// at or after the password input.
func LocateLoginForm(snapshot *models.PageSnapshot) (*LoginForm, bool) {
	password := findPasswordInput(snapshot)
	if password == nil {
		return nil, false
	}

	username := findUsernameInput(snapshot, password)
	if username == nil {
		return nil, false
	}

	form := &LoginForm{
		UsernameSelector: username.Selector,
		PasswordSelector: password.Selector,
		SubmitSelector:   findSubmitSelector(snapshot, password),
	}
	return form, true
}

func findPasswordInput(snapshot *models.PageSnapshot) *models.DOMElement {
	var best *models.DOMElement
	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		if el.Tag != "input" || !el.Visible {
			continue
		}
		if !strings.EqualFold(el.Attr("type"), "password") {
			continue
		}
		if best == nil || el.Depth < best.Depth {
			best = el
		}
	}
	return best
}

// findUsernameInput picks the identifier input for the given password input:
// the closest preceding visible text/email input, preferring ones whose
// name/id/label match identifier vocabulary.
func findUsernameInput(snapshot *models.PageSnapshot, password *models.DOMElement) *models.DOMElement {
	var fallback *models.DOMElement
	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		if el.Index >= password.Index {
			break
		}
		if el.Tag != "input" || !el.Visible {
			continue
		}
		switch strings.ToLower(el.Attr("type")) {
		case "", "text", "email", "tel":
		default:
			continue
		}

		haystack := strings.ToLower(el.Attr("name") + " " + el.Attr("id") + " " + el.Label + " " + el.Attr("placeholder"))
		for _, hint := range usernameHints {
			if strings.Contains(haystack, hint) {
				return el
			}
		}
		// Closest preceding text input is the fallback
		fallback = el
	}
	return fallback
}

// findSubmitSelector returns the selector of the most plausible submit
// control, or empty when none exists. An empty selector means the caller
// should submit via the Enter key instead.
func findSubmitSelector(snapshot *models.PageSnapshot, password *models.DOMElement) string {
	var fallback string
	for i := range snapshot.Elements {
		el := &snapshot.Elements[i]
		if el.Index <= password.Index || !el.Visible {
			continue
		}

		isSubmit := false
		switch el.Tag {
		case "button":
			isSubmit = true
		case "input":
			t := strings.ToLower(el.Attr("type"))
			isSubmit = t == "submit" || t == "button"
		default:
			isSubmit = el.Role == "button"
		}
		if !isSubmit {
			continue
		}

		haystack := strings.ToLower(el.Text + " " + el.Attr("value") + " " + el.Label)
		for _, hint := range submitHints {
			if strings.Contains(haystack, hint) {
				return el.Selector
			}
		}
		if fallback == "" {
			fallback = el.Selector
		}
	}
	return fallback
}

// ClassifyOutcome maps a completed login attempt to a failure reason.
// FailureNone means success.
func ClassifyOutcome(attempt *interfaces.LoginAttempt) models.FailureReason {
	bodyText := ""
	passwordVisible := false
	if attempt.Snapshot != nil {
		bodyText = strings.ToLower(attempt.Snapshot.BodyText)
		for i := range attempt.Snapshot.Elements {
			el := &attempt.Snapshot.Elements[i]
			if el.Tag == "input" && strings.EqualFold(el.Attr("type"), "password") && el.Visible {
				passwordVisible = true
				break
			}
		}
	}

	for _, phrase := range failurePhrases {
		if strings.Contains(bodyText, phrase) {
			return models.FailureInvalidCredentials
		}
	}

	if attempt.FinalURL != attempt.StartURL {
		return models.FailureNone
	}
	if !passwordVisible {
		// Same URL but the login form is gone; single-page apps log in
		// without navigating
		return models.FailureNone
	}

	return models.FailureTimeout
}

var _ interfaces.AuthProber = (*Prober)(nil)
