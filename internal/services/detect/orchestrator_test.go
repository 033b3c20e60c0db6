package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// stubPages implements interfaces.PageProvider for pipeline tests. When next
// is set, the second and later captures return it instead of snapshot.
type stubPages struct {
	snapshot    *models.PageSnapshot
	next        *models.PageSnapshot
	err         error
	captures    int
	lastSession *models.Session
}

func (s *stubPages) Capture(ctx context.Context, url string, session *models.Session) (*models.PageSnapshot, error) {
	s.captures++
	s.lastSession = session
	if s.captures > 1 && s.next != nil {
		return s.next, nil
	}
	return s.snapshot, s.err
}

func (s *stubPages) SubmitLogin(ctx context.Context, sub *interfaces.LoginSubmission) (*interfaces.LoginAttempt, error) {
	return nil, errors.New("not used")
}

func (s *stubPages) Close() error { return nil }

// stubProber implements interfaces.AuthProber
type stubProber struct {
	result  *models.AuthResult
	session *models.Session
	calls   int
}

func (s *stubProber) Probe(ctx context.Context, url string, credentials models.Credentials) (*models.AuthResult, *models.Session) {
	s.calls++
	return s.result, s.session
}

// stubSessions implements interfaces.SessionStore
type stubSessions struct {
	sessions map[string]*models.Session
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: make(map[string]*models.Session)}
}

func (s *stubSessions) Get(origin, fingerprint string) *models.Session {
	return s.sessions[origin+"|"+fingerprint]
}

func (s *stubSessions) Put(origin, fingerprint string, session *models.Session) {
	s.sessions[origin+"|"+fingerprint] = session
}

func (s *stubSessions) Invalidate(origin, fingerprint string) {
	delete(s.sessions, origin+"|"+fingerprint)
}

func testDetectionConfig() common.DetectionConfig {
	return common.DetectionConfig{
		ConfidenceThreshold: 0.60,
		MinConfidenceFloor:  0.30,
		RefineMinElements:   5,
		ClassifyTimeout:     5 * time.Second,
		RefineTimeout:       time.Second,
	}
}

func newTestOrchestrator(pages interfaces.PageProvider, prober interfaces.AuthProber, sessions interfaces.SessionStore) *Orchestrator {
	logger := arbor.NewLogger()
	return NewOrchestrator(
		pages,
		prober,
		sessions,
		NewClassifier(0.30, logger),
		NewRefiner(nil, 1, 0.60, logger),
		NewDegrader(logger),
		testDetectionConfig(),
		logger,
	)
}

func TestDetectHappyPath(t *testing.T) {
	pages := &stubPages{snapshot: &models.PageSnapshot{
		Elements: []models.DOMElement{
			element(0, "input", "#email", map[string]string{"type": "email", "id": "email", "name": "email"}),
			element(1, "button", "#go", map[string]string{"id": "go"}),
		},
	}}

	result := newTestOrchestrator(pages, nil, newStubSessions()).Detect(context.Background(), "https://example.com", nil)

	assert.True(t, result.Success)
	assert.False(t, result.Degraded)
	assert.Len(t, result.Fields, 2)
	assert.NotEmpty(t, result.RequestID)
	assert.Nil(t, pages.lastSession)
}

func TestDetectNavigationErrorDoesNotDegrade(t *testing.T) {
	pages := &stubPages{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}

	result := newTestOrchestrator(pages, nil, newStubSessions()).Detect(context.Background(), "https://bad.invalid", nil)

	assert.False(t, result.Success)
	assert.Empty(t, result.Fields)
	assert.False(t, result.Degraded)
	assert.Contains(t, result.Message, "navigation error")
}

func TestDetectEmptyPageDoesNotDegrade(t *testing.T) {
	pages := &stubPages{snapshot: &models.PageSnapshot{}}

	result := newTestOrchestrator(pages, nil, newStubSessions()).Detect(context.Background(), "https://example.com/blank", nil)

	assert.False(t, result.Success)
	assert.Empty(t, result.Fields)
	assert.False(t, result.Degraded)
}

func TestDetectDegradesWhenClassifierFindsNothing(t *testing.T) {
	// Invisible elements are skipped by the classifier but the page still
	// contains recognizable tags, so the fallback applies
	invisible := element(0, "input", "input", map[string]string{"type": "text"})
	invisible.Visible = false
	pages := &stubPages{snapshot: &models.PageSnapshot{Elements: []models.DOMElement{invisible}}}

	result := newTestOrchestrator(pages, nil, newStubSessions()).Detect(context.Background(), "https://example.com", nil)

	assert.True(t, result.Success)
	assert.True(t, result.Degraded)
	require.NotEmpty(t, result.Fields)
	assert.Equal(t, "any_input", result.Fields[0].Name)
}

func TestDetectFailsWhenNothingRecognizable(t *testing.T) {
	pages := &stubPages{snapshot: &models.PageSnapshot{
		Elements: []models.DOMElement{element(0, "a", "a", map[string]string{"href": "/"})},
	}}

	result := newTestOrchestrator(pages, nil, newStubSessions()).Detect(context.Background(), "https://example.com", nil)

	assert.False(t, result.Success)
	assert.False(t, result.Degraded)
	assert.Empty(t, result.Fields)
}

func TestDetectAuthFailureAbortsDetection(t *testing.T) {
	pages := &stubPages{snapshot: &models.PageSnapshot{
		Elements: []models.DOMElement{element(0, "input", "#q", map[string]string{"id": "q"})},
	}}
	prober := &stubProber{result: &models.AuthResult{
		Success: false,
		Reason:  models.FailureInvalidCredentials,
		Message: "credenciais inválidas",
	}}

	creds := &models.Credentials{Username: "alice", Password: "wrong"}
	result := newTestOrchestrator(pages, prober, newStubSessions()).Detect(context.Background(), "https://example.com/login", creds)

	assert.False(t, result.Success)
	assert.Empty(t, result.Fields)
	assert.False(t, result.Degraded)
	assert.Contains(t, result.Message, "authentication failed")
	assert.Equal(t, 1, prober.calls)
}

func TestDetectReusesCachedSession(t *testing.T) {
	pages := &stubPages{snapshot: &models.PageSnapshot{
		Elements: []models.DOMElement{element(0, "input", "#q", map[string]string{"id": "q", "type": "text", "name": "q"})},
	}}
	prober := &stubProber{}
	sessions := newStubSessions()

	creds := models.Credentials{Username: "alice", Password: "pw"}
	cached := &models.Session{Origin: "https://example.com", CreatedAt: time.Now(), TTL: time.Hour}
	sessions.Put("https://example.com", creds.Fingerprint("https://example.com"), cached)

	result := newTestOrchestrator(pages, prober, sessions).Detect(context.Background(), "https://example.com/data", &creds)

	assert.True(t, result.Success)
	assert.Zero(t, prober.calls)
	assert.Same(t, cached, pages.lastSession)
}

func TestDetectStaleCachedSessionReauthenticates(t *testing.T) {
	// First capture lands on the login page: the cached session is no longer
	// honored. Detection must invalidate it, probe fresh credentials and
	// classify the recaptured page, not the login form.
	loginPage := &models.PageSnapshot{
		Title: "Login",
		Elements: []models.DOMElement{
			element(0, "input", "#username", map[string]string{"type": "text", "id": "username", "name": "username"}),
			element(1, "input", "#password", map[string]string{"type": "password", "id": "password", "name": "password"}),
		},
	}
	dashboard := &models.PageSnapshot{
		Elements: []models.DOMElement{
			element(0, "input", "#q", map[string]string{"id": "q", "type": "text", "name": "q"}),
		},
	}
	pages := &stubPages{snapshot: loginPage, next: dashboard}

	fresh := &models.Session{Origin: "https://example.com", CreatedAt: time.Now(), TTL: time.Hour}
	prober := &stubProber{
		result:  &models.AuthResult{Success: true, Message: "authentication successful"},
		session: fresh,
	}

	creds := models.Credentials{Username: "alice", Password: "pw"}
	fingerprint := creds.Fingerprint("https://example.com")
	sessions := newStubSessions()
	stale := &models.Session{Origin: "https://example.com", CreatedAt: time.Now(), TTL: time.Hour}
	sessions.Put("https://example.com", fingerprint, stale)

	result := newTestOrchestrator(pages, prober, sessions).Detect(context.Background(), "https://example.com/data", &creds)

	assert.True(t, result.Success)
	assert.False(t, result.Degraded)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, "q", result.Fields[0].Name)

	assert.Equal(t, 1, prober.calls)
	assert.Equal(t, 2, pages.captures)
	assert.Same(t, fresh, pages.lastSession)
	assert.Nil(t, sessions.Get("https://example.com", fingerprint))
}

func TestDetectStaleSessionReprobeFailureAborts(t *testing.T) {
	loginPage := &models.PageSnapshot{
		Title: "Login",
		Elements: []models.DOMElement{
			element(0, "input", "#password", map[string]string{"type": "password", "id": "password", "name": "password"}),
		},
	}
	pages := &stubPages{snapshot: loginPage}
	prober := &stubProber{result: &models.AuthResult{
		Success: false,
		Reason:  models.FailureInvalidCredentials,
		Message: "credenciais inválidas",
	}}

	creds := models.Credentials{Username: "alice", Password: "expired"}
	sessions := newStubSessions()
	sessions.Put("https://example.com", creds.Fingerprint("https://example.com"),
		&models.Session{Origin: "https://example.com", CreatedAt: time.Now(), TTL: time.Hour})

	result := newTestOrchestrator(pages, prober, sessions).Detect(context.Background(), "https://example.com/data", &creds)

	assert.False(t, result.Success)
	assert.False(t, result.Degraded)
	assert.Empty(t, result.Fields)
	assert.Contains(t, result.Message, "authentication failed")
	assert.Equal(t, 1, prober.calls)
}

func TestDetectProbeSuccessUsesReturnedSession(t *testing.T) {
	pages := &stubPages{snapshot: &models.PageSnapshot{
		Elements: []models.DOMElement{element(0, "input", "#q", map[string]string{"id": "q", "type": "text", "name": "q"})},
	}}
	session := &models.Session{Origin: "https://example.com", CreatedAt: time.Now(), TTL: time.Hour}
	prober := &stubProber{
		result:  &models.AuthResult{Success: true, Message: "authentication successful"},
		session: session,
	}

	creds := &models.Credentials{Username: "alice", Password: "pw"}
	result := newTestOrchestrator(pages, prober, newStubSessions()).Detect(context.Background(), "https://example.com/data", creds)

	assert.True(t, result.Success)
	assert.Equal(t, 1, prober.calls)
	assert.Same(t, session, pages.lastSession)
}
