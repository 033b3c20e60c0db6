package detect

import (
	"context"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/auth"
)

// Orchestrator sequences a detection request through authentication, page
// capture, classification, refining and the degraded fallback. Every failure
// path terminates in a well-formed DetectionResult; callers never see errors.
type Orchestrator struct {
	pages      interfaces.PageProvider
	prober     interfaces.AuthProber
	sessions   interfaces.SessionStore
	classifier *Classifier
	refiner    *Refiner
	degrader   *Degrader
	config     common.DetectionConfig
	logger     arbor.ILogger
}

// NewOrchestrator wires the detection pipeline. The prober and refiner may be
// nil-valued components when their features are disabled.
func NewOrchestrator(
	pages interfaces.PageProvider,
	prober interfaces.AuthProber,
	sessions interfaces.SessionStore,
	classifier *Classifier,
	refiner *Refiner,
	degrader *Degrader,
	config common.DetectionConfig,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		pages:      pages,
		prober:     prober,
		sessions:   sessions,
		classifier: classifier,
		refiner:    refiner,
		degrader:   degrader,
		config:     config,
		logger:     logger,
	}
}

// Detect runs the full pipeline for one URL. When credentials are provided
// the page is captured under an authenticated session, reusing a cached one
// when available.
func (o *Orchestrator) Detect(ctx context.Context, url string, credentials *models.Credentials) *models.DetectionResult {
	start := time.Now()
	requestID := common.NewRequestID()

	log := o.logger.WithCorrelationId(requestID)
	log.Info().
		Str("url", url).
		Bool("authenticated", credentials != nil).
		Msg("Starting field detection")

	result := &models.DetectionResult{
		RequestID: requestID,
		Timestamp: start,
	}
	finish := func() *models.DetectionResult {
		result.Duration = time.Since(start)
		return result
	}

	var session *models.Session
	var fromCache bool
	if credentials != nil {
		var failure string
		session, fromCache, failure = o.authenticate(ctx, url, *credentials, log)
		if failure != "" {
			result.Success = false
			result.Message = failure
			return finish()
		}
	}

	snapshot, err := o.pages.Capture(ctx, url, session)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Page capture failed")
		result.Success = false
		result.Message = "navigation error: page could not be loaded"
		return finish()
	}

	// A cached session the site no longer honors lands the capture back on
	// the login page. Invalidate it, probe fresh credentials and recapture
	// instead of classifying the login form itself.
	if fromCache && auth.IsLoginPage(snapshot, url) {
		log.Info().Str("url", url).Msg("Cached session no longer accepted, re-authenticating")
		if origin, oerr := common.Origin(url); oerr == nil {
			o.sessions.Invalidate(origin, credentials.Fingerprint(origin))
		}

		var failure string
		session, failure = o.probe(ctx, url, *credentials, log)
		if failure != "" {
			result.Success = false
			result.Message = failure
			return finish()
		}

		snapshot, err = o.pages.Capture(ctx, url, session)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Page capture failed")
			result.Success = false
			result.Message = "navigation error: page could not be loaded"
			return finish()
		}
	}

	if snapshot.Empty() {
		log.Info().Str("url", url).Msg("Page rendered empty, nothing to detect")
		result.Success = false
		result.Message = "page rendered no detectable content"
		return finish()
	}

	candidates := o.classifyWithTimeout(ctx, snapshot, log)

	if o.shouldRefine(candidates, snapshot) {
		refineCtx, cancel := context.WithTimeout(ctx, o.config.RefineTimeout)
		candidates = o.refiner.Refine(refineCtx, snapshot, candidates)
		cancel()
	}

	if len(candidates) == 0 {
		fallback := o.degrader.Degrade(snapshot)
		if len(fallback) == 0 {
			result.Success = false
			result.Message = "no recognizable fields on page"
			return finish()
		}
		log.Info().
			Int("field_count", len(fallback)).
			Msg("Primary detection empty, returning degraded field set")
		result.Success = true
		result.Degraded = true
		result.Fields = fallback
		return finish()
	}

	log.Info().
		Int("field_count", len(candidates)).
		Str("max_confidence", strconv.FormatFloat(MaxConfidence(candidates), 'f', 2, 64)).
		Msg("Field detection complete")

	result.Success = true
	result.Fields = candidates
	return finish()
}

// classifyWithTimeout bounds the classification stage. Goquery parsing of
// very large container markup can be slow; a timeout here drops through to
// the degraded fallback instead of stalling the request.
func (o *Orchestrator) classifyWithTimeout(ctx context.Context, snapshot *models.PageSnapshot, log arbor.ILogger) []models.FieldCandidate {
	done := make(chan []models.FieldCandidate, 1)
	go func() {
		done <- o.classifier.Classify(snapshot)
	}()

	timer := time.NewTimer(o.config.ClassifyTimeout)
	defer timer.Stop()

	select {
	case candidates := <-done:
		return candidates
	case <-ctx.Done():
		return nil
	case <-timer.C:
		log.Warn().
			Int("element_count", len(snapshot.Elements)).
			Dur("timeout", o.config.ClassifyTimeout).
			Msg("Classification timed out")
		return nil
	}
}

// shouldRefine reports whether the refiner stage applies: configured, and
// either the best candidate is below threshold or nothing was found on a page
// that clearly has interactive elements
func (o *Orchestrator) shouldRefine(candidates []models.FieldCandidate, snapshot *models.PageSnapshot) bool {
	if o.refiner == nil || !o.refiner.Enabled() {
		return false
	}
	if len(candidates) == 0 {
		return snapshot.InteractiveCount() > o.config.RefineMinElements
	}
	return MaxConfidence(candidates) < o.config.ConfidenceThreshold
}

// authenticate resolves a usable session for the credentials, probing the
// login page on cache miss. Returns a failure message instead of a session
// when authentication cannot be established; the bool reports whether the
// session came from the cache (and so may be stale).
func (o *Orchestrator) authenticate(ctx context.Context, url string, credentials models.Credentials, log arbor.ILogger) (*models.Session, bool, string) {
	origin, err := common.Origin(url)
	if err != nil {
		return nil, false, "invalid url: " + err.Error()
	}
	fingerprint := credentials.Fingerprint(origin)

	if cached := o.sessions.Get(origin, fingerprint); cached != nil {
		log.Debug().Str("origin", origin).Msg("Reusing cached session")
		return cached, true, ""
	}

	session, failure := o.probe(ctx, url, credentials, log)
	return session, false, failure
}

// probe runs a fresh authentication attempt against the login page
func (o *Orchestrator) probe(ctx context.Context, url string, credentials models.Credentials, log arbor.ILogger) (*models.Session, string) {
	if o.prober == nil {
		return nil, "authentication unavailable"
	}

	authResult, session := o.prober.Probe(ctx, url, credentials)
	if !authResult.Success {
		log.Info().
			Str("url", url).
			Str("reason", string(authResult.Reason)).
			Msg("Authentication failed, aborting detection")
		return nil, "authentication failed: " + authResult.Message
	}

	return session, ""
}
