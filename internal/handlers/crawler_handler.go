package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// CrawlerHandler serves the web-crawlers API: credential testing and field
// detection against arbitrary pages.
type CrawlerHandler struct {
	detector interfaces.Detector
	prober   interfaces.AuthProber
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewCrawlerHandler creates a handler backed by the detection engine
func NewCrawlerHandler(detector interfaces.Detector, prober interfaces.AuthProber, logger arbor.ILogger) *CrawlerHandler {
	return &CrawlerHandler{
		detector: detector,
		prober:   prober,
		validate: validator.New(),
		logger:   logger,
	}
}

// AuthTestHandler handles POST /api/v1/web-crawlers/auth-test
func (h *CrawlerHandler) AuthTestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.AuthTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request: url and credentials are required")
		return
	}

	h.logger.Info().
		Str("url", req.URL).
		Msg("Auth test requested")

	result, _ := h.prober.Probe(r.Context(), req.URL, req.Credentials)
	WriteJSON(w, http.StatusOK, models.NewAuthTestResponse(result))
}

// FieldDetectionHandler handles POST /api/v1/web-crawlers/field-detection
func (h *CrawlerHandler) FieldDetectionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.FieldDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: malformed JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request: url is required and must be valid")
		return
	}

	h.logger.Info().
		Str("url", req.URL).
		Bool("authenticated", req.Credentials != nil).
		Msg("Field detection requested")

	result := h.detector.Detect(r.Context(), req.URL, req.Credentials)
	WriteJSON(w, http.StatusOK, models.NewFieldDetectionResponse(result))
}

// HealthHandler handles GET /api/v1/web-crawlers/health
func (h *CrawlerHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Service:   "field-detection",
	})
}
