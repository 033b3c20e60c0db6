package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Web crawlers (field detection and auth testing)
	mux.HandleFunc("/api/v1/web-crawlers/auth-test", s.app.CrawlerHandler.AuthTestHandler)
	mux.HandleFunc("/api/v1/web-crawlers/field-detection", s.app.CrawlerHandler.FieldDetectionHandler)
	mux.HandleFunc("/api/v1/web-crawlers/health", s.app.CrawlerHandler.HealthHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Unknown API paths get a JSON 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/" {
			s.app.APIHandler.NotFoundHandler(w, r)
			return
		}
		http.NotFound(w, r)
	})

	return mux
}
