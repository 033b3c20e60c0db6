// Package app wires application components together: browser pool, session
// cache, completion provider, authentication prober, detection pipeline and
// HTTP handlers.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/handlers"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/services/auth"
	"github.com/ternarybob/scrutor/internal/services/browser"
	"github.com/ternarybob/scrutor/internal/services/detect"
	"github.com/ternarybob/scrutor/internal/services/llm"
	"github.com/ternarybob/scrutor/internal/services/session"
	"golang.org/x/time/rate"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Core services
	BrowserService *browser.Service
	SessionCache   *session.Cache
	LLMService     interfaces.LLMService
	AuthProber     *auth.Prober
	Detector       *detect.Orchestrator

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	CrawlerHandler *handlers.CrawlerHandler
}

// New creates and wires all application components
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	browserService, err := browser.NewService(config.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser service: %w", err)
	}
	a.BrowserService = browserService

	a.SessionCache = session.NewCache(config.Auth.SessionTTL, logger)
	if config.Auth.SweepInterval > 0 {
		if err := a.SessionCache.StartSweeper(config.Auth.SweepInterval); err != nil {
			a.BrowserService.Close()
			return nil, fmt.Errorf("failed to start session sweeper: %w", err)
		}
	}

	llmService, err := llm.NewLLMService(config, logger)
	if err != nil {
		a.BrowserService.Close()
		a.SessionCache.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService

	a.AuthProber = auth.NewProber(browserService, a.SessionCache, config.Auth, logger)

	classifier := detect.NewClassifier(config.Detection.MinConfidenceFloor, logger)
	refiner := detect.NewRefiner(
		llmService,
		rate.Every(llm.CallInterval(config)),
		config.Detection.ConfidenceThreshold,
		logger,
	)
	degrader := detect.NewDegrader(logger)

	a.Detector = detect.NewOrchestrator(
		browserService,
		a.AuthProber,
		a.SessionCache,
		classifier,
		refiner,
		degrader,
		config.Detection,
		logger,
	)

	a.APIHandler = handlers.NewAPIHandler()
	a.CrawlerHandler = handlers.NewCrawlerHandler(a.Detector, a.AuthProber, logger)

	logger.Info().
		Int("browser_instances", config.Browser.MaxInstances).
		Str("llm_provider", config.LLM.Provider).
		Msg("Application components initialized")

	return a, nil
}

// Close releases all application resources in reverse initialization order
func (a *App) Close() {
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.SessionCache != nil {
		a.SessionCache.Close()
	}
	if a.BrowserService != nil {
		if err := a.BrowserService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close browser service")
		}
	}
	a.Logger.Info().Msg("Application components closed")
}
