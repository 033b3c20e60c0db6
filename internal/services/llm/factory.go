package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
)

// NewLLMService creates the completion provider selected by configuration.
// Provider "disabled" yields a nil service, which turns the refiner stage off.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := strings.ToLower(cfg.LLM.Provider)
	logger.Info().Str("provider", provider).Msg("Initializing LLM service")

	switch provider {
	case "claude":
		return NewClaudeService(&cfg.Claude, logger)
	case "gemini":
		return NewGeminiService(&cfg.Gemini, logger)
	case "disabled", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid llm.provider '%s': must be 'claude', 'gemini', or 'disabled'", cfg.LLM.Provider)
	}
}

// CallInterval returns the minimum interval between refiner calls for the
// configured provider. Invalid or missing values fall back to one second.
func CallInterval(cfg *common.Config) time.Duration {
	var raw string
	switch strings.ToLower(cfg.LLM.Provider) {
	case "claude":
		raw = cfg.Claude.RateLimit
	case "gemini":
		raw = cfg.Gemini.RateLimit
	}
	if raw == "" {
		return time.Second
	}
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		return time.Second
	}
	return interval
}
