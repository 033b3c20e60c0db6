package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scrutor.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, 0.60, config.Detection.ConfidenceThreshold)
	assert.Equal(t, 0.30, config.Detection.MinConfidenceFloor)
	assert.Equal(t, 30*time.Minute, config.Auth.SessionTTL)
	assert.Equal(t, "disabled", config.LLM.Provider)
	assert.True(t, config.Browser.Headless)
	assert.False(t, config.IsProduction())
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[server]
port = 9090

[detection]
confidence_threshold = 0.75

[llm]
provider = "claude"

[claude]
api_key = "test-key"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 0.75, config.Detection.ConfidenceThreshold)
	assert.Equal(t, "claude", config.LLM.Provider)
	assert.True(t, config.IsProduction())
	// Untouched sections keep defaults
	assert.Equal(t, 3, config.Browser.MaxInstances)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	first := writeConfigFile(t, "[server]\nport = 7000\n")
	second := writeConfigFile(t, "[server]\nport = 7001\n")

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 7001, config.Server.Port)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/scrutor.toml")
	assert.Error(t, err)
}

func TestLoadFromFilesValidation(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		path := writeConfigFile(t, "[server]\nport = 99999\n")
		_, err := LoadFromFiles(path)
		assert.Error(t, err)
	})

	t.Run("floor above threshold", func(t *testing.T) {
		path := writeConfigFile(t, "[detection]\nconfidence_threshold = 0.5\nmin_confidence_floor = 0.9\n")
		_, err := LoadFromFiles(path)
		assert.Error(t, err)
	})

	t.Run("unknown llm provider", func(t *testing.T) {
		path := writeConfigFile(t, "[llm]\nprovider = \"oracle\"\n")
		_, err := LoadFromFiles(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCRUTOR_SERVER_PORT", "6060")
	t.Setenv("SCRUTOR_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "env-key")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 6060, config.Server.Port)
	assert.Equal(t, "gemini", config.LLM.Provider)
	assert.Equal(t, "env-key", config.Gemini.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	ApplyFlagOverrides(config, 5555, "0.0.0.0")
	assert.Equal(t, 5555, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 5555, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}
