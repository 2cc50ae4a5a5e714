package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENABLE_AI_FEATURES", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("PORT", "")
	t.Setenv("AI_ANALYSIS_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
	assert.Equal(t, 30*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxImageBytes)
	assert.False(t, cfg.AIFeatureEnabled())
}

func TestLoad_AIFeatureNeedsFlagAndKey(t *testing.T) {
	t.Setenv("ENABLE_AI_FEATURES", "true")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AIFeatureEnabled(), "flag without key must stay disabled")

	t.Setenv("GEMINI_API_KEY", "secret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.AIFeatureEnabled())

	t.Setenv("ENABLE_AI_FEATURES", "TRUE")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.AIFeatureEnabled(), "flag is compared literally")
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "99999")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_DurationAsSeconds(t *testing.T) {
	t.Setenv("AI_ANALYSIS_TIMEOUT", "45")
	t.Setenv("REQUEST_TIMEOUT", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
}

func TestLoad_BackendURLTrailingSlash(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://api.satulemari.id/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.satulemari.id", cfg.BackendBaseURL)
}

func TestServerAddress(t *testing.T) {
	cfg := &Config{Host: " 127.0.0.1 ", Port: "9000"}
	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddress())
}
