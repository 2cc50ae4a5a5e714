package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "satulemari-partner"
	EnvFileName = "config.env"

	DefaultGeminiModel = "gemini-2.5-flash"
)

// Config holds the runtime configuration of the partner service.
type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	// AIEnabled mirrors ENABLE_AI_FEATURES. The feature is only usable when
	// a Gemini API key is present as well, see AIFeatureEnabled.
	AIEnabled        bool
	GeminiAPIKey     string
	GeminiModel      string
	AnalysisTimeout  time.Duration
	AnalysisCacheTTL time.Duration
	MaxImageBytes    int64

	BackendBaseURL string
	DBPath         string
	TokenKey       string
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Host:             getEnvOrDefault("HOST", "0.0.0.0"),
		Port:             getEnvOrDefault("PORT", "8080"),
		RequestTimeout:   parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		AIEnabled:        os.Getenv("ENABLE_AI_FEATURES") == "true",
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", DefaultGeminiModel),
		AnalysisTimeout:  parseDurationOrDefault("AI_ANALYSIS_TIMEOUT", 30*time.Second),
		AnalysisCacheTTL: parseDurationOrDefault("ANALYSIS_CACHE_TTL", 7*24*time.Hour),
		MaxImageBytes:    parseIntOrDefault("MAX_IMAGE_BYTES", 10*1024*1024),
		BackendBaseURL:   strings.TrimRight(getEnvOrDefault("BACKEND_BASE_URL", "http://localhost:3001"), "/"),
		DBPath:           getEnvOrDefault("SATULEMARI_DB_PATH", "satulemari.db"),
		TokenKey:         os.Getenv("SATULEMARI_TOKEN_KEY"),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxImageBytes <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_BYTES must be > 0 (got %d)", cfg.MaxImageBytes)
	}
	if cfg.AnalysisTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s)", cfg.RequestTimeout, cfg.AnalysisTimeout)
	}
	return cfg, nil
}

// AIFeatureEnabled reports whether AI image analysis may be used at all.
func (c *Config) AIFeatureEnabled() bool {
	return c.AIEnabled && c.GeminiAPIKey != ""
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationOrDefault accepts Go durations ("30s") and, for convenience,
// plain integers which are read as seconds.
func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
