package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Budget data
	DataBaseURL     string // published data directory served over HTTP
	DataDir         string // local copy of the data directory
	FallbackEnabled bool   // serve the embedded documents when the source fails

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL   time.Duration
	SessionTTL time.Duration

	// Presentation
	DefaultLocale string
	FirstYear     int
	LastYear      int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBaseURL:     getEnv("DATA_BASE_URL", ""),
		DataDir:         getEnv("DATA_DIR", ""),
		FallbackEnabled: getEnvBool("FALLBACK_ENABLED", true),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL:   getEnvDuration("CACHE_TTL", 5*time.Minute),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		DefaultLocale: getEnv("DEFAULT_LOCALE", "id-ID"),
		FirstYear:     getEnvInt("FIRST_YEAR", 2020),
		LastYear:      getEnvInt("LAST_YEAR", 2025),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.DataBaseURL != "" {
		if u, err := url.Parse(c.DataBaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid DATA_BASE_URL '%s': %v", c.DataBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid DATA_BASE_URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Sprintf("DATA_DIR is not a directory: %s", c.DataDir))
		}
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid HTTP timeout %v: must be positive", c.HTTPTimeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("invalid max retries %d: must not be negative", c.MaxRetries))
	}
	if c.InitialBackoff < 0 {
		errs = append(errs, fmt.Sprintf("invalid initial backoff %v: must not be negative", c.InitialBackoff))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("invalid max concurrency %d: must be at least 1", c.MaxConcurrency))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must not be negative", c.SessionTTL))
	}

	if _, err := language.Parse(c.DefaultLocale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid default locale '%s': %v", c.DefaultLocale, err))
	}

	if c.FirstYear < 1945 {
		errs = append(errs, fmt.Sprintf("invalid first year %d: must be at least 1945", c.FirstYear))
	}
	if c.LastYear < c.FirstYear {
		errs = append(errs, fmt.Sprintf("invalid last year %d: must not be before first year %d", c.LastYear, c.FirstYear))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
