package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends and providers accepted by Validate.
var (
	validBackends    = []string{"memory", "sqlite"}
	validAIProviders = []string{"none", "gemini", "openai"}
	validKardModes   = []string{"mock", "http"}
	validLogLevels   = []string{"debug", "info", "warn", "error"}
	validLogFormats  = []string{"text", "json"}
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// BlockSuspicious rejects probe-looking requests instead of only logging them.
	BlockSuspicious bool
	// TrustedProxies are CIDRs whose X-Forwarded-For headers are believed.
	TrustedProxies []string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	// Seed makes the generated demo data deterministic. Zero picks a random seed.
	Seed int64

	HomeCountry string

	// AMQP. An empty URL disables the publisher; rewards are then matched inline.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	OfferRefreshInterval time.Duration

	// AI
	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Geocoding
	GeocoderURL       string
	GeocoderUserAgent string

	// Rewards
	KardMode     string
	KardAPIURL   string
	KardAPIToken string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		BlockSuspicious:    getEnvBool("BLOCK_SUSPICIOUS", false),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/pinledger.db"),
		Seed:         getEnvInt64("SEED", 0),

		HomeCountry: strings.ToUpper(getEnv("HOME_COUNTRY", "KR")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pinledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions_created"),

		OfferRefreshInterval: getEnvDuration("OFFER_REFRESH_INTERVAL", 30*time.Minute),

		AIProvider:    strings.ToLower(getEnv("AI_PROVIDER", "")),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		GeocoderURL:       getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "pinledger/1.0"),

		KardMode:     strings.ToLower(getEnv("KARD_MODE", "mock")),
		KardAPIURL:   getEnv("KARD_API_URL", ""),
		KardAPIToken: getEnv("KARD_API_TOKEN", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.AIProvider == "" {
		cfg.AIProvider = inferAIProvider(cfg)
	}
	return cfg
}

// inferAIProvider picks the provider whose key is set, Gemini first.
func inferAIProvider(c *Config) string {
	switch {
	case c.GeminiAPIKey != "":
		return "gemini"
	case c.OpenAIAPIKey != "":
		return "openai"
	default:
		return "none"
	}
}

// AMQPEnabled reports whether transactions are handed to the worker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if len(c.HomeCountry) != 2 {
		errors = append(errors, fmt.Sprintf("invalid home country '%s': must be a two-letter country code", c.HomeCountry))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.OfferRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid offer refresh interval %v: must be at least 1 minute", c.OfferRefreshInterval))
	}

	// AI provider and its key
	switch c.AIProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "OPENAI_API_KEY is required when AI_PROVIDER is openai")
		}
		if c.OpenAIBaseURL != "" {
			if err := validateHTTPURL(c.OpenAIBaseURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid OpenAI base URL: %v", err))
			}
		}
	case "none":
	default:
		errors = append(errors, fmt.Sprintf("invalid AI provider '%s': must be one of %v", c.AIProvider, validAIProviders))
	}

	if c.GeocoderURL != "" {
		if err := validateHTTPURL(c.GeocoderURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid geocoder URL: %v", err))
		}
	}

	// Rewards provider
	if !slices.Contains(validKardModes, c.KardMode) {
		errors = append(errors, fmt.Sprintf("invalid Kard mode '%s': must be one of %v", c.KardMode, validKardModes))
	} else if c.KardMode == "http" {
		if c.KardAPIURL == "" {
			errors = append(errors, "KARD_API_URL is required when KARD_MODE is http")
		} else if err := validateHTTPURL(c.KardAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Kard API URL: %v", err))
		}
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("'%s': %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("'%s': scheme must be 'http' or 'https'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("'%s': missing host", raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
