package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is built once at startup and
// passed by pointer into constructors; nothing mutates it afterwards.
type Config struct {
	Port         string
	Env          string
	LogLevel     string
	LogFormat    string
	MaxBodyBytes int64

	// Poli Digital downstream
	PoliMode            string
	PoliAPIToken        string
	PoliBaseURL         string
	PoliUserID          string
	PoliTemplateID      string
	DefaultOperatorName string
	DownstreamTimeout   time.Duration
	PoliRequestTimeout  time.Duration
	PoliMaxRetries      int
	PoliRetryBackoff    time.Duration
	PoliRateLimit       float64

	// Contact id cache (optional)
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	ContactCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		Env:          getEnv("ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "json"))),
		MaxBodyBytes: int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),

		PoliMode:            strings.ToLower(strings.TrimSpace(getEnv("POLI_MODE", "simulate"))),
		PoliAPIToken:        getEnv("POLI_API_TOKEN", ""),
		PoliBaseURL:         getEnv("POLI_BASE_URL", "https://cs.poli.digital/api-cliente"),
		PoliUserID:          getEnv("USER_ID", ""),
		PoliTemplateID:      getEnv("POLI_TEMPLATE_ID", "abordagem2"),
		DefaultOperatorName: getEnv("DEFAULT_OPERATOR_NAME", "nosso time"),
		DownstreamTimeout:   getEnvAsDuration("DOWNSTREAM_TIMEOUT", 15*time.Second),
		PoliRequestTimeout:  getEnvAsDuration("POLI_REQUEST_TIMEOUT", 10*time.Second),
		PoliMaxRetries:      getEnvAsInt("POLI_MAX_RETRIES", 1),
		PoliRetryBackoff:    getEnvAsDuration("POLI_RETRY_BACKOFF", 250*time.Millisecond),
		PoliRateLimit:       getEnvAsFloat("POLI_RATE_LIMIT", 0),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		ContactCacheTTL: getEnvAsDuration("POLI_CONTACT_CACHE_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a non-negative float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil && value >= 0 {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
