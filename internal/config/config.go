package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Voice-agent provider API
	VoiceAPIURL        string
	VoiceAPIKey        string
	VoiceOrgID         string
	VoiceFetchLimit    int
	VoiceClientTimeout time.Duration

	// Tenant resolution for single-tenant/demo deployments. When a webhook
	// carries no agent id, this business receives the event. Empty means
	// agent-id routing only.
	DefaultBusinessID string

	// DirectoryCacheTTL bounds staleness of the agent->business cache.
	DirectoryCacheTTL time.Duration

	CORSAllowedOrigins []string

	// Webhook endpoint protection. A rate of zero disables limiting.
	WebhookRateLimit float64
	WebhookBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		VoiceAPIURL:        getEnv("VOICE_API_URL", ""),
		VoiceAPIKey:        getEnv("VOICE_API_KEY", ""),
		VoiceOrgID:         getEnv("VOICE_ORG_ID", ""),
		VoiceFetchLimit:    getEnvAsInt("VOICE_FETCH_LIMIT", 50),
		VoiceClientTimeout: getEnvAsDuration("VOICE_CLIENT_TIMEOUT", 15*time.Second),

		DefaultBusinessID: getEnv("DEFAULT_BUSINESS_ID", ""),
		DirectoryCacheTTL: getEnvAsDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),

		WebhookRateLimit: getEnvAsFloat("WEBHOOK_RATE_LIMIT", 10),
		WebhookBurst:     getEnvAsInt("WEBHOOK_BURST", 20),
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

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
