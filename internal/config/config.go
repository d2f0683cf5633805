package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	UseMemoryStore bool

	// LLM provider: "gemini" (default) or "bedrock".
	LLMProvider        string
	GeminiAPIKey       string
	GeminiModelID      string
	BedrockModelID     string
	LLMTimeout         time.Duration
	LLMMaxOutputTokens int
	LLMTemperature     float64

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Booking rules
	ConflictWindow     time.Duration
	SessionTTL         time.Duration
	MaxHistoryMessages int
	BusinessName       string
	BusinessTimezone   string

	// Booking notifications: "sendgrid", "ses" or empty (log only).
	NotifyEmailProvider string
	NotifyEmailTo       string
	EmailFromAddress    string
	EmailFromName       string
	SendGridAPIKey      string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "3000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),

		LLMProvider:        strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "gemini"))),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		LLMTimeout:         getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxOutputTokens: getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 512),
		LLMTemperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.2),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ConflictWindow:     getEnvAsDuration("CONFLICT_WINDOW", time.Hour),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		MaxHistoryMessages: getEnvAsInt("MAX_HISTORY_MESSAGES", 40),
		BusinessName:       getEnv("BUSINESS_NAME", "BarberPro"),
		BusinessTimezone:   getEnv("BUSINESS_TIMEZONE", "America/Sao_Paulo"),

		NotifyEmailProvider: strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_EMAIL_PROVIDER", ""))),
		NotifyEmailTo:       getEnv("NOTIFY_EMAIL_TO", ""),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "BarberPro"),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3001"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// Location resolves BusinessTimezone, falling back to UTC when unknown.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.BusinessTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
