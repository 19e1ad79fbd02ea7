package config

import (
	"os"
	"strconv"
	"time"
)

// SMTPConfig holds the outbound mail settings for the email gateway.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// MessagingConfig holds the HTTP messaging provider settings used for
// SMS and letter dispatch.
type MessagingConfig struct {
	BaseURL string
	APIKey  string
}

// ProcessorConfig controls the scheduled reminder processor.
type ProcessorConfig struct {
	PollInterval   time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	LockTTL        time.Duration
}

// SendWindowConfig is the per-channel sending window. Hours are in the
// server's local time; a zero Start/End pair means no hour restriction.
type SendWindowConfig struct {
	StartHour int
	EndHour   int
}

// Config is the explicit application configuration. It is built once at
// startup and threaded into constructors; nothing reads the environment
// after Load returns.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string

	OrganizationName  string
	OrganizationPhone string
	PublicBaseURL     string

	SMTP      SMTPConfig
	Messaging MessagingConfig
	Processor ProcessorConfig

	SMSWindow           SendWindowConfig
	EmailResendInterval time.Duration
}

// Load builds a Config from environment variables, applying defaults
// for everything optional. Callers load .env beforehand (godotenv).
func Load() Config {
	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		Port:        envOr("PORT", "8080"),

		OrganizationName:  envOr("ORGANIZATION_NAME", "Association"),
		OrganizationPhone: os.Getenv("ORGANIZATION_PHONE"),
		PublicBaseURL:     envOr("PUBLIC_BASE_URL", "http://localhost:8080"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		Messaging: MessagingConfig{
			BaseURL: envOr("MESSAGING_BASE_URL", "http://messaging:3000"),
			APIKey:  os.Getenv("MESSAGING_API_KEY"),
		},
		Processor: ProcessorConfig{
			PollInterval:   envDurationOr("PROCESSOR_POLL_INTERVAL", 10*time.Minute),
			MaxRetries:     envIntOr("PROCESSOR_MAX_RETRIES", 3),
			InitialBackoff: envDurationOr("PROCESSOR_INITIAL_BACKOFF", time.Second),
			LockTTL:        envDurationOr("PROCESSOR_LOCK_TTL", 5*time.Minute),
		},

		SMSWindow: SendWindowConfig{
			StartHour: envIntOr("SMS_WINDOW_START_HOUR", 8),
			EndHour:   envIntOr("SMS_WINDOW_END_HOUR", 20),
		},
		EmailResendInterval: envDurationOr("EMAIL_RESEND_INTERVAL", 24*time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
