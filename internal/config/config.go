package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN     string
	JWTSecret string

	LogLevel string

	RateLimitRPM int
	SessionDays  int

	InviteWebhookURL string
	WebhookTimeoutMS int

	InviteRetentionDays int
	AuditRetentionDays  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("TH_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("TH_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("TH_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("TH_HTTP_ADDR", ":5001")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TH_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("TH_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("TH_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("TH_DB_DSN is required")
	}

	cfg.JWTSecret = os.Getenv("TH_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("TH_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("TH_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("TH_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("TH_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.RateLimitRPM, err = getEnvIntOrDefault("TH_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM <= 0 {
		return nil, fmt.Errorf("TH_RATE_LIMIT_RPM must be positive (got: %d)", cfg.RateLimitRPM)
	}

	cfg.SessionDays, err = getEnvIntOrDefault("TH_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if cfg.SessionDays < 1 {
		return nil, fmt.Errorf("TH_SESSION_DAYS must be at least 1 (got: %d)", cfg.SessionDays)
	}

	cfg.InviteWebhookURL = strings.TrimSpace(os.Getenv("TH_INVITE_WEBHOOK_URL"))
	if cfg.InviteWebhookURL != "" && !strings.HasPrefix(cfg.InviteWebhookURL, "https://") {
		return nil, fmt.Errorf("TH_INVITE_WEBHOOK_URL must be an https URL")
	}

	cfg.WebhookTimeoutMS, err = getEnvIntOrDefault("TH_WEBHOOK_TIMEOUT_MS", 2000)
	if err != nil {
		return nil, err
	}
	if cfg.WebhookTimeoutMS <= 0 || cfg.WebhookTimeoutMS > 30000 {
		return nil, fmt.Errorf("TH_WEBHOOK_TIMEOUT_MS must be between 1 and 30000 (got: %d)", cfg.WebhookTimeoutMS)
	}

	cfg.InviteRetentionDays, err = getEnvIntOrDefault("TH_INVITE_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	if cfg.InviteRetentionDays < 1 {
		return nil, fmt.Errorf("TH_INVITE_RETENTION_DAYS must be at least 1 (got: %d)", cfg.InviteRetentionDays)
	}

	cfg.AuditRetentionDays, err = getEnvIntOrDefault("TH_AUDIT_RETENTION_DAYS", 180)
	if err != nil {
		return nil, err
	}
	if cfg.AuditRetentionDays < 1 {
		return nil, fmt.Errorf("TH_AUDIT_RETENTION_DAYS must be at least 1 (got: %d)", cfg.AuditRetentionDays)
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	webhook := ""
	if c.InviteWebhookURL != "" {
		webhook = "[REDACTED]"
	}

	return map[string]string{
		"TH_ENV":                   c.Env,
		"TH_HTTP_ADDR":             c.HTTPAddr,
		"TH_BASE_URL":              c.BaseURL,
		"TH_DB_DSN":                redactDSN(c.DBDSN),
		"TH_JWT_SECRET":            "[REDACTED]",
		"TH_LOG_LEVEL":             c.LogLevel,
		"TH_RATE_LIMIT_RPM":        strconv.Itoa(c.RateLimitRPM),
		"TH_SESSION_DAYS":          strconv.Itoa(c.SessionDays),
		"TH_INVITE_WEBHOOK_URL":    webhook,
		"TH_WEBHOOK_TIMEOUT_MS":    strconv.Itoa(c.WebhookTimeoutMS),
		"TH_INVITE_RETENTION_DAYS": strconv.Itoa(c.InviteRetentionDays),
		"TH_AUDIT_RETENTION_DAYS":  strconv.Itoa(c.AuditRetentionDays),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
