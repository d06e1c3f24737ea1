// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	OutputDir   string
	// WorksheetLink is the shared folder link emailed after a worksheet is
	// generated (e.g. a OneDrive share URL). Empty disables mail delivery.
	WorksheetLink string

	History    HistoryConfig
	Completion CompletionConfig
	Lookup     LookupConfig
	Mail       MailConfig
	Transcript TranscriptConfig
}

// HistoryConfig controls session history persistence.
type HistoryConfig struct {
	Backend   string // "file", "redis" or "memory"
	Dir       string // file backend: one JSON file per session id
	RedisAddr string
}

// CompletionConfig controls the OpenAI-compatible completion client.
type CompletionConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// LookupConfig controls the live-scores lookup used in assistant mode.
type LookupConfig struct {
	Enabled bool
	BaseURL string
}

// MailConfig controls worksheet-link email delivery.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// TranscriptConfig controls NDJSON conversation transcripts.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/worksheets.db"),
		OutputDir:     getEnv("OUTPUT_DIR", "./data/worksheets"),
		WorksheetLink: getEnv("WORKSHEET_LINK", ""),
		History: HistoryConfig{
			Backend:   getEnv("HISTORY_BACKEND", "file"),
			Dir:       getEnv("HISTORY_DIR", "./data/history"),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Completion: CompletionConfig{
			BaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			Model:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:    time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
			MaxRetries: getEnvInt("OPENAI_MAX_RETRIES", 3),
		},
		Lookup: LookupConfig{
			Enabled: getEnvBool("SCORES_LOOKUP_ENABLED", false),
			BaseURL: getEnv("SCORES_LOOKUP_URL", "https://api.duckduckgo.com"),
		},
		Mail: MailConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvInt("SMTP_PORT", 465),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", ""),
			Recipients: splitList(getEnv("MAIL_RECIPIENTS", "")),
		},
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_DIR", "./data/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR cannot be empty")
	}
	switch c.History.Backend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("HISTORY_BACKEND must be file, redis or memory, got %q", c.History.Backend)
	}
	if c.History.Backend == "file" && c.History.Dir == "" {
		return fmt.Errorf("HISTORY_DIR cannot be empty with the file backend")
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_DIR cannot be empty when transcripts are enabled")
	}
	if c.MailEnabled() && c.Mail.From == "" {
		return fmt.Errorf("SMTP_FROM cannot be empty when SMTP_HOST is set")
	}
	return nil
}

// MailEnabled returns true if SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.Mail.Host != "" && len(c.Mail.Recipients) > 0
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
