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
	AnthropicAPIKey  string
	AnthropicBaseURL string
	Model            string
	ModelMaxRetries  int
	ModelTimeout     time.Duration
	InputBudget      int

	DBPath    string
	Port      string
	AgentID   string
	LogLevel  string
	LogPretty bool

	// ScheduleFile is an optional YAML file overriding task schedules.
	ScheduleFile string
	Schedules    map[string]TaskSchedule
}

// Load reads configuration from environment variables, plus the schedule file when set.
// Callers load any .env file first.
func Load() (*Config, error) {
	cfg := &Config{
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		Model:            getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		ModelMaxRetries:  getEnvInt("MODEL_MAX_RETRIES", 3),
		ModelTimeout:     getEnvDuration("MODEL_TIMEOUT", 60*time.Second),
		InputBudget:      getEnvInt("INPUT_BUDGET", 100_000),
		DBPath:           getEnv("DB_PATH", "./data/assistant.db"),
		Port:             getEnv("PORT", "8080"),
		AgentID:          getEnv("AGENT_ID", "assistant"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvBool("LOG_PRETTY", false),
		ScheduleFile:     getEnv("SCHEDULE_FILE", ""),
	}

	if cfg.ScheduleFile != "" {
		schedules, err := LoadSchedules(cfg.ScheduleFile)
		if err != nil {
			return nil, err
		}
		cfg.Schedules = schedules
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.Model == "" {
		return fmt.Errorf("ANTHROPIC_MODEL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.AgentID == "" {
		return fmt.Errorf("AGENT_ID cannot be empty")
	}
	if c.ModelMaxRetries < 0 {
		return fmt.Errorf("MODEL_MAX_RETRIES must be >= 0")
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be > 0")
	}
	return nil
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
