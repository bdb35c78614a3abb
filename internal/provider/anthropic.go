// Package provider builds the Anthropic client used by the conversation loop.
package provider

import (
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = anthropic.ModelClaudeSonnet4_20250514

// ContextManagementBeta is sent with every request so the built-in memory tool is available.
const ContextManagementBeta = anthropic.AnthropicBetaContextManagement2025_06_27

// Config controls client construction. Zero values fall back to the SDK defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewAnthropicClient returns a client. Without an explicit APIKey the SDK reads ANTHROPIC_API_KEY.
// Transient upstream failures are retried by the SDK with exponential backoff.
func NewAnthropicClient(cfg Config) *anthropic.Client {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	c := anthropic.NewClient(opts...)
	return &c
}
