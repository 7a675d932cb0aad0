package openai

import (
	"time"

	"github.com/joseph-ayodele/docstruct/internal/common"
)

// Config holds the OpenAI-compatible endpoint settings.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// FromCommon maps the application LLM config onto the client config,
// applying defaults for anything unset.
func FromCommon(c common.LLMConfig) Config {
	cfg := Config{
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		APIKey:      c.APIKey,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return cfg
}
