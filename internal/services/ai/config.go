// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

// Config describes one completion endpoint. Model parameters are fixed
// server-side configuration, never taken from callers.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string

	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Configured reports whether the endpoint has credentials at all.
func (c *Config) Configured() bool {
	return c != nil && c.APIKey != ""
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%s: API key is required", c.Name)
	}
	if c.Model == "" {
		return fmt.Errorf("%s: model is required", c.Name)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s: timeout must be positive", c.Name)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%s: max tokens cannot be negative", c.Name)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     2 * time.Minute,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// EmbeddingConfig describes the embeddings endpoint used by long-term memory.
type EmbeddingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}
