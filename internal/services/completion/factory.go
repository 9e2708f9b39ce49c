package completion

import (
	"context"
	"time"

	"github.com/iyunix/go-chatline/internal/config"
	"github.com/iyunix/go-chatline/internal/services/ai"
)

const providerTimeout = 120 * time.Second

// NewFromConfig builds the engine from environment configuration. Providers
// without credentials are left out; that is not an error.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger Logger) (*Engine, error) {
	var primary, fallback ai.CompletionProvider

	base := func(name, key, url, model string) *ai.Config {
		c := ai.DefaultConfig()
		c.Name = name
		c.APIKey = key
		c.BaseURL = url
		c.Model = model
		c.Timeout = providerTimeout
		c.MaxTokens = cfg.MaxTokens
		c.Temperature = cfg.Temperature
		return c
	}

	switch cfg.PrimaryProvider {
	case "gemini":
		if pc := base("gemini", cfg.GeminiAPIKey, "", cfg.ChatModel); pc.Configured() {
			p, err := ai.NewGeminiProvider(ctx, pc)
			if err != nil {
				return nil, err
			}
			primary = p
		}
	default:
		if pc := base("openai", cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel); pc.Configured() {
			p, err := ai.NewOpenAIProvider(pc)
			if err != nil {
				return nil, err
			}
			primary = p
		}
	}

	if fc := base("fallback", cfg.FallbackAPIKey, cfg.FallbackBaseURL, cfg.FallbackChatModel); fc.Configured() {
		p, err := ai.NewOpenAIProvider(fc)
		if err != nil {
			return nil, err
		}
		fallback = p
	}

	if primary == nil && fallback == nil {
		logger.Warn("no LLM provider configured; chat turns will fail with LLM_NOT_CONFIGURED")
	}
	return NewEngine(primary, fallback, logger), nil
}
