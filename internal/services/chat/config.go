package chat

import (
	"errors"
	"time"
)

const DefaultSystemPrompt = `You are a helpful assistant.
The user's latest message is what you must answer; earlier turns are background.
Messages marked as previous context come from long-term memory and may be unrelated: use them only when they clearly help with the latest message and ignore them otherwise.
When the latest message carries an image or file, focus your answer on it.
Never bring up earlier, unrelated conversations on your own.`

type Config struct {
	SystemPrompt string

	// Detached saves run after the request context may be gone.
	SaveTimeout   time.Duration
	NotifyTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		SystemPrompt:  DefaultSystemPrompt,
		SaveTimeout:   5 * time.Second,
		NotifyTimeout: 2 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.SystemPrompt == "" {
		return errors.New("system prompt is required")
	}
	if c.SaveTimeout <= 0 {
		return errors.New("save timeout must be positive")
	}
	if c.NotifyTimeout <= 0 {
		return errors.New("notify timeout must be positive")
	}
	return nil
}
