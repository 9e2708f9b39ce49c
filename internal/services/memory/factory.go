package memory

import (
	"fmt"

	"github.com/iyunix/go-chatline/internal/config"
	"github.com/iyunix/go-chatline/internal/services/ai"
)

// NewFromConfig builds the store selected by MEMORY_PROVIDER.
func NewFromConfig(cfg *config.Config, logger Logger) (Store, error) {
	if cfg.MemoryProvider == "" || cfg.MemoryProvider == "none" {
		logger.Info("Long-term memory disabled")
		return NoopStore{}, nil
	}

	embedKey := cfg.EmbeddingAPIKey
	if embedKey == "" {
		embedKey = cfg.OpenAIAPIKey
	}
	embedder, err := ai.NewOpenAIEmbedder(ai.EmbeddingConfig{
		APIKey:  embedKey,
		BaseURL: cfg.EmbeddingBaseURL,
		Model:   cfg.EmbeddingModelName,
	})
	if err != nil {
		return nil, fmt.Errorf("memory embedder: %w", err)
	}

	switch cfg.MemoryProvider {
	case "chromem":
		return NewChromemStore(cfg.ChromemPath, embedder, logger)
	case "pinecone":
		return NewPineconeStore(PineconeConfig{
			APIKey:    cfg.PineconeAPIKey,
			IndexHost: cfg.PineconeIndexHost,
			Namespace: cfg.PineconeNamespace,
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported memory provider %q", cfg.MemoryProvider)
	}
}
