// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to OpenAI or any OpenAI-compatible endpoint
// (OpenRouter, Azure proxies, local gateways) depending on BaseURL.
type OpenAIProvider struct {
	config *Config
	client *openai.Client
}

func NewOpenAIProvider(config *Config) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.config.Name }

func (p *OpenAIProvider) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		Stream:      stream,
	}
}

func (p *OpenAIProvider) GetCompletion(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.request(messages, false))
	if err != nil {
		return "", NewProviderError(p.Name(), "completion", "failed to create completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", &AIError{
			Type:      ErrTypeProvider,
			Provider:  p.Name(),
			Operation: "completion",
			Message:   "completion response has no choices",
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamCompletion is bounded by ctx only; a long answer may outlive the batch timeout.
func (p *OpenAIProvider) StreamCompletion(ctx context.Context, messages []Message, onDelta func(string) error) error {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.request(messages, true))
	if err != nil {
		return NewProviderError(p.Name(), "streaming", "failed to create stream", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return NewProviderError(p.Name(), "streaming", "stream receive error", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			if cbErr := onDelta(delta); cbErr != nil {
				return cbErr
			}
		}
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m.ImageURL == "" {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := make([]openai.ChatMessagePart, 0, 2)
		if m.Content != "" {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: m.Content})
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    m.ImageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, MultiContent: parts})
	}
	return out
}

// OpenAIEmbedder creates embeddings for long-term memory.
type OpenAIEmbedder struct {
	model  string
	client *openai.Client
}

func NewOpenAIEmbedder(config EmbeddingConfig) (*OpenAIEmbedder, error) {
	if config.APIKey == "" {
		return nil, NewConfigError("embedding API key is required")
	}
	if config.Model == "" {
		return nil, NewConfigError("embedding model is required")
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIEmbedder{model: config.Model, client: openai.NewClientWithConfig(clientConfig)}, nil
}

func (e *OpenAIEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, NewProviderError("embedding", "embedding", "failed to create embedding", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &AIError{Type: ErrTypeProvider, Provider: "embedding", Operation: "embedding", Message: "empty embedding response"}
	}
	return resp.Data[0].Embedding, nil
}
