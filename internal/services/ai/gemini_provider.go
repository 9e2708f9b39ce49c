package ai

import (
	"context"
	"mime"
	"path"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider serves completions from the Gemini API.
type GeminiProvider struct {
	config *Config
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, config *Config) (*GeminiProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = config.BaseURL
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, NewProviderError(config.Name, "init", "failed to create gemini client", err)
	}
	return &GeminiProvider{config: config, client: client}, nil
}

func (p *GeminiProvider) Name() string { return p.config.Name }

func (p *GeminiProvider) generateConfig(system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(p.config.Temperature),
	}
	if p.config.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.config.MaxTokens)
	}
	return cfg
}

func (p *GeminiProvider) GetCompletion(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	system, contents := toGeminiContents(messages)
	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, contents, p.generateConfig(system))
	if err != nil {
		return "", NewProviderError(p.Name(), "completion", "failed to generate content", err)
	}
	return resp.Text(), nil
}

func (p *GeminiProvider) StreamCompletion(ctx context.Context, messages []Message, onDelta func(string) error) error {
	system, contents := toGeminiContents(messages)
	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.config.Model, contents, p.generateConfig(system)) {
		if err != nil {
			return NewProviderError(p.Name(), "streaming", "stream receive error", err)
		}
		if delta := resp.Text(); delta != "" {
			if cbErr := onDelta(delta); cbErr != nil {
				return cbErr
			}
		}
	}
	return ctx.Err()
}

// toGeminiContents folds system messages into the system instruction and maps
// assistant turns to the model role.
func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, genai.NewPartFromText(m.Content))
			continue
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
			continue
		}
		parts := make([]*genai.Part, 0, 2)
		if m.Content != "" {
			parts = append(parts, genai.NewPartFromText(m.Content))
		}
		if m.ImageURL != "" {
			parts = append(parts, genai.NewPartFromURI(m.ImageURL, imageMIMEType(m.ImageURL)))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	if len(systemParts) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: systemParts}, contents
}

func imageMIMEType(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(url))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
