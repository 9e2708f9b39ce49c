// G:\go_chatline\internal\services\ai\interface.go
package ai

import "context"

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prompt entry. ImageURL turns the entry into multimodal
// input (text plus image) on providers that support it.
type Message struct {
	Role     string
	Content  string
	ImageURL string
}

// CompletionProvider produces chat completions from an ordered message list.
type CompletionProvider interface {
	Name() string
	GetCompletion(ctx context.Context, messages []Message) (string, error)
	// StreamCompletion calls onDelta for every text fragment in delivery order.
	// An error returned by onDelta stops the stream and is returned as is.
	StreamCompletion(ctx context.Context, messages []Message, onDelta func(string) error) error
}

// EmbeddingProvider handles text embeddings
type EmbeddingProvider interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}
