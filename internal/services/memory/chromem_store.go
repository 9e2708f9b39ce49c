package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iyunix/go-chatline/internal/services/ai"
	"github.com/philippgille/chromem-go"
)

const chromemCollection = "chat-memory"

// ChromemStore is an embedded vector store, persisted to disk when a path is
// given and kept in memory otherwise.
type ChromemStore struct {
	collection *chromem.Collection
	logger     Logger
}

func NewChromemStore(path string, embedder ai.EmbeddingProvider, logger Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, errors.New("chromem store needs an embedding provider")
	}

	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db at %s: %w", path, err)
		}
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.CreateEmbedding(ctx, text)
	}
	col, err := db.GetOrCreateCollection(chromemCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem collection: %w", err)
	}

	logger.Info("Chromem memory store initialized", "path", path, "documents", col.Count())
	return &ChromemStore{collection: col, logger: logger}, nil
}

func (s *ChromemStore) Name() string { return "chromem" }

func (s *ChromemStore) Search(ctx context.Context, userID, query string, topK int) ([]Snippet, error) {
	// chromem rejects nResults above the collection size, filter or not.
	n := topK
	if count := s.collection.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, query, n, map[string]string{"user_id": userID}, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		snip := Snippet{ID: r.ID, Text: r.Content, Score: r.Similarity}
		if ts, err := time.Parse(time.RFC3339, r.Metadata["created_at"]); err == nil {
			snip.CreatedAt = ts
		}
		snippets = append(snippets, snip)
	}
	return snippets, nil
}

func (s *ChromemStore) Save(ctx context.Context, entry Entry) error {
	doc := chromem.Document{
		ID:      uuid.NewString(),
		Content: entry.Text,
		Metadata: map[string]string{
			"user_id":    entry.UserID,
			"chat_id":    entry.ChatID,
			"created_at": entry.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}
	return nil
}
