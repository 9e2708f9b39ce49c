package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/iyunix/go-chatline/internal/services/ai"
	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// vectorIndex is the slice of *pinecone.IndexConnection the store needs.
type vectorIndex interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
}

type PineconeConfig struct {
	APIKey     string
	IndexHost  string
	Namespace  string
	MaxRetries uint
}

func (c PineconeConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("pinecone API key is required")
	}
	if c.IndexHost == "" {
		return errors.New("pinecone index host is required")
	}
	return nil
}

// PineconeStore keeps one vector per remembered exchange, tagged with the
// owning user id so searches never cross users.
type PineconeStore struct {
	index      vectorIndex
	embedder   ai.EmbeddingProvider
	logger     Logger
	maxRetries uint
}

func NewPineconeStore(cfg PineconeConfig, embedder ai.EmbeddingProvider, logger Logger) (*PineconeStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, errors.New("pinecone store needs an embedding provider")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	idx, err := pc.Index(pinecone.NewIndexConnParams{Host: cfg.IndexHost, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}

	logger.Info("Pinecone memory store initialized", "host", cfg.IndexHost, "namespace", cfg.Namespace)
	return newPineconeStore(idx, embedder, logger, cfg.MaxRetries), nil
}

func newPineconeStore(idx vectorIndex, embedder ai.EmbeddingProvider, logger Logger, maxRetries uint) *PineconeStore {
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &PineconeStore{index: idx, embedder: embedder, logger: logger, maxRetries: maxRetries}
}

func (s *PineconeStore) Name() string { return "pinecone" }

func (s *PineconeStore) Search(ctx context.Context, userID, query string, topK int) ([]Snippet, error) {
	vec, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter, err := structpb.NewStruct(map[string]interface{}{
		"user_id": map[string]interface{}{"$eq": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("build metadata filter: %w", err)
	}

	res, err := s.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vec,
		TopK:            uint32(topK),
		MetadataFilter:  filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	snippets := make([]Snippet, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil || m.Vector.Metadata == nil {
			continue
		}
		fields := m.Vector.Metadata.GetFields()
		text := fields["text"].GetStringValue()
		if text == "" {
			continue
		}
		snip := Snippet{ID: m.Vector.Id, Text: text, Score: m.Score}
		if ts, err := time.Parse(time.RFC3339, fields["created_at"].GetStringValue()); err == nil {
			snip.CreatedAt = ts
		}
		snippets = append(snippets, snip)
	}
	return snippets, nil
}

func (s *PineconeStore) Save(ctx context.Context, entry Entry) error {
	vec, err := s.embedder.CreateEmbedding(ctx, entry.Text)
	if err != nil {
		return fmt.Errorf("embed entry: %w", err)
	}

	meta, err := structpb.NewStruct(map[string]interface{}{
		"user_id":    entry.UserID,
		"chat_id":    entry.ChatID,
		"text":       entry.Text,
		"created_at": entry.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("build metadata: %w", err)
	}

	vector := &pinecone.Vector{Id: uuid.NewString(), Values: &vec, Metadata: meta}
	_, err = backoff.Retry(ctx, func() (uint32, error) {
		return s.index.UpsertVectors(ctx, []*pinecone.Vector{vector})
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("pinecone upsert failed, retrying", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}
