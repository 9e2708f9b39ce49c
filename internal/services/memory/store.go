// Package memory retrieves and records long-term snippets about signed-in users.
package memory

import (
	"context"
	"time"
)

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Snippet is one remembered fact returned by a search.
type Snippet struct {
	ID        string
	Text      string
	Score     float32
	CreatedAt time.Time
}

// Entry is what gets written after a completed turn.
type Entry struct {
	UserID    string
	ChatID    string
	Text      string
	CreatedAt time.Time
}

// Store is a semantic search backend scoped by user id.
type Store interface {
	Name() string
	Search(ctx context.Context, userID, query string, topK int) ([]Snippet, error)
	Save(ctx context.Context, entry Entry) error
}

// NoopStore is used when long-term memory is disabled.
type NoopStore struct{}

func (NoopStore) Name() string { return "none" }

func (NoopStore) Search(context.Context, string, string, int) ([]Snippet, error) { return nil, nil }

func (NoopStore) Save(context.Context, Entry) error { return nil }
