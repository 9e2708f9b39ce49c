package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	searchTopK    = 5
	maxSnippets   = 2
	searchTimeout = 10 * time.Second
	saveTimeout   = 10 * time.Second
)

// Augmenter wraps a Store with the relevance gate and the failure policy:
// memory never blocks a turn.
type Augmenter struct {
	store  Store
	logger Logger
}

func NewAugmenter(store Store, logger Logger) *Augmenter {
	if store == nil {
		store = NoopStore{}
	}
	return &Augmenter{store: store, logger: logger}
}

// Augment returns at most two snippets relevant to text. Guests (empty
// userID) always get nothing. Search errors are logged and yield nothing.
func (a *Augmenter) Augment(ctx context.Context, userID, text string, hasAttachment bool) []Snippet {
	if userID == "" || !ShouldSearch(text, hasAttachment) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	candidates, err := a.store.Search(ctx, userID, text, searchTopK)
	if err != nil {
		a.logger.Warn("memory search failed; continuing without context", "store", a.store.Name(), "user_id", userID, "error", err)
		return nil
	}
	kept := FilterRelevant(text, candidates, maxSnippets)
	a.logger.Debug("memory search", "store", a.store.Name(), "candidates", len(candidates), "kept", len(kept))
	return kept
}

// Remember stores the finished exchange. Failures are logged: the chat store
// already holds the messages, so the two stores may drift.
func (a *Augmenter) Remember(ctx context.Context, userID, chatID, userText, assistantText string) {
	if userID == "" || strings.TrimSpace(assistantText) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	entry := Entry{
		UserID:    userID,
		ChatID:    chatID,
		Text:      fmt.Sprintf("User: %s\nAssistant: %s", strings.TrimSpace(userText), strings.TrimSpace(assistantText)),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.Save(ctx, entry); err != nil {
		a.logger.Error("memory save failed; chat and memory are out of sync for this turn",
			"store", a.store.Name(), "user_id", userID, "chat_id", chatID, "error", err)
		return
	}
	a.logger.Debug("memory saved", "store", a.store.Name(), "chat_id", chatID)
}
