// File: internal/repository/chat/interface.go
package chat

import (
	"context"

	"github.com/iyunix/go-chatline/internal/domain"
)

// ChatRepository persists chat threads. Every lookup is filtered by owner;
// a chat owned by someone else is indistinguishable from a missing one.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByIDAndOwner(ctx context.Context, chatID string, owner domain.Owner) (*domain.Chat, error)
	FindByOwnerWithPagination(ctx context.Context, owner domain.Owner, limit, offset int) ([]domain.Chat, int64, error)
	UpdateTitle(ctx context.Context, chatID string, owner domain.Owner, title string) error
	TouchUpdatedAt(ctx context.Context, chatID string) error
	Delete(ctx context.Context, chatID string, owner domain.Owner) error
	CountByOwner(ctx context.Context, owner domain.Owner) (int64, error)
}
