// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/go-chatline/internal/domain"
)

// MessageRepository persists chat messages. Positions are 0-based and
// contiguous within a chat; they form the chat's ordered message list.
type MessageRepository interface {
	Append(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)
	FindByChatIDWithPagination(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, int64, error)
	FindByPosition(ctx context.Context, chatID string, position int) (*domain.Message, error)
	UpdateContent(ctx context.Context, messageID, chatID, content string) error
	DeleteAfterPosition(ctx context.Context, chatID string, position int) (int64, error)
	CountByChatID(ctx context.Context, chatID string) (int64, error)
	CountGuestUserMessages(ctx context.Context, guestID string) (int64, error)
}
