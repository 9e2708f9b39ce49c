// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Append stores the message at the end of its chat and bumps the chat's
// updated_at in the same transaction.
func (r *gormMessageRepository) Append(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateMessageInput(message); err != nil {
		log.Printf("[MessageRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		if err := tx.Model(&domain.Message{}).
			Where("chat_id = ?", message.ChatID).
			Select("COALESCE(MAX(position), -1) + 1").
			Scan(&next).Error; err != nil {
			return err
		}
		message.Position = next

		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Chat{}).
			Where("id = ?", message.ChatID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		// content is user data; keep it out of the log
		log.Printf("[MessageRepository] Database error appending message to chat ID %s: %v", message.ChatID, err)
		return nil, errors.New("database error creating message")
	}

	log.Printf("[MessageRepository] Message %s appended to chat %s at position %d", message.ID, message.ChatID, message.Position)
	return message, nil
}

// FindByChatID loads the whole chat in position order.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	messages := []domain.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("position asc, created_at asc").
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error finding messages for chat ID %s: %v", chatID, err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) FindByChatIDWithPagination(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, int64, error) {
	if chatID == "" {
		return nil, 0, errors.New("invalid chat ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		log.Printf("[MessageRepository] Database error counting messages for chat ID %s: %v", chatID, err)
		return nil, 0, errors.New("database error counting messages")
	}

	messages := []domain.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("position asc, created_at asc").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error in paginated query for chat ID %s: %v", chatID, err)
		return nil, 0, errors.New("database error retrieving paginated messages")
	}
	return messages, total, nil
}

func (r *gormMessageRepository) FindByPosition(ctx context.Context, chatID string, position int) (*domain.Message, error) {
	if chatID == "" || position < 0 {
		return nil, ErrMessageNotFound
	}

	var message domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND position = ?", chatID, position).
		First(&message).Error
	return r.handleFindError(err, &message, "FindByPosition")
}

// UpdateContent overwrites a message's text in place.
func (r *gormMessageRepository) UpdateContent(ctx context.Context, messageID, chatID, content string) error {
	content = strings.TrimSpace(content)
	if messageID == "" || chatID == "" {
		return errors.New("invalid message ID or chat ID")
	}
	if content == "" {
		return errors.New("validation failed: content cannot be empty")
	}

	return repository.RetryUpdate(ctx, "UpdateContent", func(ctx context.Context) error {
		result := r.db.WithContext(ctx).
			Model(&domain.Message{}).
			Where("id = ? AND chat_id = ?", messageID, chatID).
			Update("content", content)
		if result.Error != nil {
			log.Printf("[MessageRepository] Database error updating message ID %s: %v", messageID, result.Error)
			return errors.New("database error updating message")
		}
		if result.RowsAffected == 0 {
			return ErrMessageNotFound
		}
		return nil
	}, ErrMessageNotFound)
}

// DeleteAfterPosition removes every message strictly after position.
// Deleting an already-truncated tail is a no-op, so the call is retried.
func (r *gormMessageRepository) DeleteAfterPosition(ctx context.Context, chatID string, position int) (int64, error) {
	if chatID == "" {
		return 0, errors.New("invalid chat ID")
	}

	var deleted int64
	err := repository.RetryUpdate(ctx, "DeleteAfterPosition", func(ctx context.Context) error {
		result := r.db.WithContext(ctx).
			Where("chat_id = ? AND position > ?", chatID, position).
			Delete(&domain.Message{})
		if result.Error != nil {
			log.Printf("[MessageRepository] Database error truncating chat ID %s after %d: %v", chatID, position, result.Error)
			return errors.New("database error truncating messages")
		}
		deleted += result.RowsAffected
		return nil
	})
	if err != nil {
		return deleted, err
	}

	log.Printf("[MessageRepository] Truncated %d messages from chat %s after position %d", deleted, chatID, position)
	return deleted, nil
}

func (r *gormMessageRepository) CountByChatID(ctx context.Context, chatID string) (int64, error) {
	if chatID == "" {
		return 0, errors.New("invalid chat ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&count).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error counting messages for chat ID %s: %v", chatID, err)
		return 0, errors.New("database error counting messages")
	}
	return count, nil
}

// CountGuestUserMessages counts the user-role messages a guest has sent,
// excluding anything that carries a user id.
func (r *gormMessageRepository) CountGuestUserMessages(ctx context.Context, guestID string) (int64, error) {
	if guestID == "" {
		return 0, errors.New("invalid guest ID")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Scopes(repository.OwnerScope(domain.GuestOwner(guestID))).
		Where("role = ?", domain.RoleUser).
		Count(&count).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error counting guest messages: %v", err)
		return 0, errors.New("database error counting guest messages")
	}
	return count, nil
}

func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ChatID == "" {
		return errors.New("chat ID is required")
	}
	if !message.Owner().Valid() {
		return errors.New("message must have exactly one owner")
	}
	return message.Validate()
}

func (r *gormMessageRepository) handleFindError(err error, message *domain.Message, operation string) (*domain.Message, error) {
	if err == nil {
		return message, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	log.Printf("[MessageRepository] Database error in %s: %v", operation, err)
	return nil, fmt.Errorf("database error in %s", operation)
}
