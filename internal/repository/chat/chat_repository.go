// File: internal/repository/chat/chat_repository.go
package chat

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

var ErrChatNotFound = errors.New("chat not found")

type gormChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

// Create validates ownership and inserts the chat. The id is generated on insert.
func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	if err := r.validateChatInput(chat); err != nil {
		log.Printf("[ChatRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		log.Printf("[ChatRepository] Database error during chat creation for %s: %v", chat.Owner(), err)
		return nil, errors.New("database error creating chat")
	}

	log.Printf("[ChatRepository] Chat created with ID: %s for %s", chat.ID, chat.Owner())
	return chat, nil
}

func (r *gormChatRepository) FindByIDAndOwner(ctx context.Context, chatID string, owner domain.Owner) (*domain.Chat, error) {
	if chatID == "" || !owner.Valid() {
		return nil, ErrChatNotFound
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Scopes(repository.OwnerScope(owner)).
		Where("id = ?", chatID).
		First(&chat).Error
	return r.handleFindError(err, &chat, "FindByIDAndOwner")
}

// FindByOwnerWithPagination returns one page of the owner's chats, most recently updated first.
func (r *gormChatRepository) FindByOwnerWithPagination(ctx context.Context, owner domain.Owner, limit, offset int) ([]domain.Chat, int64, error) {
	if !owner.Valid() {
		return nil, 0, errors.New("invalid owner")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Chat{}).Scopes(repository.OwnerScope(owner)).Count(&total).Error; err != nil {
		log.Printf("[ChatRepository] Database error counting chats for %s: %v", owner, err)
		return nil, 0, errors.New("database error counting chats")
	}

	chats := []domain.Chat{}
	err := r.db.WithContext(ctx).
		Scopes(repository.OwnerScope(owner)).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error
	if err != nil {
		log.Printf("[ChatRepository] Database error in paginated query for %s: %v", owner, err)
		return nil, 0, errors.New("database error retrieving paginated chats")
	}

	return chats, total, nil
}

func (r *gormChatRepository) UpdateTitle(ctx context.Context, chatID string, owner domain.Owner, title string) error {
	title = strings.TrimSpace(title)
	if title == "" || len([]rune(title)) > domain.MaxTitleLength {
		return fmt.Errorf("validation failed: title must be 1-%d characters", domain.MaxTitleLength)
	}
	if chatID == "" || !owner.Valid() {
		return ErrChatNotFound
	}

	return repository.RetryUpdate(ctx, "UpdateTitle", func(ctx context.Context) error {
		result := r.db.WithContext(ctx).
			Model(&domain.Chat{}).
			Scopes(repository.OwnerScope(owner)).
			Where("id = ?", chatID).
			Updates(map[string]interface{}{"title": title, "updated_at": time.Now()})
		if result.Error != nil {
			log.Printf("[ChatRepository] Database error renaming chat ID %s: %v", chatID, result.Error)
			return errors.New("database error renaming chat")
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return nil
	}, ErrChatNotFound)
}

// TouchUpdatedAt bumps the chat's last-updated timestamp.
func (r *gormChatRepository) TouchUpdatedAt(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	return repository.RetryUpdate(ctx, "TouchUpdatedAt", func(ctx context.Context) error {
		result := r.db.WithContext(ctx).
			Model(&domain.Chat{}).
			Where("id = ?", chatID).
			Update("updated_at", time.Now())
		if result.Error != nil {
			log.Printf("[ChatRepository] Database error updating timestamp for chat ID %s: %v", chatID, result.Error)
			return errors.New("database error updating chat timestamp")
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return nil
	}, ErrChatNotFound)
}

// Delete removes the chat and all of its messages in one transaction.
func (r *gormChatRepository) Delete(ctx context.Context, chatID string, owner domain.Owner) error {
	if chatID == "" || !owner.Valid() {
		return ErrChatNotFound
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(repository.OwnerScope(owner)).
			Where("id = ?", chatID).
			Delete(&domain.Chat{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return tx.Where("chat_id = ?", chatID).Delete(&domain.Message{}).Error
	})
	if errors.Is(err, ErrChatNotFound) {
		return ErrChatNotFound
	}
	if err != nil {
		log.Printf("[ChatRepository] Database error deleting chat ID %s for %s: %v", chatID, owner, err)
		return errors.New("database error deleting chat")
	}

	log.Printf("[ChatRepository] Chat deleted: ID %s for %s", chatID, owner)
	return nil
}

func (r *gormChatRepository) CountByOwner(ctx context.Context, owner domain.Owner) (int64, error) {
	if !owner.Valid() {
		return 0, errors.New("invalid owner")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Chat{}).Scopes(repository.OwnerScope(owner)).Count(&count).Error
	if err != nil {
		log.Printf("[ChatRepository] Database error counting chats for %s: %v", owner, err)
		return 0, errors.New("database error counting chats")
	}
	return count, nil
}

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	if !chat.Owner().Valid() {
		return errors.New("chat must have exactly one owner")
	}
	chat.Title = strings.TrimSpace(chat.Title)
	if chat.Title == "" {
		chat.Title = domain.DefaultChatTitle
	}
	if len([]rune(chat.Title)) > domain.MaxTitleLength {
		return fmt.Errorf("title too long (max %d characters)", domain.MaxTitleLength)
	}
	return nil
}

func (r *gormChatRepository) handleFindError(err error, chat *domain.Chat, operation string) (*domain.Chat, error) {
	if err == nil {
		return chat, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	log.Printf("[ChatRepository] Database error in %s: %v", operation, err)
	return nil, fmt.Errorf("database error in %s", operation)
}
