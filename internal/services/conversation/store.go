// Package conversation is the owner-aware facade the chat pipeline uses to
// read and write chats and messages.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository/chat"
	"github.com/iyunix/go-chatline/internal/repository/message"
)

// ErrNotFound covers both missing chats and chats owned by someone else.
var ErrNotFound = chat.ErrChatNotFound

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type Store struct {
	chats    chat.ChatRepository
	messages message.MessageRepository
	logger   Logger
}

func NewStore(chats chat.ChatRepository, messages message.MessageRepository, logger Logger) *Store {
	return &Store{chats: chats, messages: messages, logger: logger}
}

// CreateChat persists a new, empty chat for owner and returns it.
func (s *Store) CreateChat(ctx context.Context, owner domain.Owner, title string) (*domain.Chat, error) {
	if !owner.Valid() {
		return nil, errors.New("chat owner must be exactly one of user or guest")
	}
	c, err := s.chats.Create(ctx, &domain.Chat{UserID: owner.UserID, GuestID: owner.GuestID, Title: title})
	if err != nil {
		s.logger.Error("create chat failed", "owner", owner.String(), "error", err)
		return nil, err
	}
	return c, nil
}

// AppendMessage stores m at the end of the chat. The message inherits the
// chat's owner; the chat's updated_at is bumped.
func (s *Store) AppendMessage(ctx context.Context, c *domain.Chat, m *domain.Message) (*domain.Message, error) {
	m.ChatID = c.ID
	m.UserID = c.UserID
	m.GuestID = c.GuestID
	saved, err := s.messages.Append(ctx, m)
	if err != nil {
		s.logger.Error("append message failed", "chat_id", c.ID, "role", m.Role, "error", err)
		return nil, err
	}
	return saved, nil
}

func (s *Store) FindChat(ctx context.Context, chatID string, owner domain.Owner) (*domain.Chat, error) {
	return s.chats.FindByIDAndOwner(ctx, chatID, owner)
}

func (s *Store) ListChats(ctx context.Context, owner domain.Owner, limit, offset int) ([]domain.Chat, int64, error) {
	return s.chats.FindByOwnerWithPagination(ctx, owner, limit, offset)
}

// ListMessages returns the chat's messages in position order.
func (s *Store) ListMessages(ctx context.Context, chatID string, owner domain.Owner) ([]domain.Message, error) {
	if _, err := s.chats.FindByIDAndOwner(ctx, chatID, owner); err != nil {
		return nil, err
	}
	return s.messages.FindByChatID(ctx, chatID)
}

func (s *Store) ListMessagesPage(ctx context.Context, chatID string, owner domain.Owner, limit, offset int) ([]domain.Message, int64, error) {
	if _, err := s.chats.FindByIDAndOwner(ctx, chatID, owner); err != nil {
		return nil, 0, err
	}
	return s.messages.FindByChatIDWithPagination(ctx, chatID, limit, offset)
}

// MessageAt returns the message at index in the chat's ordered list.
func (s *Store) MessageAt(ctx context.Context, c *domain.Chat, index int) (*domain.Message, error) {
	return s.messages.FindByPosition(ctx, c.ID, index)
}

func (s *Store) EditMessage(ctx context.Context, c *domain.Chat, messageID, content string) error {
	if err := s.messages.UpdateContent(ctx, messageID, c.ID, content); err != nil {
		s.logger.Error("edit message failed", "chat_id", c.ID, "message_id", messageID, "error", err)
		return err
	}
	return nil
}

// TruncateAfter deletes every message strictly after index.
func (s *Store) TruncateAfter(ctx context.Context, c *domain.Chat, index int) error {
	n, err := s.messages.DeleteAfterPosition(ctx, c.ID, index)
	if err != nil {
		s.logger.Error("truncate chat failed", "chat_id", c.ID, "index", index, "error", err)
		return fmt.Errorf("truncate chat %s after %d: %w", c.ID, index, err)
	}
	s.logger.Info("chat truncated", "chat_id", c.ID, "index", index, "deleted", n)
	return s.chats.TouchUpdatedAt(ctx, c.ID)
}

func (s *Store) RenameChat(ctx context.Context, chatID string, owner domain.Owner, title string) error {
	return s.chats.UpdateTitle(ctx, chatID, owner, title)
}

// DeleteChat removes the chat and all of its messages.
func (s *Store) DeleteChat(ctx context.Context, chatID string, owner domain.Owner) error {
	if err := s.chats.Delete(ctx, chatID, owner); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("delete chat failed", "chat_id", chatID, "error", err)
		}
		return err
	}
	s.logger.Info("chat deleted", "chat_id", chatID, "owner", owner.String())
	return nil
}

// CountGuestMessages is the guest quota counter.
func (s *Store) CountGuestMessages(ctx context.Context, guestID string) (int64, error) {
	return s.messages.CountGuestUserMessages(ctx, guestID)
}
