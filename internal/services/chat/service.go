// Package chat runs one chat turn end to end: identity checks, quota,
// regeneration, memory, prompt building, completion and persistence.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/services/ai"
	"github.com/iyunix/go-chatline/internal/services/completion"
	"github.com/iyunix/go-chatline/internal/services/conversation"
	"github.com/iyunix/go-chatline/internal/services/identity"
	"github.com/iyunix/go-chatline/internal/services/memory"
	"github.com/iyunix/go-chatline/internal/services/notify"
	"github.com/iyunix/go-chatline/internal/services/quota"
)

// TurnRequest is a validated-shape turn submission. Messages holds the full
// visible history; its last element is the new user turn.
type TurnRequest struct {
	Identity   identity.Identity
	Messages   []domain.Turn
	ChatID     string
	Regenerate *Regeneration
}

// PreparedTurn is everything persisted and computed before the provider runs.
type PreparedTurn struct {
	Identity    identity.Identity
	Chat        *domain.Chat
	NewChat     bool
	Regenerated bool
	UserMessage *domain.Message
	Prompt      []ai.Message
	Quota       quota.Status

	userText string
}

// Remaining is the guest quota after this turn, or quota.Unlimited for users.
func (p *PreparedTurn) Remaining() int { return p.Quota.Remaining }

// Reply is the batch-mode result.
type Reply struct {
	Response  string
	ChatID    string
	Remaining int
	GuestID   string
	MessageID string
	Provider  string
}

type Service struct {
	config    *Config
	store     *conversation.Store
	guard     *quota.GuestGuard
	augmenter *memory.Augmenter
	engine    *completion.Engine
	publisher Publisher
	logger    Logger
}

func NewService(
	config *Config,
	store *conversation.Store,
	guard *quota.GuestGuard,
	augmenter *memory.Augmenter,
	engine *completion.Engine,
	publisher Publisher,
	logger Logger,
) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("config", err.Error())
	}
	if store == nil {
		return nil, NewValidationError("constructor", "conversation store is required")
	}
	if guard == nil {
		return nil, NewValidationError("constructor", "guest guard is required")
	}
	if engine == nil {
		return nil, NewValidationError("constructor", "completion engine is required")
	}
	if augmenter == nil {
		augmenter = memory.NewAugmenter(nil, logger)
	}
	if publisher == nil {
		publisher = notify.Noop{}
	}
	return &Service{
		config:    config,
		store:     store,
		guard:     guard,
		augmenter: augmenter,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Prepare runs every step that must finish before the first byte of a reply:
// validation, quota, regeneration, memory lookup, user message persistence
// and prompt building. Errors are *ChatError.
func (s *Service) Prepare(ctx context.Context, req TurnRequest) (*PreparedTurn, error) {
	id := req.Identity
	owner := id.Owner()

	if len(req.Messages) == 0 {
		return nil, NewValidationError("validate", "messages are required")
	}
	current := req.Messages[len(req.Messages)-1]
	if err := domain.ValidateUserTurn(current); err != nil {
		return nil, NewValidationError("validate", err.Error())
	}
	if req.ChatID != "" {
		if _, err := uuid.Parse(req.ChatID); err != nil {
			return nil, NewValidationError("validate", "malformed chat id")
		}
	}

	status, err := s.guard.Check(ctx, id)
	if errors.Is(err, quota.ErrLimitReached) {
		s.logger.Info("guest limit reached", "guest_id", id.GuestID, "used", status.Used)
		return nil, NewGuestLimitError()
	}
	if err != nil {
		return nil, NewProcessingError("quota", "failed to check guest quota", err)
	}

	// Nothing is written for a turn that can never be answered.
	if !s.engine.Configured() {
		return nil, NewNotConfiguredError(completion.ErrNotConfigured)
	}

	p := &PreparedTurn{Identity: id, Quota: status}

	if req.ChatID != "" {
		c, err := s.store.FindChat(ctx, req.ChatID, owner)
		if err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				return nil, NewNotFoundError(req.ChatID)
			}
			return nil, NewProcessingError("find_chat", "failed to load chat", err)
		}
		p.Chat = c
	}

	if req.Regenerate != nil && p.Chat != nil {
		applied, err := s.regenerate(ctx, p.Chat, *req.Regenerate)
		if err != nil {
			return nil, err
		}
		p.Regenerated = applied
	}

	var history []domain.Turn
	if p.Regenerated {
		history, err = s.persistedHistory(ctx, p.Chat, owner)
		if err != nil {
			return nil, err
		}
		current = history[len(history)-1]
	} else {
		history = req.Messages
	}
	p.userText = strings.TrimSpace(current.Text())

	_, hasFile := current.Attachment()
	snippets := s.augmenter.Augment(ctx, id.UserID, p.userText, hasFile)

	if !p.Regenerated {
		if err := s.persistUserTurn(ctx, p, current); err != nil {
			return nil, err
		}
		p.Quota = p.Quota.After(1)
	}

	p.Prompt = BuildPrompt(s.config.SystemPrompt, snippets, history)
	s.logger.Debug("turn prepared",
		"chat_id", p.Chat.ID,
		"new_chat", p.NewChat,
		"regenerated", p.Regenerated,
		"memory_snippets", len(snippets),
		"prompt_messages", len(p.Prompt))
	return p, nil
}

// Complete runs a prepared turn in batch mode.
func (s *Service) Complete(ctx context.Context, p *PreparedTurn) (*Reply, error) {
	res, err := s.engine.Complete(ctx, p.Prompt)
	if err != nil {
		s.logger.Error("completion failed", "chat_id", p.Chat.ID, "error", err)
		return nil, completionError(err)
	}

	msg, err := s.finishTurn(ctx, p, res.Text, res.Provider)
	if err != nil {
		return nil, err
	}

	reply := &Reply{
		ChatID:    p.Chat.ID,
		Remaining: p.Remaining(),
		Provider:  res.Provider,
	}
	if p.Identity.IsGuest() {
		reply.GuestID = p.Identity.GuestID
	}
	if msg != nil {
		reply.Response = msg.Content
		reply.MessageID = msg.ID
		s.remember(ctx, p, msg.Content)
	}
	return reply, nil
}

func (s *Service) persistedHistory(ctx context.Context, c *domain.Chat, owner domain.Owner) ([]domain.Turn, error) {
	msgs, err := s.store.ListMessages(ctx, c.ID, owner)
	if err != nil {
		return nil, NewProcessingError("regenerate", "failed to reload chat history", err)
	}
	history := make([]domain.Turn, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, domain.TurnFromMessage(m))
	}
	if len(history) == 0 {
		return nil, NewProcessingError("regenerate", "chat history is empty after truncation", nil)
	}
	return history, nil
}

func (s *Service) persistUserTurn(ctx context.Context, p *PreparedTurn, t domain.Turn) error {
	owner := p.Identity.Owner()
	if p.Chat == nil {
		c, err := s.store.CreateChat(ctx, owner, domain.TitleFromContent(t.Text()))
		if err != nil {
			return NewProcessingError("create_chat", "failed to create chat", err)
		}
		p.Chat = c
		p.NewChat = true
	}

	msg, err := s.store.AppendMessage(ctx, p.Chat, domain.NewMessageFromTurn(p.Chat.ID, owner, t))
	if err != nil {
		return NewProcessingError("save_user_message", "failed to save message", err)
	}
	p.UserMessage = msg
	return nil
}

// finishTurn persists a non-blank reply and publishes the notification.
// It runs detached from ctx: a finished reply is kept even if the caller left.
func (s *Service) finishTurn(ctx context.Context, p *PreparedTurn, text, provider string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn("provider returned an empty reply, nothing persisted", "chat_id", p.Chat.ID, "provider", provider)
		return nil, nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.SaveTimeout)
	defer cancel()

	msg, err := s.store.AppendMessage(saveCtx, p.Chat, &domain.Message{Role: domain.RoleAssistant, Content: text})
	if err != nil {
		s.logger.Error("failed to save assistant message", "chat_id", p.Chat.ID, "error", err)
		return nil, NewProcessingError("save_assistant_message", "failed to save reply", err)
	}

	s.logger.Info("turn completed", "chat_id", p.Chat.ID, "message_id", msg.ID, "provider", provider, "reply_length", len(text))
	go s.publish(p, msg)
	return msg, nil
}

func (s *Service) publish(p *PreparedTurn, msg *domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.NotifyTimeout)
	defer cancel()

	kind := "user"
	if p.Identity.IsGuest() {
		kind = "guest"
	}
	err := s.publisher.PublishTurnCompleted(ctx, notify.TurnCompleted{
		ChatID:    p.Chat.ID,
		MessageID: msg.ID,
		OwnerKind: kind,
		At:        time.Now().UTC(),
	})
	if err != nil {
		s.logger.Debug("turn notification dropped", "chat_id", p.Chat.ID, "error", err)
	}
}

func (s *Service) remember(ctx context.Context, p *PreparedTurn, reply string) {
	s.augmenter.Remember(ctx, p.Identity.UserID, p.Chat.ID, p.userText, reply)
}

func completionError(err error) *ChatError {
	if errors.Is(err, completion.ErrNotConfigured) {
		return NewNotConfiguredError(err)
	}
	return NewProcessingError("completion", "failed to generate a reply", err)
}
