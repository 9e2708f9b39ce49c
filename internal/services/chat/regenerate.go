package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository/message"
)

// Regeneration asks to rewind a chat to the user message at Index.
type Regeneration struct {
	Index         int
	EditedContent string
}

// regenerate edits the target user message and deletes everything after it.
// A missing or non-user target leaves the chat untouched and reports false.
// Concurrent regenerations of one chat are not coordinated.
func (s *Service) regenerate(ctx context.Context, c *domain.Chat, r Regeneration) (bool, error) {
	if r.Index < 0 {
		return false, nil
	}

	target, err := s.store.MessageAt(ctx, c, r.Index)
	if err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			s.logger.Warn("regeneration target missing, running a normal turn", "chat_id", c.ID, "index", r.Index)
			return false, nil
		}
		return false, NewProcessingError("regenerate", "failed to load target message", err)
	}
	if target.Role != domain.RoleUser {
		s.logger.Warn("regeneration target is not a user message, running a normal turn",
			"chat_id", c.ID, "index", r.Index, "role", target.Role)
		return false, nil
	}

	if edited := strings.TrimSpace(r.EditedContent); edited != "" && edited != target.Content {
		if err := s.store.EditMessage(ctx, c, target.ID, edited); err != nil {
			return false, NewProcessingError("regenerate", "failed to edit message", err)
		}
	}
	if err := s.store.TruncateAfter(ctx, c, r.Index); err != nil {
		return false, NewProcessingError("regenerate", "failed to truncate chat", err)
	}

	s.logger.Info("chat rewound for regeneration", "chat_id", c.ID, "index", r.Index)
	return true, nil
}
