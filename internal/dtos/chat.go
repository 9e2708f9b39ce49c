// File: internal/dtos/chat.go
package dtos

import (
	"fmt"
	"time"

	"github.com/iyunix/go-chatline/internal/domain"
)

// TurnDTO is one history entry as sent by the client.
type TurnDTO struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileType string `json:"fileType,omitempty"`
}

// ChatRequestDTO is the turn submission payload.
type ChatRequestDTO struct {
	Messages            []TurnDTO `json:"messages"`
	ChatID              string    `json:"chatId,omitempty"`
	RegenerateFromIndex *int      `json:"regenerateFromIndex,omitempty"`
	EditedContent       string    `json:"editedContent,omitempty"`
	Stream              bool      `json:"stream,omitempty"`
}

// Turns converts the loosely typed history into domain turns.
func (r *ChatRequestDTO) Turns() ([]domain.Turn, error) {
	turns := make([]domain.Turn, 0, len(r.Messages))
	for i, m := range r.Messages {
		t, err := domain.NewTurn(m.Role, m.Content, m.FileURL, m.FileType)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

type ChatResponseDTO struct {
	Response  string `json:"response"`
	ChatID    string `json:"chatId"`
	Remaining int    `json:"remaining"`
	GuestID   string `json:"guestId,omitempty"`
}

type ErrorResponseDTO struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

type ChatSummaryDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type ChatListResponseDTO struct {
	Chats []ChatSummaryDTO `json:"chats"`
	Total int64            `json:"total"`
}

type MessageDTO struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	FileURL   string `json:"fileUrl,omitempty"`
	FileType  string `json:"fileType,omitempty"`
	Position  int    `json:"position"`
	CreatedAt string `json:"createdAt"`
}

type MessageListResponseDTO struct {
	Messages []MessageDTO `json:"messages"`
	Total    int64        `json:"total"`
}

type RenameChatRequestDTO struct {
	Title string `json:"title"`
}

type QuotaResponseDTO struct {
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit,omitempty"`
	GuestID   string `json:"guestId,omitempty"`
}

func ToChatSummary(c domain.Chat) ChatSummaryDTO {
	return ChatSummaryDTO{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ToMessageDTO(m domain.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		FileURL:   m.FileURL,
		FileType:  string(m.FileKind),
		Position:  m.Position,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
