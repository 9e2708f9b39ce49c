// File: internal/domain/message.go
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

var ErrEmptyMessage = errors.New("message must have content or an attachment")

// Message represents a single message within a chat.
type Message struct {
	ID       string         `json:"id" gorm:"primaryKey;size:36"`
	ChatID   string         `json:"chatId" gorm:"not null;index;size:36"`
	UserID   string         `json:"userId,omitempty" gorm:"index;size:64"`
	GuestID  string         `json:"guestId,omitempty" gorm:"index;size:64"`
	Role     Role           `json:"role" gorm:"not null;size:16"`
	Content  string         `json:"content"`
	FileURL  string         `json:"fileUrl,omitempty"`
	FileKind AttachmentKind `json:"fileType,omitempty" gorm:"size:16"`
	// Position is the 0-based index of the message inside its chat.
	Position  int       `json:"position" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m *Message) HasAttachment() bool { return m.FileURL != "" }

func (m *Message) Owner() Owner {
	return Owner{UserID: m.UserID, GuestID: m.GuestID}
}

func (m *Message) Validate() error {
	m.Content = strings.TrimSpace(m.Content)
	if !m.Role.Valid() {
		return errors.New("invalid message role")
	}
	if m.Content == "" && !m.HasAttachment() {
		return ErrEmptyMessage
	}
	return nil
}

// NewMessageFromTurn builds an unsaved message for the chat owner.
func NewMessageFromTurn(chatID string, owner Owner, t Turn) *Message {
	m := &Message{
		ChatID:  chatID,
		UserID:  owner.UserID,
		GuestID: owner.GuestID,
		Role:    t.Role(),
		Content: strings.TrimSpace(t.Text()),
	}
	if a, ok := t.Attachment(); ok {
		m.FileURL = a.URL
		m.FileKind = a.Kind
	}
	return m
}
