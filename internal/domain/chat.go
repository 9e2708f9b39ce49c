// File: internal/domain/chat.go
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultChatTitle = "New Chat"
	titleMaxRunes    = 30
	MaxTitleLength   = 100
)

// Owner identifies who a chat or message belongs to. Exactly one field is set.
type Owner struct {
	UserID  string
	GuestID string
}

func UserOwner(userID string) Owner   { return Owner{UserID: userID} }
func GuestOwner(guestID string) Owner { return Owner{GuestID: guestID} }

func (o Owner) IsGuest() bool { return o.UserID == "" && o.GuestID != "" }

// Valid reports whether exactly one of UserID and GuestID is set.
func (o Owner) Valid() bool {
	return (o.UserID != "") != (o.GuestID != "")
}

// String is used as a log field only.
func (o Owner) String() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "guest:" + o.GuestID
}

// Chat represents a single conversation thread.
type Chat struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"userId,omitempty" gorm:"index;size:64"`
	GuestID   string    `json:"guestId,omitempty" gorm:"index;size:64"`
	Title     string    `json:"title" gorm:"size:128"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c *Chat) Owner() Owner {
	return Owner{UserID: c.UserID, GuestID: c.GuestID}
}

func (c *Chat) OwnedBy(o Owner) bool {
	if o.UserID != "" {
		return c.UserID == o.UserID
	}
	return c.UserID == "" && o.GuestID != "" && c.GuestID == o.GuestID
}

// TitleFromContent derives a chat title from the first user message.
func TitleFromContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return DefaultChatTitle
	}
	if utf8.RuneCountInString(content) <= titleMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleMaxRunes]) + "..."
}
