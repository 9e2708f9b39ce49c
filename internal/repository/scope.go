package repository

import (
	"gorm.io/gorm"

	"github.com/iyunix/go-chatline/internal/domain"
)

// OwnerScope restricts a query on chats or messages to rows owned by o.
// Guest ownership only matches rows that carry no user id.
func OwnerScope(o domain.Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.UserID != "" {
			return db.Where("user_id = ?", o.UserID)
		}
		return db.Where("guest_id = ? AND (user_id = '' OR user_id IS NULL)", o.GuestID)
	}
}
