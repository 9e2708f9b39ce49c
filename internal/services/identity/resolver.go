// Package identity decides whether a caller is a signed-in user or a guest.
package identity

import (
	"strings"

	"github.com/google/uuid"

	"github.com/iyunix/go-chatline/internal/auth"
	"github.com/iyunix/go-chatline/internal/domain"
)

const guestPrefix = "guest-"

// Identity is the resolved caller. Exactly one of UserID and GuestID is set.
type Identity struct {
	UserID  string
	GuestID string
	// NewGuest is true when the guest id was minted for this request.
	NewGuest bool
}

func (i Identity) IsGuest() bool { return i.UserID == "" }

func (i Identity) Owner() domain.Owner {
	if i.UserID != "" {
		return domain.UserOwner(i.UserID)
	}
	return domain.GuestOwner(i.GuestID)
}

// Resolver maps request credentials to an Identity. It has no side effects.
type Resolver struct {
	secret []byte
}

func NewResolver(jwtSecret string) *Resolver {
	return &Resolver{secret: []byte(jwtSecret)}
}

// Resolve returns the authenticated user when token is valid. Otherwise the
// caller is a guest: a well-formed guestID is reused, anything else is
// replaced with a fresh one. A bad token never fails the request.
func (r *Resolver) Resolve(token, guestID string) Identity {
	if token != "" && len(r.secret) > 0 {
		if userID, err := auth.ValidateToken(token, r.secret); err == nil {
			return Identity{UserID: userID}
		}
	}
	guestID = strings.TrimSpace(guestID)
	if IsGuestID(guestID) {
		return Identity{GuestID: guestID}
	}
	return Identity{GuestID: NewGuestID(), NewGuest: true}
}

// NewGuestID mints a guest-<uuid> correlation id.
func NewGuestID() string {
	return guestPrefix + uuid.NewString()
}

func IsGuestID(s string) bool {
	if !strings.HasPrefix(s, guestPrefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(s, guestPrefix))
	return err == nil
}
