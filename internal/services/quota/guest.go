// Package quota enforces the lifetime message ceiling for guests.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/iyunix/go-chatline/internal/services/identity"
)

const (
	DefaultGuestLimit = 10
	// Unlimited is reported as remaining for signed-in users.
	Unlimited = -1
)

var ErrLimitReached = errors.New("guest message limit reached")

// Counter reports how many messages a guest has already sent.
type Counter interface {
	CountGuestMessages(ctx context.Context, guestID string) (int64, error)
}

type Status struct {
	Limit     int
	Used      int
	Remaining int
}

// After returns the status once n more messages are accepted.
func (s Status) After(n int) Status {
	if s.Remaining == Unlimited {
		return s
	}
	s.Used += n
	s.Remaining = max(s.Limit-s.Used, 0)
	return s
}

// GuestGuard counts at request start. Concurrent requests from one guest can
// overshoot by the number in flight.
type GuestGuard struct {
	counter Counter
	limit   int
}

func NewGuestGuard(counter Counter, limit int) *GuestGuard {
	if limit <= 0 {
		limit = DefaultGuestLimit
	}
	return &GuestGuard{counter: counter, limit: limit}
}

func (g *GuestGuard) Limit() int { return g.limit }

// Check returns the caller's current status and ErrLimitReached when a guest
// has no messages left. Users are never counted.
func (g *GuestGuard) Check(ctx context.Context, id identity.Identity) (Status, error) {
	if !id.IsGuest() {
		return Status{Remaining: Unlimited}, nil
	}
	if id.NewGuest {
		return Status{Limit: g.limit, Remaining: g.limit}, nil
	}

	n, err := g.counter.CountGuestMessages(ctx, id.GuestID)
	if err != nil {
		return Status{}, fmt.Errorf("count guest messages: %w", err)
	}
	st := Status{Limit: g.limit, Used: int(n), Remaining: max(g.limit-int(n), 0)}
	if int(n) >= g.limit {
		return st, ErrLimitReached
	}
	return st, nil
}
