package chat

import (
	"context"

	"github.com/iyunix/go-chatline/internal/services/notify"
)

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Publisher receives a notification after each persisted assistant reply.
type Publisher interface {
	PublishTurnCompleted(ctx context.Context, ev notify.TurnCompleted) error
}
