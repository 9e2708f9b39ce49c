// Package notify publishes best-effort events about finished turns.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const EventTurnCompleted = "turn.completed"

type TurnCompleted struct {
	ChatID    string    `json:"chatId"`
	MessageID string    `json:"messageId"`
	OwnerKind string    `json:"ownerKind"`
	At        time.Time `json:"at"`
}

type envelope struct {
	Type string        `json:"type"`
	Data TurnCompleted `json:"data"`
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishTurnCompleted(context.Context, TurnCompleted) error { return nil }

type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier connects and pings once so a bad address fails at startup.
func NewRedisNotifier(ctx context.Context, addr, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (n *RedisNotifier) PublishTurnCompleted(ctx context.Context, ev TurnCompleted) error {
	payload, err := json.Marshal(envelope{Type: EventTurnCompleted, Data: ev})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
