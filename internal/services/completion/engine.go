// Package completion runs a prompt against the primary LLM provider and
// falls back to the secondary one when the primary fails.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iyunix/go-chatline/internal/services/ai"
)

// ErrNotConfigured is returned before any network call when no provider is set up.
var ErrNotConfigured = errors.New("no LLM provider configured")

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Result is a finished batch completion.
type Result struct {
	Text     string
	Provider string
}

type Engine struct {
	providers []ai.CompletionProvider
	logger    Logger
}

// NewEngine accepts nil for either provider. With both nil every call
// returns ErrNotConfigured.
func NewEngine(primary, fallback ai.CompletionProvider, logger Logger) *Engine {
	e := &Engine{logger: logger}
	for _, p := range []ai.CompletionProvider{primary, fallback} {
		if p != nil {
			e.providers = append(e.providers, p)
		}
	}
	return e
}

func (e *Engine) Configured() bool { return len(e.providers) > 0 }

// Providers returns the configured providers in fallback order.
func (e *Engine) Providers() []ai.CompletionProvider {
	return append([]ai.CompletionProvider(nil), e.providers...)
}

// Complete returns the first successful provider answer. Each provider is tried once.
func (e *Engine) Complete(ctx context.Context, messages []ai.Message) (Result, error) {
	if !e.Configured() {
		return Result{}, ErrNotConfigured
	}

	var lastErr error
	for i, p := range e.providers {
		start := time.Now()
		text, err := p.GetCompletion(ctx, messages)
		if err == nil {
			e.logger.Info("completion finished", "provider", p.Name(), "duration_ms", time.Since(start).Milliseconds(), "fallback", i > 0)
			return Result{Text: text, Provider: p.Name()}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		e.logger.Warn("provider failed", "provider", p.Name(), "mode", "batch", "error", err)
	}
	return Result{}, fmt.Errorf("all providers failed: %w", lastErr)
}

// Stream forwards fragments to onDelta in delivery order. A failed provider
// is replaced by the next one only while nothing has been forwarded; after the
// first fragment a provider error ends the stream. An error from onDelta is
// returned unchanged and never triggers a fallback.
func (e *Engine) Stream(ctx context.Context, messages []ai.Message, onDelta func(string) error) (string, error) {
	if !e.Configured() {
		return "", ErrNotConfigured
	}

	var lastErr error
	for i, p := range e.providers {
		emitted := false
		var sinkErr error
		err := p.StreamCompletion(ctx, messages, func(delta string) error {
			emitted = true
			if err := onDelta(delta); err != nil {
				sinkErr = err
				return err
			}
			return nil
		})
		switch {
		case err == nil:
			e.logger.Info("stream finished", "provider", p.Name(), "fallback", i > 0)
			return p.Name(), nil
		case sinkErr != nil:
			return p.Name(), sinkErr
		case ctx.Err() != nil:
			return p.Name(), ctx.Err()
		case emitted:
			e.logger.Error("provider failed mid-stream", "provider", p.Name(), "error", err)
			return p.Name(), fmt.Errorf("stream interrupted: %w", err)
		}
		lastErr = err
		e.logger.Warn("provider failed", "provider", p.Name(), "mode", "stream", "error", err)
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}
