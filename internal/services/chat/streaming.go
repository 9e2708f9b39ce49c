package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// StreamState is the lifecycle of one streamed reply.
type StreamState int

const (
	StateOpen StreamState = iota
	StateStreaming
	StateDone
	StateAborted
)

func (s StreamState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateStreaming:
		return "STREAMING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	}
	return fmt.Sprintf("StreamState(%d)", int(s))
}

// Event is one transition of the stream state machine.
type Event interface{ streamEvent() }

// ChatCreated announces the id of a chat created by this turn.
type ChatCreated struct{ ChatID string }

// Delta is one provider text fragment.
type Delta struct{ Content string }

// Done follows the persisted reply. MessageID is empty when the reply was blank.
type Done struct{ MessageID string }

// Aborted ends the stream without a sentinel.
type Aborted struct{ Err error }

func (ChatCreated) streamEvent() {}
func (Delta) streamEvent()       {}
func (Done) streamEvent()        {}
func (Aborted) streamEvent()     {}

var (
	ErrDuplicateChatCreated = errors.New("chat id already announced")
	ErrStreamClosed         = errors.New("stream already finished")
)

// StreamMachine validates event order.
type StreamMachine struct {
	state     StreamState
	announced bool
}

func (m *StreamMachine) State() StreamState { return m.state }

func (m *StreamMachine) Apply(ev Event) error {
	if m.state == StateDone || m.state == StateAborted {
		return fmt.Errorf("%w: got %T in %s", ErrStreamClosed, ev, m.state)
	}
	switch ev.(type) {
	case ChatCreated:
		if m.announced || m.state != StateOpen {
			return ErrDuplicateChatCreated
		}
		m.announced = true
		m.state = StateStreaming
	case Delta:
		m.state = StateStreaming
	case Done:
		m.state = StateDone
	case Aborted:
		m.state = StateAborted
	default:
		return fmt.Errorf("unknown stream event %T", ev)
	}
	return nil
}

// EventSink writes events to the client, in order, one call per event.
type EventSink interface {
	Send(ev Event) error
}

// Stream runs the completion for a prepared turn and delivers it through
// sink. A producer goroutine consumes the provider and a writer goroutine
// feeds the sink; they share an unbuffered channel, so a slow client slows
// down provider consumption and a failed write cancels it.
func (s *Service) Stream(ctx context.Context, p *PreparedTurn, sink EventSink) error {
	events := make(chan Event)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return s.produce(gctx, p, events)
	})

	g.Go(func() error {
		var m StreamMachine
		for ev := range events {
			if err := m.Apply(ev); err != nil {
				return err
			}
			if err := sink.Send(ev); err != nil {
				return fmt.Errorf("write stream event: %w", err)
			}
		}
		if m.State() == StateOpen || m.State() == StateStreaming {
			s.logger.Warn("stream closed without terminal event", "chat_id", p.Chat.ID, "state", m.State().String())
		}
		return nil
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		s.logger.Info("stream aborted by client", "chat_id", p.Chat.ID)
	}
	return err
}

func (s *Service) produce(ctx context.Context, p *PreparedTurn, events chan<- Event) error {
	emit := func(ev Event) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if p.NewChat {
		if err := emit(ChatCreated{ChatID: p.Chat.ID}); err != nil {
			return err
		}
	}

	var reply strings.Builder
	provider, err := s.engine.Stream(ctx, p.Prompt, func(delta string) error {
		if delta == "" {
			return nil
		}
		reply.WriteString(delta)
		return emit(Delta{Content: delta})
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ce := completionError(err)
		s.logger.Error("stream completion failed", "chat_id", p.Chat.ID, "provider", provider, "streamed_bytes", reply.Len(), "error", err)
		_ = emit(Aborted{Err: ce})
		return ce
	}

	// The reply is complete; it is persisted even if the client left.
	msg, err := s.finishTurn(ctx, p, reply.String(), provider)
	if err != nil {
		_ = emit(Aborted{Err: err})
		return err
	}

	var messageID string
	if msg != nil {
		messageID = msg.ID
	}
	doneErr := emit(Done{MessageID: messageID})
	if msg != nil {
		s.remember(context.WithoutCancel(ctx), p, msg.Content)
	}
	return doneErr
}
