package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository/chat"
	"github.com/iyunix/go-chatline/internal/repository/message"
	"github.com/iyunix/go-chatline/internal/repository/repotest"
	"github.com/iyunix/go-chatline/internal/services"
	"github.com/iyunix/go-chatline/internal/services/ai"
	"github.com/iyunix/go-chatline/internal/services/completion"
	"github.com/iyunix/go-chatline/internal/services/conversation"
	"github.com/iyunix/go-chatline/internal/services/identity"
	"github.com/iyunix/go-chatline/internal/services/memory"
	"github.com/iyunix/go-chatline/internal/services/quota"
)

type scriptedProvider struct {
	name   string
	text   string
	tokens []string
	err    error

	mu       sync.Mutex
	calls    int
	lastSeen []ai.Message
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) GetCompletion(_ context.Context, msgs []ai.Message) (string, error) {
	p.mu.Lock()
	p.calls++
	p.lastSeen = msgs
	p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, msgs []ai.Message, onDelta func(string) error) error {
	p.mu.Lock()
	p.calls++
	p.lastSeen = msgs
	p.mu.Unlock()
	if p.err != nil && len(p.tokens) == 0 {
		return p.err
	}
	for _, tok := range p.tokens {
		if err := onDelta(tok); err != nil {
			return err
		}
	}
	return p.err
}

type recordingSink struct {
	events []Event
	failOn int
}

func (r *recordingSink) Send(ev Event) error {
	if r.failOn > 0 && len(r.events)+1 == r.failOn {
		return errors.New("client gone")
	}
	r.events = append(r.events, ev)
	return nil
}

type memoryFake struct {
	mu       sync.Mutex
	results  []memory.Snippet
	searches int
	saved    []memory.Entry
}

func (m *memoryFake) Name() string { return "fake" }

func (m *memoryFake) Search(context.Context, string, string, int) ([]memory.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	return m.results, nil
}

func (m *memoryFake) Save(_ context.Context, e memory.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, e)
	return nil
}

type harness struct {
	svc   *Service
	store *conversation.Store
	mem   *memoryFake
}

func newHarness(t *testing.T, primary, fallback ai.CompletionProvider) *harness {
	t.Helper()
	db := repotest.NewDB(t)
	logger := &services.NoOpLogger{}
	store := conversation.NewStore(chat.NewChatRepository(db), message.NewMessageRepository(db), logger)
	mem := &memoryFake{}

	var p, f ai.CompletionProvider
	if primary != nil {
		p = primary
	}
	if fallback != nil {
		f = fallback
	}
	svc, err := NewService(
		DefaultConfig(),
		store,
		quota.NewGuestGuard(store, quota.DefaultGuestLimit),
		memory.NewAugmenter(mem, logger),
		completion.NewEngine(p, f, logger),
		nil,
		logger,
	)
	require.NoError(t, err)
	return &harness{svc: svc, store: store, mem: mem}
}

func userTurn(text string) domain.Turn {
	return domain.TextTurn{From: domain.RoleUser, Content: text}
}

func guest(id string, fresh bool) identity.Identity {
	return identity.Identity{GuestID: id, NewGuest: fresh}
}

func runBatch(t *testing.T, h *harness, req TurnRequest) (*Reply, error) {
	t.Helper()
	p, err := h.svc.Prepare(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return h.svc.Complete(context.Background(), p)
}

func requireCode(t *testing.T, err error, code ErrorCode) *ChatError {
	t.Helper()
	var ce *ChatError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, code, ce.Code)
	return ce
}

func TestGuestQuotaMonotonicity(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", text: "ok"}, nil)
	g := identity.NewGuestID()

	for n := 1; n <= quota.DefaultGuestLimit; n++ {
		reply, err := runBatch(t, h, TurnRequest{Identity: guest(g, n == 1), Messages: []domain.Turn{userTurn("question")}})
		require.NoError(t, err, "turn %d", n)
		require.Equal(t, quota.DefaultGuestLimit-n, reply.Remaining, "turn %d", n)
		require.Equal(t, g, reply.GuestID)
	}

	_, err := runBatch(t, h, TurnRequest{Identity: guest(g, false), Messages: []domain.Turn{userTurn("one more")}})
	ce := requireCode(t, err, CodeGuestLimit)
	require.Equal(t, 0, ce.Remaining)
	require.Equal(t, 429, ce.HTTPStatus())
}

func TestUsersAreNotCounted(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", text: "ok"}, nil)
	user := identity.Identity{UserID: "u1"}

	for i := 0; i < quota.DefaultGuestLimit+2; i++ {
		reply, err := runBatch(t, h, TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("question")}})
		require.NoError(t, err)
		require.Equal(t, quota.Unlimited, reply.Remaining)
		require.Empty(t, reply.GuestID)
	}
}

func TestValidation(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "ok"}
	h := newHarness(t, primary, nil)
	g := guest(identity.NewGuestID(), true)

	_, err := runBatch(t, h, TurnRequest{Identity: g})
	requireCode(t, err, CodeValidation)

	_, err = runBatch(t, h, TurnRequest{Identity: g, Messages: []domain.Turn{userTurn("   ")}})
	requireCode(t, err, CodeValidation)

	_, err = runBatch(t, h, TurnRequest{Identity: g, Messages: []domain.Turn{
		domain.TextTurn{From: domain.RoleAssistant, Content: "hi"},
	}})
	requireCode(t, err, CodeValidation)

	_, err = runBatch(t, h, TurnRequest{Identity: g, ChatID: "not-a-uuid", Messages: []domain.Turn{userTurn("hi")}})
	requireCode(t, err, CodeValidation)

	require.Zero(t, primary.calls)
}

func TestAttachmentOnlyTurnIsAccepted(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "a cat"}
	h := newHarness(t, primary, nil)

	reply, err := runBatch(t, h, TurnRequest{
		Identity: guest(identity.NewGuestID(), true),
		Messages: []domain.Turn{domain.ImageTurn{From: domain.RoleUser, URL: "https://cdn.example.com/cat.png"}},
	})
	require.NoError(t, err)
	require.Equal(t, "a cat", reply.Response)

	last := primary.lastSeen[len(primary.lastSeen)-1]
	require.Equal(t, "https://cdn.example.com/cat.png", last.ImageURL)
}

func TestOwnershipIsolationThroughTurns(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", text: "ok"}, nil)
	a := identity.Identity{UserID: "alice"}
	b := identity.Identity{UserID: "bob"}

	reply, err := runBatch(t, h, TurnRequest{Identity: a, Messages: []domain.Turn{userTurn("private")}})
	require.NoError(t, err)

	_, err = runBatch(t, h, TurnRequest{Identity: b, ChatID: reply.ChatID, Messages: []domain.Turn{userTurn("let me in")}})
	ce := requireCode(t, err, CodeNotFound)
	require.Equal(t, 404, ce.HTTPStatus())

	msgs, err := h.store.ListMessages(context.Background(), reply.ChatID, a.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestProviderFallback(t *testing.T) {
	primary := &scriptedProvider{name: "primary", err: errors.New("primary down")}
	fallback := &scriptedProvider{name: "fallback", text: "from fallback"}
	h := newHarness(t, primary, fallback)
	user := identity.Identity{UserID: "u1"}

	reply, err := runBatch(t, h, TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("hello")}})
	require.NoError(t, err)
	require.Equal(t, "from fallback", reply.Response)
	require.Equal(t, "fallback", reply.Provider)

	msgs, err := h.store.ListMessages(context.Background(), reply.ChatID, user.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, domain.RoleAssistant, msgs[1].Role)
	require.Equal(t, "from fallback", msgs[1].Content)
}

func TestNotConfiguredPersistsNothing(t *testing.T) {
	h := newHarness(t, nil, nil)
	user := identity.Identity{UserID: "u1"}

	_, err := runBatch(t, h, TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("hello")}})
	ce := requireCode(t, err, CodeNotConfigured)
	require.Equal(t, 500, ce.HTTPStatus())

	chats, total, err := h.store.ListChats(context.Background(), user.Owner(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, chats)
	require.Zero(t, total)
}

func TestAllProvidersFailing(t *testing.T) {
	h := newHarness(t,
		&scriptedProvider{name: "primary", err: errors.New("down")},
		&scriptedProvider{name: "fallback", err: errors.New("also down")})

	_, err := runBatch(t, h, TurnRequest{Identity: identity.Identity{UserID: "u1"}, Messages: []domain.Turn{userTurn("hello")}})
	requireCode(t, err, CodeProcessingFailed)
}

func TestEmptyReplyIsNotPersisted(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", text: "  \n "}, nil)
	user := identity.Identity{UserID: "u1"}

	reply, err := runBatch(t, h, TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("say nothing about gardens")}})
	require.NoError(t, err)
	require.Empty(t, reply.Response)
	require.NotEmpty(t, reply.ChatID)

	msgs, err := h.store.ListMessages(context.Background(), reply.ChatID, user.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, domain.RoleUser, msgs[0].Role)
	require.Empty(t, h.mem.saved)
}

func TestMemoryIsUsedForUsersOnly(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "Postgres with BRIN"}
	h := newHarness(t, primary, nil)
	h.mem.results = []memory.Snippet{
		{ID: "1", Text: "User prefers BRIN indexing for time series"},
		{ID: "2", Text: "User has a cat named Miso"},
	}
	question := "What did I tell you about my favorite database indexing strategy last week?"

	_, err := runBatch(t, h, TurnRequest{Identity: guest(identity.NewGuestID(), true), Messages: []domain.Turn{userTurn(question)}})
	require.NoError(t, err)
	require.Zero(t, h.mem.searches)
	require.Empty(t, h.mem.saved)

	_, err = runBatch(t, h, TurnRequest{Identity: identity.Identity{UserID: "u1"}, Messages: []domain.Turn{userTurn(question)}})
	require.NoError(t, err)
	require.Equal(t, 1, h.mem.searches)

	prompt := primary.lastSeen
	require.Equal(t, ai.RoleSystem, prompt[0].Role)
	require.Equal(t, ai.RoleAssistant, prompt[1].Role)
	require.Contains(t, prompt[1].Content, "BRIN indexing")
	require.Equal(t, ai.RoleUser, prompt[2].Role)
	require.Len(t, prompt, 3)

	require.Len(t, h.mem.saved, 1)
	require.Equal(t, "u1", h.mem.saved[0].UserID)
	require.Contains(t, h.mem.saved[0].Text, "Postgres with BRIN")
}

func seedChat(t *testing.T, h *harness, owner domain.Owner, contents ...string) *domain.Chat {
	t.Helper()
	ctx := context.Background()
	c, err := h.store.CreateChat(ctx, owner, "seeded")
	require.NoError(t, err)
	for i, content := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_, err := h.store.AppendMessage(ctx, c, &domain.Message{Role: role, Content: content})
		require.NoError(t, err)
	}
	return c
}

func TestRegenerationTruncatesAndEdits(t *testing.T) {
	primary := &scriptedProvider{name: "primary", text: "a1'"}
	h := newHarness(t, primary, nil)
	user := identity.Identity{UserID: "u1"}
	c := seedChat(t, h, user.Owner(), "u0", "a0", "u1", "a1", "u2")

	history := []domain.Turn{userTurn("u0"), domain.TextTurn{From: domain.RoleAssistant, Content: "a0"}, userTurn("u1")}
	p, err := h.svc.Prepare(context.Background(), TurnRequest{
		Identity:   user,
		ChatID:     c.ID,
		Messages:   history,
		Regenerate: &Regeneration{Index: 2, EditedContent: "u1 edited"},
	})
	require.NoError(t, err)
	require.True(t, p.Regenerated)
	require.Nil(t, p.UserMessage)

	msgs, err := h.store.ListMessages(context.Background(), c.ID, user.Owner())
	require.NoError(t, err)
	require.Equal(t, []string{"u0", "a0", "u1 edited"}, contents(msgs))

	reply, err := h.svc.Complete(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "a1'", reply.Response)

	msgs, err = h.store.ListMessages(context.Background(), c.ID, user.Owner())
	require.NoError(t, err)
	require.Equal(t, []string{"u0", "a0", "u1 edited", "a1'"}, contents(msgs))

	last := primary.lastSeen[len(primary.lastSeen)-1]
	require.Equal(t, "u1 edited", last.Content)
}

func TestRegenerationOfAssistantMessageIsNoop(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", text: "reply"}, nil)
	user := identity.Identity{UserID: "u1"}
	c := seedChat(t, h, user.Owner(), "u0", "a0", "u1", "a1")

	p, err := h.svc.Prepare(context.Background(), TurnRequest{
		Identity:   user,
		ChatID:     c.ID,
		Messages:   []domain.Turn{userTurn("next")},
		Regenerate: &Regeneration{Index: 1, EditedContent: "ignored"},
	})
	require.NoError(t, err)
	require.False(t, p.Regenerated)
	require.NotNil(t, p.UserMessage)

	msgs, err := h.store.ListMessages(context.Background(), c.ID, user.Owner())
	require.NoError(t, err)
	require.Equal(t, []string{"u0", "a0", "u1", "a1", "next"}, contents(msgs))
}

func TestRegenerationDoesNotConsumeGuestQuota(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", text: "reply"}, nil)
	g := identity.NewGuestID()

	first, err := runBatch(t, h, TurnRequest{Identity: guest(g, true), Messages: []domain.Turn{userTurn("hello there")}})
	require.NoError(t, err)
	require.Equal(t, 9, first.Remaining)

	again, err := runBatch(t, h, TurnRequest{
		Identity:   guest(g, false),
		ChatID:     first.ChatID,
		Messages:   []domain.Turn{userTurn("hello there")},
		Regenerate: &Regeneration{Index: 0},
	})
	require.NoError(t, err)
	require.Equal(t, 9, again.Remaining)
}

func contents(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestStreamingContractForNewChat(t *testing.T) {
	primary := &scriptedProvider{name: "primary", tokens: []string{"Hel", "lo", " world"}}
	h := newHarness(t, primary, nil)
	user := identity.Identity{UserID: "u1"}

	p, err := h.svc.Prepare(context.Background(), TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("greet me")}})
	require.NoError(t, err)
	require.True(t, p.NewChat)

	sink := &recordingSink{}
	require.NoError(t, h.svc.Stream(context.Background(), p, sink))

	var chatFrames, doneFrames int
	var streamed strings.Builder
	for i, ev := range sink.events {
		switch v := ev.(type) {
		case ChatCreated:
			chatFrames++
			require.Zero(t, i, "chat id must be the first frame")
			require.Equal(t, p.Chat.ID, v.ChatID)
		case Delta:
			streamed.WriteString(v.Content)
		case Done:
			doneFrames++
			require.Equal(t, len(sink.events)-1, i)
			require.NotEmpty(t, v.MessageID)
		case Aborted:
			t.Fatalf("unexpected abort: %v", v.Err)
		}
	}
	require.Equal(t, 1, chatFrames)
	require.Equal(t, 1, doneFrames)
	require.Equal(t, "Hello world", streamed.String())

	msgs, err := h.store.ListMessages(context.Background(), p.Chat.ID, user.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, streamed.String(), msgs[1].Content)
}

func TestStreamingExistingChatHasNoChatFrame(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", tokens: []string{"ok"}}, nil)
	user := identity.Identity{UserID: "u1"}
	c := seedChat(t, h, user.Owner(), "u0", "a0")

	p, err := h.svc.Prepare(context.Background(), TurnRequest{Identity: user, ChatID: c.ID, Messages: []domain.Turn{userTurn("again")}})
	require.NoError(t, err)
	require.False(t, p.NewChat)

	sink := &recordingSink{}
	require.NoError(t, h.svc.Stream(context.Background(), p, sink))
	require.Equal(t, []Event{Delta{Content: "ok"}, Done{MessageID: sink.events[1].(Done).MessageID}}, sink.events)
}

func TestStreamingMidStreamFailureAborts(t *testing.T) {
	primary := &scriptedProvider{name: "primary", tokens: []string{"partial"}, err: errors.New("connection reset")}
	fallback := &scriptedProvider{name: "fallback", tokens: []string{"should not run"}}
	h := newHarness(t, primary, fallback)
	user := identity.Identity{UserID: "u1"}

	p, err := h.svc.Prepare(context.Background(), TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("tell me a story")}})
	require.NoError(t, err)

	sink := &recordingSink{}
	err = h.svc.Stream(context.Background(), p, sink)
	requireCode(t, err, CodeProcessingFailed)
	require.Zero(t, fallback.calls)

	last := sink.events[len(sink.events)-1]
	require.IsType(t, Aborted{}, last)
	for _, ev := range sink.events {
		require.NotEqual(t, Done{}, ev)
	}

	msgs, err := h.store.ListMessages(context.Background(), p.Chat.ID, user.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 1, "partial replies are never persisted")
}

func TestStreamingFallbackBeforeFirstToken(t *testing.T) {
	primary := &scriptedProvider{name: "primary", err: errors.New("refused")}
	fallback := &scriptedProvider{name: "fallback", tokens: []string{"from ", "fallback"}}
	h := newHarness(t, primary, fallback)

	p, err := h.svc.Prepare(context.Background(), TurnRequest{Identity: identity.Identity{UserID: "u1"}, Messages: []domain.Turn{userTurn("hi")}})
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, h.svc.Stream(context.Background(), p, sink))
	require.IsType(t, ChatCreated{}, sink.events[0])
	require.Equal(t, Delta{Content: "from "}, sink.events[1])
	require.Equal(t, Delta{Content: "fallback"}, sink.events[2])
	require.IsType(t, Done{}, sink.events[3])
}

func TestStreamingClientGoneStopsProvider(t *testing.T) {
	primary := &scriptedProvider{name: "primary", tokens: []string{"a", "b", "c", "d"}}
	h := newHarness(t, primary, nil)
	user := identity.Identity{UserID: "u1"}

	p, err := h.svc.Prepare(context.Background(), TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("hi")}})
	require.NoError(t, err)

	sink := &recordingSink{failOn: 2}
	err = h.svc.Stream(context.Background(), p, sink)
	require.Error(t, err)

	msgs, err := h.store.ListMessages(context.Background(), p.Chat.ID, user.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestStreamingEmptyReply(t *testing.T) {
	h := newHarness(t, &scriptedProvider{name: "primary", tokens: []string{" ", "\n"}}, nil)
	user := identity.Identity{UserID: "u1"}

	p, err := h.svc.Prepare(context.Background(), TurnRequest{Identity: user, Messages: []domain.Turn{userTurn("hi")}})
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, h.svc.Stream(context.Background(), p, sink))
	require.Equal(t, Done{}, sink.events[len(sink.events)-1])

	msgs, err := h.store.ListMessages(context.Background(), p.Chat.ID, user.Owner())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}
