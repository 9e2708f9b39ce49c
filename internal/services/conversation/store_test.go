package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository/chat"
	"github.com/iyunix/go-chatline/internal/repository/message"
	"github.com/iyunix/go-chatline/internal/repository/repotest"
	"github.com/iyunix/go-chatline/internal/services"
)

func newStore(t *testing.T) *Store {
	db := repotest.NewDB(t)
	return NewStore(chat.NewChatRepository(db), message.NewMessageRepository(db), &services.NoOpLogger{})
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := domain.UserOwner("a")
	b := domain.UserOwner("b")

	c, err := s.CreateChat(ctx, a, "secret")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c, &domain.Message{Role: domain.RoleUser, Content: "my secret"})
	require.NoError(t, err)

	_, err = s.ListMessages(ctx, c.ID, b)
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.ListMessagesPage(ctx, c.ID, b, 10, 0)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.DeleteChat(ctx, c.ID, b), ErrNotFound)
	require.ErrorIs(t, s.RenameChat(ctx, c.ID, b, "x"), ErrNotFound)

	msgs, err := s.ListMessages(ctx, c.ID, a)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "a", msgs[0].UserID)
}

func TestTruncateAfter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	g := domain.GuestOwner("guest-1")
	c, err := s.CreateChat(ctx, g, "t")
	require.NoError(t, err)
	for _, content := range []string{"u0", "a0", "u1", "a1", "u2"} {
		role := domain.RoleUser
		if content[0] == 'a' {
			role = domain.RoleAssistant
		}
		_, err := s.AppendMessage(ctx, c, &domain.Message{Role: role, Content: content})
		require.NoError(t, err)
	}

	require.NoError(t, s.TruncateAfter(ctx, c, 2))
	msgs, err := s.ListMessages(ctx, c.ID, g)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "u1", msgs[2].Content)

	n, err := s.CountGuestMessages(ctx, "guest-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestCreateChatRejectsAmbiguousOwner(t *testing.T) {
	_, err := newStore(t).CreateChat(context.Background(), domain.Owner{}, "x")
	require.Error(t, err)
}
