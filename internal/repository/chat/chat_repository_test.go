package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/repository/repotest"
)

func TestCreateAndFindByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(repotest.NewDB(t))

	alice := domain.UserOwner("alice")
	created, err := repo.Create(ctx, &domain.Chat{UserID: "alice", Title: "  "})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, domain.DefaultChatTitle, created.Title)

	found, err := repo.FindByIDAndOwner(ctx, created.ID, alice)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = repo.FindByIDAndOwner(ctx, created.ID, domain.UserOwner("bob"))
	require.ErrorIs(t, err, ErrChatNotFound)
	_, err = repo.FindByIDAndOwner(ctx, created.ID, domain.GuestOwner("guest-x"))
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestCreateRequiresExactlyOneOwner(t *testing.T) {
	repo := NewChatRepository(repotest.NewDB(t))
	_, err := repo.Create(context.Background(), &domain.Chat{Title: "x"})
	require.Error(t, err)
	_, err = repo.Create(context.Background(), &domain.Chat{UserID: "u", GuestID: "g", Title: "x"})
	require.Error(t, err)
}

func TestDeleteCascadesAndIsOwnerFiltered(t *testing.T) {
	ctx := context.Background()
	db := repotest.NewDB(t)
	repo := NewChatRepository(db)

	guest := domain.GuestOwner("guest-1")
	c, err := repo.Create(ctx, &domain.Chat{GuestID: "guest-1", Title: "hi"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Message{ChatID: c.ID, GuestID: "guest-1", Role: domain.RoleUser, Content: "hi"}).Error)

	require.ErrorIs(t, repo.Delete(ctx, c.ID, domain.GuestOwner("guest-2")), ErrChatNotFound)
	require.NoError(t, repo.Delete(ctx, c.ID, guest))

	var remaining int64
	require.NoError(t, db.Model(&domain.Message{}).Where("chat_id = ?", c.ID).Count(&remaining).Error)
	require.Zero(t, remaining)

	require.ErrorIs(t, repo.Delete(ctx, c.ID, guest), ErrChatNotFound)
}

func TestPaginationAndRename(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(repotest.NewDB(t))
	owner := domain.UserOwner("u1")

	var ids []string
	for i := 0; i < 3; i++ {
		c, err := repo.Create(ctx, &domain.Chat{UserID: "u1", Title: "chat"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	_, err := repo.Create(ctx, &domain.Chat{UserID: "u2", Title: "other"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateTitle(ctx, ids[0], owner, "Renamed"))
	require.ErrorIs(t, repo.UpdateTitle(ctx, ids[0], domain.UserOwner("u2"), "nope"), ErrChatNotFound)
	require.Error(t, repo.UpdateTitle(ctx, ids[0], owner, "   "))

	page, total, err := repo.FindByOwnerWithPagination(ctx, owner, 2, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	// renamed chat was touched last
	require.Equal(t, ids[0], page[0].ID)
	require.Equal(t, "Renamed", page[0].Title)

	_, _, err = repo.FindByOwnerWithPagination(ctx, owner, 0, 0)
	require.Error(t, err)

	n, err := repo.CountByOwner(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestTouchUpdatedAtMissingChat(t *testing.T) {
	repo := NewChatRepository(repotest.NewDB(t))
	require.ErrorIs(t, repo.TouchUpdatedAt(context.Background(), "missing"), ErrChatNotFound)
}
