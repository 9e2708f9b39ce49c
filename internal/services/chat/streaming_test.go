package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamMachine_NewChat(t *testing.T) {
	var m StreamMachine
	require.Equal(t, StateOpen, m.State())

	require.NoError(t, m.Apply(ChatCreated{ChatID: "c1"}))
	require.Equal(t, StateStreaming, m.State())
	require.ErrorIs(t, m.Apply(ChatCreated{ChatID: "c1"}), ErrDuplicateChatCreated)

	require.NoError(t, m.Apply(Delta{Content: "a"}))
	require.NoError(t, m.Apply(Delta{Content: "b"}))
	require.NoError(t, m.Apply(Done{}))
	require.Equal(t, StateDone, m.State())

	require.ErrorIs(t, m.Apply(Delta{Content: "late"}), ErrStreamClosed)
}

func TestStreamMachine_ChatIDOnlyFirst(t *testing.T) {
	var m StreamMachine
	require.NoError(t, m.Apply(Delta{Content: "a"}))
	require.ErrorIs(t, m.Apply(ChatCreated{ChatID: "c1"}), ErrDuplicateChatCreated)
}

func TestStreamMachine_Abort(t *testing.T) {
	var m StreamMachine
	require.NoError(t, m.Apply(Delta{Content: "a"}))
	require.NoError(t, m.Apply(Aborted{Err: errors.New("boom")}))
	require.Equal(t, StateAborted, m.State())
	require.ErrorIs(t, m.Apply(Done{}), ErrStreamClosed)
}

func TestStreamMachine_EmptyReplyGoesStraightToDone(t *testing.T) {
	var m StreamMachine
	require.NoError(t, m.Apply(Done{}))
	require.Equal(t, StateDone, m.State())
	require.Equal(t, "DONE", m.State().String())
}
