package dtos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatline/internal/domain"
)

func TestChatRequestTurns(t *testing.T) {
	raw := `{
		"messages": [
			{"role": "user", "content": "look"},
			{"role": "assistant", "content": "at what?"},
			{"role": "user", "content": "this", "fileUrl": "https://x/p.png", "fileType": "image/png"},
			{"role": "user", "content": "and this", "fileUrl": "https://x/r.pdf", "fileType": "application/pdf"}
		],
		"chatId": "c1",
		"regenerateFromIndex": 2,
		"stream": true
	}`
	var req ChatRequestDTO
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	require.True(t, req.Stream)
	require.NotNil(t, req.RegenerateFromIndex)
	require.Equal(t, 2, *req.RegenerateFromIndex)

	turns, err := req.Turns()
	require.NoError(t, err)
	require.Len(t, turns, 4)
	require.IsType(t, domain.TextTurn{}, turns[0])
	require.Equal(t, domain.RoleAssistant, turns[1].Role())
	require.Equal(t, domain.ImageTurn{From: domain.RoleUser, Content: "this", URL: "https://x/p.png"}, turns[2])
	doc, ok := turns[3].(domain.DocumentTurn)
	require.True(t, ok)
	require.Equal(t, domain.AttachmentDocument, doc.File.Kind)
}

func TestChatRequestTurns_BadRole(t *testing.T) {
	req := ChatRequestDTO{Messages: []TurnDTO{{Role: "user", Content: "ok"}, {Role: "robot", Content: "x"}}}
	_, err := req.Turns()
	require.ErrorIs(t, err, domain.ErrInvalidRole)
	require.Contains(t, err.Error(), "messages[1]")
}
