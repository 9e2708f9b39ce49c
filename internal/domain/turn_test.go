package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTurnPicksVariant(t *testing.T) {
	turn, err := NewTurn("user", "  hello  ", "", "")
	require.NoError(t, err)
	require.Equal(t, TextTurn{From: RoleUser, Content: "hello"}, turn)

	turn, err = NewTurn("USER", "look", "https://cdn.example/cat.png", "image/png")
	require.NoError(t, err)
	require.IsType(t, ImageTurn{}, turn)
	a, ok := turn.Attachment()
	require.True(t, ok)
	require.Equal(t, AttachmentImage, a.Kind)

	turn, err = NewTurn("user", "", "https://cdn.example/report.pdf", "application/pdf")
	require.NoError(t, err)
	doc, ok := turn.(DocumentTurn)
	require.True(t, ok)
	require.Equal(t, AttachmentDocument, doc.File.Kind)

	_, err = NewTurn("tool", "x", "", "")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidateUserTurn(t *testing.T) {
	require.ErrorIs(t, ValidateUserTurn(TextTurn{From: RoleUser, Content: "   "}), ErrEmptyTurn)
	require.ErrorIs(t, ValidateUserTurn(nil), ErrEmptyTurn)
	require.ErrorIs(t, ValidateUserTurn(TextTurn{From: RoleAssistant, Content: "hi"}), ErrInvalidRole)
	require.NoError(t, ValidateUserTurn(TextTurn{From: RoleUser, Content: "hi"}))
	require.NoError(t, ValidateUserTurn(DocumentTurn{From: RoleUser, File: Attachment{URL: "u", Kind: AttachmentAudio}}))
}

func TestParseAttachmentKind(t *testing.T) {
	cases := map[string]AttachmentKind{
		"image":                    AttachmentImage,
		"image/jpeg":               AttachmentImage,
		"video/mp4":                AttachmentVideo,
		"audio/mpeg":               AttachmentAudio,
		"application/pdf":          AttachmentDocument,
		"text/plain":               AttachmentDocument,
		"application/octet-stream": AttachmentOther,
		"":                         AttachmentOther,
		"pdf":                      AttachmentDocument,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseAttachmentKind(in), in)
	}
}

func TestTurnFromMessageRoundTrip(t *testing.T) {
	m := Message{Role: RoleUser, Content: "see", FileURL: "u", FileKind: AttachmentImage}
	require.Equal(t, ImageTurn{From: RoleUser, Content: "see", URL: "u"}, TurnFromMessage(m))

	edited := WithText(TurnFromMessage(m), "edited")
	require.Equal(t, "edited", edited.Text())
	_, ok := edited.Attachment()
	require.True(t, ok)
}
