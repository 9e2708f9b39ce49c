package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Turn is one entry of the conversation history submitted by a client.
// The concrete type says what the turn carries; callers switch on it
// instead of probing optional fields.
type Turn interface {
	Role() Role
	Text() string
	Attachment() (Attachment, bool)
	turn()
}

// TextTurn is a plain text turn.
type TextTurn struct {
	From    Role
	Content string
}

// ImageTurn carries an image that is sent to the model as multimodal input.
type ImageTurn struct {
	From    Role
	Content string
	URL     string
}

// DocumentTurn carries any non-image file: documents, audio, video and the rest.
// The model only sees a textual reference to it.
type DocumentTurn struct {
	From    Role
	Content string
	File    Attachment
}

func (t TextTurn) Role() Role                     { return t.From }
func (t TextTurn) Text() string                   { return t.Content }
func (t TextTurn) Attachment() (Attachment, bool) { return Attachment{}, false }
func (TextTurn) turn()                            {}

func (t ImageTurn) Role() Role   { return t.From }
func (t ImageTurn) Text() string { return t.Content }
func (t ImageTurn) Attachment() (Attachment, bool) {
	return Attachment{URL: t.URL, Kind: AttachmentImage}, true
}
func (ImageTurn) turn() {}

func (t DocumentTurn) Role() Role                     { return t.From }
func (t DocumentTurn) Text() string                   { return t.Content }
func (t DocumentTurn) Attachment() (Attachment, bool) { return t.File, true }
func (DocumentTurn) turn()                            {}

var (
	ErrInvalidRole = errors.New("invalid turn role")
	ErrEmptyTurn   = errors.New("turn must have content or an attachment")
)

// NewTurn builds the turn variant matching the optional file fields.
func NewTurn(role, content, fileURL, fileType string) (Turn, error) {
	r := Role(strings.ToLower(strings.TrimSpace(role)))
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	content = strings.TrimSpace(content)
	fileURL = strings.TrimSpace(fileURL)
	if fileURL == "" {
		return TextTurn{From: r, Content: content}, nil
	}
	kind := ParseAttachmentKind(fileType)
	if kind == AttachmentImage {
		return ImageTurn{From: r, Content: content, URL: fileURL}, nil
	}
	return DocumentTurn{From: r, Content: content, File: Attachment{URL: fileURL, Kind: kind}}, nil
}

// ValidateUserTurn checks the new turn a client is submitting.
func ValidateUserTurn(t Turn) error {
	if t == nil {
		return ErrEmptyTurn
	}
	if t.Role() != RoleUser {
		return fmt.Errorf("%w: last turn must come from the user", ErrInvalidRole)
	}
	_, hasFile := t.Attachment()
	if strings.TrimSpace(t.Text()) == "" && !hasFile {
		return ErrEmptyTurn
	}
	return nil
}

// WithText returns a copy of t with its text replaced.
func WithText(t Turn, text string) Turn {
	switch v := t.(type) {
	case TextTurn:
		v.Content = text
		return v
	case ImageTurn:
		v.Content = text
		return v
	case DocumentTurn:
		v.Content = text
		return v
	}
	return t
}

// TurnFromMessage rebuilds the turn a persisted message came from.
func TurnFromMessage(m Message) Turn {
	switch {
	case m.FileURL == "":
		return TextTurn{From: m.Role, Content: m.Content}
	case m.FileKind == AttachmentImage:
		return ImageTurn{From: m.Role, Content: m.Content, URL: m.FileURL}
	default:
		return DocumentTurn{From: m.Role, Content: m.Content, File: Attachment{URL: m.FileURL, Kind: m.FileKind}}
	}
}
