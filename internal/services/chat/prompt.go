package chat

import (
	"fmt"
	"strings"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/services/ai"
	"github.com/iyunix/go-chatline/internal/services/memory"
)

const memoryFraming = "Previous context (use only if relevant to the current question):\n"

// MemoryMessages wraps each snippet as a synthetic assistant message.
func MemoryMessages(snippets []memory.Snippet) []ai.Message {
	out := make([]ai.Message, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, ai.Message{Role: ai.RoleAssistant, Content: memoryFraming + s.Text})
	}
	return out
}

// BuildPrompt returns the system prompt, then memory, then history in order.
// Image turns become multimodal entries; other attachments are referenced in
// the text of the turn that carried them.
func BuildPrompt(systemPrompt string, snippets []memory.Snippet, history []domain.Turn) []ai.Message {
	msgs := make([]ai.Message, 0, 1+len(snippets)+len(history))
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, MemoryMessages(snippets)...)

	for _, t := range history {
		if t == nil || !t.Role().Valid() {
			continue
		}
		msgs = append(msgs, turnMessage(t))
	}
	return msgs
}

func turnMessage(t domain.Turn) ai.Message {
	m := ai.Message{Role: string(t.Role()), Content: t.Text()}
	switch v := t.(type) {
	case domain.ImageTurn:
		if v.From == domain.RoleUser {
			m.ImageURL = v.URL
		} else {
			m.Content = appendFileNote(m.Content, domain.Attachment{URL: v.URL, Kind: domain.AttachmentImage})
		}
	case domain.DocumentTurn:
		m.Content = appendFileNote(m.Content, v.File)
	}
	return m
}

func appendFileNote(text string, a domain.Attachment) string {
	note := fmt.Sprintf("Attached file (%s): %s", a.Kind, a.URL)
	if strings.TrimSpace(text) == "" {
		return note
	}
	return text + "\n\n" + note
}
