package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iyunix/go-chatline/internal/services/chat"
)

type sseChatFrame struct {
	ChatID string `json:"chatId"`
}

type sseDelta struct {
	Content string `json:"content"`
}

type sseChoice struct {
	Delta sseDelta `json:"delta"`
}

type sseContentFrame struct {
	Choices []sseChoice `json:"choices"`
}

// sseSink writes stream events as Server-Sent Events frames and flushes
// after each one.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// startSSE sends the stream headers. It fails before anything is written
// when the writer cannot flush.
func startSSE(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported by response writer")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseSink{w: w, flusher: flusher}, nil
}

func (s *sseSink) Send(ev chat.Event) error {
	switch e := ev.(type) {
	case chat.ChatCreated:
		return s.data(sseChatFrame{ChatID: e.ChatID})
	case chat.Delta:
		return s.data(sseContentFrame{Choices: []sseChoice{{Delta: sseDelta{Content: e.Content}}}})
	case chat.Done:
		return s.raw("[DONE]")
	case chat.Aborted:
		// no sentinel: the client treats a close without [DONE] as failure
		return nil
	}
	return fmt.Errorf("unknown stream event %T", ev)
}

func (s *sseSink) data(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.raw(string(b))
}

func (s *sseSink) raw(payload string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
