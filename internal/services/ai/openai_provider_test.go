package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewOpenAIProvider(&Config{Name: "primary", APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return p
}

func TestOpenAIGetCompletion(t *testing.T) {
	var got openai.ChatCompletionRequest
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`)
	})

	out, err := p.GetCompletion(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", out)
	require.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "be brief", got.Messages[0].Content)
}

func TestOpenAIStreamCompletion(t *testing.T) {
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"Hel", "lo", "!"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var parts []string
	err := p.StreamCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(s string) error {
		parts = append(parts, s)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Hel", "lo", "!"}, parts)
}

func TestOpenAIStreamStopsOnCallbackError(t *testing.T) {
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stop := errors.New("client gone")
	calls := 0
	err := p.StreamCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(string) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}

func TestOpenAIErrorClassification(t *testing.T) {
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	})

	_, err := p.GetCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	require.Equal(t, ErrTypeRateLimit, aiErr.Type)
	require.Equal(t, "primary", aiErr.Provider)
}

func TestToOpenAIMessagesMultimodal(t *testing.T) {
	out := toOpenAIMessages([]Message{
		{Role: RoleUser, Content: "what is this?", ImageURL: "https://x/cat.png"},
		{Role: RoleUser, ImageURL: "https://x/dog.png"},
		{Role: RoleAssistant, Content: "a cat"},
	})
	require.Len(t, out, 3)
	require.Empty(t, out[0].Content)
	require.Len(t, out[0].MultiContent, 2)
	require.Equal(t, openai.ChatMessagePartTypeText, out[0].MultiContent[0].Type)
	require.Equal(t, "https://x/cat.png", out[0].MultiContent[1].ImageURL.URL)
	require.Len(t, out[1].MultiContent, 1)
	require.Equal(t, "a cat", out[2].Content)
}

func TestNewOpenAIProviderValidates(t *testing.T) {
	_, err := NewOpenAIProvider(&Config{Name: "x", Model: "m", Timeout: time.Second})
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	require.Equal(t, ErrTypeConfig, aiErr.Type)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"e"}`)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(EmbeddingConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "e"})
	require.NoError(t, err)
	vec, err := e.CreateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 3)

	_, err = NewOpenAIEmbedder(EmbeddingConfig{Model: "e"})
	require.Error(t, err)
}

func TestIsCanceled(t *testing.T) {
	require.True(t, IsCanceled(NewProviderError("p", "streaming", "x", context.Canceled)))
	require.True(t, IsCanceled(context.Canceled))
	require.False(t, IsCanceled(errors.New("other")))
}
