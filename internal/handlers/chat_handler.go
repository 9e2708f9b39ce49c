// File: internal/handlers/chat_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatline/internal/domain"
	"github.com/iyunix/go-chatline/internal/dtos"
	"github.com/iyunix/go-chatline/internal/middleware"
	"github.com/iyunix/go-chatline/internal/services/chat"
	"github.com/iyunix/go-chatline/internal/services/conversation"
	"github.com/iyunix/go-chatline/internal/services/identity"
	"github.com/iyunix/go-chatline/internal/services/quota"
)

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type ChatHandler struct {
	ChatService *chat.Service
	Store       *conversation.Store
	Guard       *quota.GuestGuard
	logger      Logger
	// exposeErrors adds internal error detail to responses (development only)
	exposeErrors bool
}

func NewChatHandler(cs *chat.Service, store *conversation.Store, guard *quota.GuestGuard, logger Logger, exposeErrors bool) *ChatHandler {
	return &ChatHandler{
		ChatService:  cs,
		Store:        store,
		Guard:        guard,
		logger:       logger,
		exposeErrors: exposeErrors,
	}
}

func requestIdentity(r *http.Request) identity.Identity {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		// routes are always wrapped by the identity middleware
		return identity.Identity{GuestID: identity.NewGuestID(), NewGuest: true}
	}
	return id
}

// HandleChat accepts one turn and answers with JSON or an event stream.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)

	var req dtos.ChatRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeChatError(w, chat.NewValidationError("decode", "invalid request body"))
		return
	}
	turns, err := req.Turns()
	if err != nil {
		h.writeChatError(w, chat.NewValidationError("decode", err.Error()))
		return
	}

	turnReq := chat.TurnRequest{Identity: id, Messages: turns, ChatID: strings.TrimSpace(req.ChatID)}
	if req.RegenerateFromIndex != nil {
		turnReq.Regenerate = &chat.Regeneration{Index: *req.RegenerateFromIndex, EditedContent: req.EditedContent}
	}

	prepared, err := h.ChatService.Prepare(r.Context(), turnReq)
	if err != nil {
		h.writeChatError(w, err)
		return
	}
	if id.IsGuest() {
		w.Header().Set(middleware.GuestRemainingHeader, strconv.Itoa(prepared.Remaining()))
	}

	if req.Stream {
		sink, err := startSSE(w)
		if err != nil {
			h.writeChatError(w, chat.NewProcessingError("stream", "streaming unsupported", err))
			return
		}
		if err := h.ChatService.Stream(r.Context(), prepared, sink); err != nil {
			h.logger.Warn("stream ended without completion", "chat_id", prepared.Chat.ID, "error", err)
		}
		return
	}

	reply, err := h.ChatService.Complete(r.Context(), prepared)
	if err != nil {
		h.writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ChatResponseDTO{
		Response:  reply.Response,
		ChatID:    reply.ChatID,
		Remaining: reply.Remaining,
		GuestID:   reply.GuestID,
	})
}

func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	limit, offset := pagination(r, 50, 100)

	chats, total, err := h.Store.ListChats(r.Context(), id.Owner(), limit, offset)
	if err != nil {
		h.logger.Error("list chats failed", "owner", id.Owner().String(), "error", err)
		writeError(w, http.StatusInternalServerError, string(chat.CodeProcessingFailed), "could not retrieve chats")
		return
	}

	resp := dtos.ChatListResponseDTO{Chats: make([]dtos.ChatSummaryDTO, 0, len(chats)), Total: total}
	for _, c := range chats {
		resp.Chats = append(resp.Chats, dtos.ToChatSummary(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	chatID := mux.Vars(r)["id"]
	limit, offset := pagination(r, 200, 500)

	msgs, total, err := h.Store.ListMessagesPage(r.Context(), chatID, id.Owner(), limit, offset)
	if err != nil {
		h.writeStoreError(w, chatID, err)
		return
	}

	resp := dtos.MessageListResponseDTO{Messages: make([]dtos.MessageDTO, 0, len(msgs)), Total: total}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, dtos.ToMessageDTO(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	chatID := mux.Vars(r)["id"]

	var req dtos.RenameChatRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(chat.CodeValidation), "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > domain.MaxTitleLength {
		writeError(w, http.StatusBadRequest, string(chat.CodeValidation), "title must be 1-100 characters")
		return
	}

	if err := h.Store.RenameChat(r.Context(), chatID, id.Owner(), title); err != nil {
		h.writeStoreError(w, chatID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	chatID := mux.Vars(r)["id"]

	if err := h.Store.DeleteChat(r.Context(), chatID, id.Owner()); err != nil {
		h.writeStoreError(w, chatID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetQuota reports the caller's remaining guest messages.
func (h *ChatHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	if !id.IsGuest() {
		writeJSON(w, http.StatusOK, dtos.QuotaResponseDTO{Remaining: quota.Unlimited})
		return
	}

	status, err := h.Guard.Check(r.Context(), id)
	if err != nil && !errors.Is(err, quota.ErrLimitReached) {
		h.logger.Error("quota check failed", "guest_id", id.GuestID, "error", err)
		writeError(w, http.StatusInternalServerError, string(chat.CodeProcessingFailed), "could not check quota")
		return
	}
	w.Header().Set(middleware.GuestRemainingHeader, strconv.Itoa(status.Remaining))
	writeJSON(w, http.StatusOK, dtos.QuotaResponseDTO{Remaining: status.Remaining, Limit: status.Limit, GuestID: id.GuestID})
}

func (h *ChatHandler) writeStoreError(w http.ResponseWriter, chatID string, err error) {
	if errors.Is(err, conversation.ErrNotFound) {
		h.writeChatError(w, chat.NewNotFoundError(chatID))
		return
	}
	h.writeChatError(w, chat.NewProcessingError("chat_store", "could not complete the request", err))
}

// writeChatError sends the single error response of a request.
func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error) {
	ce := chat.AsChatError(err)
	status := ce.HTTPStatus()

	body := dtos.ErrorResponseDTO{Error: string(ce.Code), Message: ce.Message}
	if ce.Code == chat.CodeGuestLimit {
		zero := 0
		body.Remaining = &zero
		w.Header().Set(middleware.GuestRemainingHeader, "0")
	}
	if h.exposeErrors && ce.Cause != nil {
		body.Detail = ce.Cause.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed", "code", ce.Code, "operation", ce.Operation, "error", err)
	} else {
		h.logger.Debug("chat request rejected", "code", ce.Code, "operation", ce.Operation, "message", ce.Message)
	}
	writeJSON(w, status, body)
}
