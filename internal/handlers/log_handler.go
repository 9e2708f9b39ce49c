package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-chatline/internal/middleware"
)

const maxClientLogMessage = 2000

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

type LogHandler struct {
	logger Logger
}

func NewLogHandler(logger Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// LogFrontendEvent forwards a browser-side log line to the server logger.
func (h *LogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	msg := payload.Message
	if utf8.RuneCountInString(msg) > maxClientLogMessage {
		msg = string([]rune(msg)[:maxClientLogMessage])
	}

	fields := []interface{}{"message", msg, "context", payload.Context}
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		fields = append(fields, "owner", id.Owner().String())
	}

	switch strings.ToLower(payload.Level) {
	case "error":
		h.logger.Error("CLIENT_LOG", fields...)
	case "warn", "warning":
		h.logger.Warn("CLIENT_LOG", fields...)
	case "debug":
		h.logger.Debug("CLIENT_LOG", fields...)
	default:
		h.logger.Info("CLIENT_LOG", fields...)
	}

	w.WriteHeader(http.StatusNoContent)
}
