package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable code sent to clients.
type ErrorCode string

const (
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeGuestLimit       ErrorCode = "GUEST_LIMIT_REACHED"
	CodeNotConfigured    ErrorCode = "LLM_NOT_CONFIGURED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeProcessingFailed ErrorCode = "PROCESSING_ERROR"
)

type ChatError struct {
	Code      ErrorCode
	Operation string
	Message   string
	ChatID    string
	Remaining int
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chat %s error in %s: %s (caused by: %v)", e.Code, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("chat %s error in %s: %s", e.Code, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error { return e.Cause }

// HTTPStatus maps the code onto a response status.
func (e *ChatError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeGuestLimit:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Code: CodeValidation, Operation: operation, Message: msg}
}

func NewGuestLimitError() *ChatError {
	return &ChatError{
		Code:      CodeGuestLimit,
		Operation: "quota",
		Message:   "guest message limit reached, sign in to keep chatting",
		Remaining: 0,
	}
}

func NewNotConfiguredError(cause error) *ChatError {
	return &ChatError{Code: CodeNotConfigured, Operation: "completion", Message: "no LLM provider is configured", Cause: cause}
}

// NewNotFoundError never says whether the chat exists under another owner.
func NewNotFoundError(chatID string) *ChatError {
	return &ChatError{Code: CodeNotFound, Operation: "authorization", Message: "chat not found", ChatID: chatID}
}

func NewProcessingError(operation, msg string, cause error) *ChatError {
	return &ChatError{Code: CodeProcessingFailed, Operation: operation, Message: msg, Cause: cause}
}

// AsChatError returns err as a *ChatError, wrapping unknown errors as
// processing failures.
func AsChatError(err error) *ChatError {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce
	}
	return NewProcessingError("chat", "failed to process chat request", err)
}
