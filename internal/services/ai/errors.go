// G:\go_chatline\internal\services\ai\errors.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeRateLimit  ErrorType = "RATE_LIMIT"
	ErrTypeAuth       ErrorType = "AUTH"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeCanceled   ErrorType = "CANCELED"
)

type AIError struct {
	Type      ErrorType
	Code      int
	Message   string
	Provider  string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s/%s: %s (caused by: %v)",
			e.Type, e.Provider, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s/%s: %s", e.Type, e.Provider, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error { return e.Cause }

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

// NewProviderError classifies cause by inspecting SDK error types.
func NewProviderError(provider, operation, msg string, cause error) *AIError {
	e := &AIError{Type: ErrTypeProvider, Provider: provider, Operation: operation, Message: msg, Cause: cause}

	var oaErr *openai.APIError
	var reqErr *openai.RequestError
	var gErr genai.APIError
	switch {
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		e.Type = ErrTypeCanceled
	case errors.As(cause, &oaErr):
		e.Code = oaErr.HTTPStatusCode
	case errors.As(cause, &reqErr):
		e.Code = reqErr.HTTPStatusCode
	case errors.As(cause, &gErr):
		e.Code = gErr.Code
	}
	switch {
	case e.Code == http.StatusTooManyRequests:
		e.Type = ErrTypeRateLimit
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		e.Type = ErrTypeAuth
	case e.Code == http.StatusBadRequest:
		e.Type = ErrTypeValidation
	}
	return e
}

// IsCanceled reports whether err came from the caller going away.
func IsCanceled(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) && aiErr.Type == ErrTypeCanceled {
		return true
	}
	return errors.Is(err, context.Canceled)
}
