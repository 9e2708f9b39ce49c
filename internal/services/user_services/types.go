package user_services

import "errors"

// Logger interface for all user services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrUsernameTaken      = errors.New("username already taken")
)

// ValidationError is returned for bad registration input.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return "validation failed: " + e.Reason }

// mask keeps the first few characters of an identifier for logs.
func mask(s string) string {
	return s[:min(4, len(s))] + "****"
}
