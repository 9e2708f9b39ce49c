// File: internal/middleware/constants.go
package middleware

// Context keys for middleware communication
type contextKey string

const (
	IdentityKey  contextKey = "identity"
	RequestIDKey contextKey = "request_id"
)

const (
	AuthCookieName       = "auth_token"
	GuestIDHeader        = "X-Guest-Id"
	GuestRemainingHeader = "X-Guest-Remaining"
	RequestIDHeader      = "X-Request-Id"
)

// Logger is satisfied by services.Logger.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
