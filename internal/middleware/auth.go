package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatline/internal/services/identity"
)

// NewIdentityMiddleware resolves every request to a user or a guest. It never
// rejects: a missing or invalid token just means the caller is a guest.
func NewIdentityMiddleware(resolver *identity.Resolver, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie(AuthCookieName); err == nil {
					token = cookie.Value
				}
			}

			id := resolver.Resolve(token, r.Header.Get(GuestIDHeader))
			if token != "" && id.IsGuest() {
				logger.Debug("ignoring invalid auth token", "path", r.URL.Path)
			}
			if id.IsGuest() {
				w.Header().Set(GuestIDHeader, id.GuestID)
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects guests. It must run after NewIdentityMiddleware.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || id.IsGuest() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"UNAUTHORIZED","message":"sign in required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(identity.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
