// File: internal/handlers/auth_handlers.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/iyunix/go-chatline/internal/dtos"
	"github.com/iyunix/go-chatline/internal/middleware"
	"github.com/iyunix/go-chatline/internal/ratelimit"
	"github.com/iyunix/go-chatline/internal/services/user_services"
)

const sessionTTL = 24 * time.Hour

// AuthHandler holds the dependencies for authentication handlers.
type AuthHandler struct {
	UserService  *user_services.UserService
	logger       Logger
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie should be false only
// for plain-HTTP development servers.
func NewAuthHandler(service *user_services.UserService, logger Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{UserService: service, logger: logger, secureCookie: secureCookie}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds dtos.UserCredentialsDTO
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	u, token, err := h.UserService.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, dtos.UserAuthResponseDTO{User: dtos.ToUserResponse(u), Token: token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds dtos.UserCredentialsDTO
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	u, token, err := h.UserService.Login(r.Context(), creds.Username, creds.Password, ratelimit.GetClientIP(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, dtos.UserAuthResponseDTO{User: dtos.ToUserResponse(u), Token: token})
}

// Logout clears the session cookie. Bearer tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user. The route requires a user identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := requestIdentity(r)
	u, err := h.UserService.GetUser(r.Context(), id.UserID)
	if err != nil {
		h.logger.Warn("user lookup failed", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToUserResponse(u))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Expires:  time.Now().Add(sessionTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var verr *user_services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Reason)
	case errors.Is(err, user_services.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "username already taken")
	case errors.Is(err, user_services.ErrAccountLocked):
		writeError(w, http.StatusTooManyRequests, "ACCOUNT_LOCKED", "too many failed attempts, try again later")
	case errors.Is(err, user_services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
	default:
		h.logger.Error("authentication failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	}
}
