package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatline/internal/middleware"
	"github.com/iyunix/go-chatline/internal/ratelimit"
	"github.com/iyunix/go-chatline/internal/services/identity"
)

// RouterDeps collects what the HTTP surface needs.
type RouterDeps struct {
	Chat           *ChatHandler
	Auth           *AuthHandler
	Log            *LogHandler
	Resolver       *identity.Resolver
	AuthLimiter    *ratelimit.MemoryRateLimiter
	AllowedOrigins []string
	Logger         Logger
}

func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.NewRecoverPanic(d.Logger))
	r.Use(middleware.NewLoggingMiddleware(d.Logger))
	r.Use(middleware.NewCORSMiddleware(d.AllowedOrigins))

	// --- Public Routes ---
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Use(middleware.RateLimitMiddleware(d.AuthLimiter, "auth", d.Logger))
	authRoutes.Use(middleware.AuthSuccessMiddleware(d.AuthLimiter, "auth"))
	authRoutes.HandleFunc("/register", d.Auth.Register).Methods(http.MethodPost, http.MethodOptions)
	authRoutes.HandleFunc("/login", d.Auth.Login).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/auth/logout", d.Auth.Logout).Methods(http.MethodPost, http.MethodOptions)

	// --- Identity-resolved Routes (guests and users) ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewIdentityMiddleware(d.Resolver, d.Logger))
	api.HandleFunc("/log", d.Log.LogFrontendEvent).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/chat", d.Chat.HandleChat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/quota", d.Chat.GetQuota).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/chats", d.Chat.GetChats).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/chats/{id}/messages", d.Chat.GetChatMessages).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/chats/{id}", d.Chat.RenameChat).Methods(http.MethodPatch, http.MethodOptions)
	api.HandleFunc("/chats/{id}", d.Chat.DeleteChat).Methods(http.MethodDelete, http.MethodOptions)
	api.Handle("/auth/me", middleware.RequireUser(http.HandlerFunc(d.Auth.Me))).Methods(http.MethodGet, http.MethodOptions)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}
