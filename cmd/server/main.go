// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iyunix/go-chatline/internal/config"
	"github.com/iyunix/go-chatline/internal/handlers"
	"github.com/iyunix/go-chatline/internal/ratelimit"
	"github.com/iyunix/go-chatline/internal/repository"
	chatrepo "github.com/iyunix/go-chatline/internal/repository/chat"
	"github.com/iyunix/go-chatline/internal/repository/message"
	"github.com/iyunix/go-chatline/internal/repository/user"
	"github.com/iyunix/go-chatline/internal/services"
	"github.com/iyunix/go-chatline/internal/services/chat"
	"github.com/iyunix/go-chatline/internal/services/completion"
	"github.com/iyunix/go-chatline/internal/services/conversation"
	"github.com/iyunix/go-chatline/internal/services/identity"
	"github.com/iyunix/go-chatline/internal/services/memory"
	"github.com/iyunix/go-chatline/internal/services/notify"
	"github.com/iyunix/go-chatline/internal/services/quota"
	"github.com/iyunix/go-chatline/internal/services/user_services"
)

func main() {
	cfg := config.Load()

	logger, err := services.NewZapLogger("chatline", cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger Error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := repository.Open(ctx, repository.StoreConfig{
		Driver:         cfg.DatabaseDriver,
		DSN:            cfg.DatabaseURL,
		ConnectRetries: cfg.DBConnectRetries,
		ConnectBackoff: cfg.DBConnectBackoff,
		Debug:          cfg.IsDevelopment() && cfg.LogLevel == "DEBUG",
	})
	if err != nil {
		logger.Error("database unavailable", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}

	// --- Repositories ---
	userRepo := user.NewGormUserRepository(db)
	store := conversation.NewStore(chatrepo.NewChatRepository(db), message.NewMessageRepository(db), logger.With("component", "conversation"))

	// --- Services ---
	guard := quota.NewGuestGuard(store, cfg.GuestMessageLimit)

	memStore, err := memory.NewFromConfig(cfg, logger.With("component", "memory"))
	if err != nil {
		logger.Error("memory store init failed, continuing without memory", "provider", cfg.MemoryProvider, "error", err)
		memStore = memory.NoopStore{}
	}
	augmenter := memory.NewAugmenter(memStore, logger.With("component", "memory"))

	engine, err := completion.NewFromConfig(ctx, cfg, logger.With("component", "completion"))
	if err != nil {
		logger.Error("completion engine init failed", "error", err)
		os.Exit(1)
	}
	if !engine.Configured() {
		logger.Warn("no LLM provider configured; turns will fail with LLM_NOT_CONFIGURED")
	}

	var publisher chat.Publisher
	if cfg.RedisAddr != "" {
		n, err := notify.NewRedisNotifier(ctx, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			logger.Warn("redis unavailable, turn notifications disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer n.Close()
			publisher = n
		}
	}

	chatCfg := chat.DefaultConfig()
	if cfg.SystemPrompt != "" {
		chatCfg.SystemPrompt = cfg.SystemPrompt
	}
	chatService, err := chat.NewService(chatCfg, store, guard, augmenter, engine, publisher, logger.With("component", "chat"))
	if err != nil {
		logger.Error("chat service init failed", "error", err)
		os.Exit(1)
	}

	authLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultAuthConfig())
	defer authLimiter.Close()
	lockoutLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.LockoutConfig())
	defer lockoutLimiter.Close()

	userService := user_services.NewUserService(userRepo, cfg.JWTSecretKey, lockoutLimiter, logger.With("component", "auth"))

	// --- Router Setup ---
	httpLogger := logger.With("component", "http")
	router := handlers.NewRouter(handlers.RouterDeps{
		Chat:           handlers.NewChatHandler(chatService, store, guard, httpLogger, cfg.IsDevelopment()),
		Auth:           handlers.NewAuthHandler(userService, httpLogger, cfg.IsProduction()),
		Log:            handlers.NewLogHandler(logger.With("component", "frontend")),
		Resolver:       identity.NewResolver(cfg.JWTSecretKey),
		AuthLimiter:    authLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         httpLogger,
	})

	// --- Server Configuration ---
	port := ":8080"
	if cfg.ServerPort != "" {
		port = ":" + cfg.ServerPort
	}
	srv := &http.Server{
		Addr:              port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting",
		"port", port,
		"env", cfg.Environment,
		"database", cfg.DatabaseDriver,
		"memory", memStore.Name(),
		"guest_limit", guard.Limit())

	// --- Start Server in Goroutine ---
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server startup failed", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped gracefully")
}
