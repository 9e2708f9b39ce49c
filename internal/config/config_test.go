package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	cfg := FromEnv()
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.Equal(t, 10, cfg.GuestMessageLimit)
	require.Equal(t, DefaultFallbackBaseURL, cfg.FallbackBaseURL)
	require.Equal(t, 2*time.Second, cfg.DBConnectBackoff)
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.IsDevelopment())
}

func TestFromEnvParsesValues(t *testing.T) {
	t.Setenv("DB_CONNECT_BACKOFF", "250ms")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	cfg := FromEnv()
	require.Equal(t, 250*time.Millisecond, cfg.DBConnectBackoff)
	require.InDelta(t, 0.2, cfg.Temperature, 0.0001)
	require.Equal(t, 2048, cfg.MaxTokens)
}

func TestValidateProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("MEMORY_PROVIDER", "pinecone")
	cfg := FromEnv()
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET_KEY")
	require.Contains(t, err.Error(), "PINECONE_API_KEY")
	require.False(t, cfg.IsDevelopment())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	require.Error(t, FromEnv().Validate())
}

func TestAllowedOriginsList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	require.Equal(t, []string{"https://a.example", "https://b.example"}, FromEnv().AllowedOrigins)

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	require.Equal(t, []string{"*"}, FromEnv().AllowedOrigins)
}
