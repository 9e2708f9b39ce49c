package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{sugar: zap.New(core).Sugar()}

	l.Info("login", "username", "ali", "auth_token", "abc.def", "password", "hunter22")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "ali", fields["username"])
	require.Equal(t, "[REDACTED]", fields["auth_token"])
	require.Equal(t, "[REDACTED]", fields["password"])
}

func TestNewLoggerInTestEnv(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	_, ok := NewLogger("x").(*NoOpLogger)
	require.True(t, ok)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "debug", parseLevel("debug").String())
	require.Equal(t, "info", parseLevel("").String())
	require.Equal(t, "error", parseLevel("ERROR").String())
}
