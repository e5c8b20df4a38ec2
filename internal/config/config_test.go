package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	want := Default()
	require.Equal(t, want.Addr, cfg.Addr)
	require.Equal(t, want.HeartbeatInterval, cfg.HeartbeatInterval)
	require.Equal(t, want.SendBuffer, cfg.SendBuffer)
	require.Equal(t, want.MaxMessageBytes, cfg.MaxMessageBytes)
	require.Empty(t, cfg.AllowedOrigins)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9000\"\nheartbeat_interval: 10s\nmessages_per_minute: 120\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SIGRELAY_ADDR", ":9100")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Addr)
	require.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	require.Equal(t, 120, cfg.MessagesPerMinute)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("heartbeat_interval: 0s\n"), 0o600))

	_, _, err := Load(nil, path)
	require.ErrorContains(t, err, "heartbeat_interval")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.JWTRequired = true
	require.ErrorContains(t, cfg.Validate(), "jwt_secret")

	cfg.JWTSecret = "s"
	cfg.SendBuffer = 0
	require.ErrorContains(t, cfg.Validate(), "send_buffer")
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", LogLevel: "debug", JWTRequired: true})

	require.Equal(t, ":1", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.JWTRequired)
	require.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
}
