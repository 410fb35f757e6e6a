package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRADBOT_CREDENTIALS", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()

	assert.Equal(t, "ws://localhost:8000/rpc", cfg.SurrealDBURL)
	assert.Equal(t, "gradbot", cfg.SurrealDBNamespace)
	assert.Equal(t, "chat", cfg.SurrealDBDatabase)
	assert.Equal(t, "https://ualr-chatbot-backend.onrender.com", cfg.BackendURL)
	assert.Equal(t, 60*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.Model)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Authenticated())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("GRADBOT_CREDENTIALS", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GRADBOT_DB_URL", "ws://db.example:9000/rpc")
	t.Setenv("GRADBOT_BACKEND_TIMEOUT", "15s")
	t.Setenv("GRADBOT_TOP_K", "5")
	t.Setenv("GRADBOT_MODEL", "gemini-2.0-pro")
	t.Setenv("GRADBOT_USER_ID", "student-1")
	t.Setenv("GRADBOT_API_KEY", "env-key")
	t.Setenv("GRADBOT_LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "ws://db.example:9000/rpc", cfg.SurrealDBURL)
	assert.Equal(t, 15*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "gemini-2.0-pro", cfg.Model)
	assert.Equal(t, "student-1", cfg.UserID)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Authenticated())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("GRADBOT_CREDENTIALS", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GRADBOT_TOP_K", "not-a-number")
	t.Setenv("GRADBOT_BACKEND_TIMEOUT", "-5s")
	t.Setenv("GRADBOT_LOG_LEVEL", "shout")

	cfg := Load()

	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 60*time.Second, cfg.BackendTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	t.Setenv("GRADBOT_CREDENTIALS", path)

	err := SaveCredentials(Credentials{APIKey: "key-123", UserID: "student-1"})
	require.NoError(t, err)

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "key-123", creds.APIKey)
	assert.Equal(t, "student-1", creds.UserID)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	t.Setenv("GRADBOT_CREDENTIALS", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadCredentials()
	assert.Error(t, err)
}

func TestLoadOverlaysStoredCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	t.Setenv("GRADBOT_CREDENTIALS", path)
	require.NoError(t, os.Unsetenv("GRADBOT_API_KEY"))
	require.NoError(t, os.Unsetenv("GRADBOT_USER_ID"))

	require.NoError(t, SaveCredentials(Credentials{APIKey: "stored-key", UserID: "stored-user"}))

	cfg := Load()
	assert.Equal(t, "stored-key", cfg.APIKey)
	assert.Equal(t, "stored-user", cfg.UserID)

	// Environment beats the stored file.
	t.Setenv("GRADBOT_API_KEY", "env-key")
	cfg = Load()
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "stored-user", cfg.UserID)
}
