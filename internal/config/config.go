package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Remote RAG backend
	BackendURL     string
	BackendTimeout time.Duration

	// Query parameters
	Model string
	TopK  int

	// User identity. Authentication is delegated to the managed backend;
	// the app only consumes the resolved owner id for row scoping.
	UserID string

	// Query-service credential, injected into the conversation store.
	APIKey string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables (and a .env file if
// present), then overlays the persisted credentials file for APIKey/UserID
// when the environment doesn't provide them.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		SurrealDBURL:       getEnv("GRADBOT_DB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("GRADBOT_DB_NAMESPACE", "gradbot"),
		SurrealDBDatabase:  getEnv("GRADBOT_DB_DATABASE", "chat"),
		SurrealDBUser:      getEnv("GRADBOT_DB_USER", "root"),
		SurrealDBPass:      getEnv("GRADBOT_DB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("GRADBOT_DB_AUTH_LEVEL", "root"),

		BackendURL:     getEnv("GRADBOT_BACKEND_URL", "https://ualr-chatbot-backend.onrender.com"),
		BackendTimeout: getDuration("GRADBOT_BACKEND_TIMEOUT", 60*time.Second),

		Model: getEnv("GRADBOT_MODEL", "gemini-2.0-flash-lite"),
		TopK:  getInt("GRADBOT_TOP_K", 3),

		UserID: os.Getenv("GRADBOT_USER_ID"),
		APIKey: os.Getenv("GRADBOT_API_KEY"),

		LogFile:  getEnv("GRADBOT_LOG_FILE", "/tmp/gradbot.log"),
		LogLevel: parseLogLevel(getEnv("GRADBOT_LOG_LEVEL", "INFO")),
	}

	if cfg.APIKey == "" || cfg.UserID == "" {
		if creds, err := LoadCredentials(); err == nil {
			if cfg.APIKey == "" {
				cfg.APIKey = creds.APIKey
			}
			if cfg.UserID == "" {
				cfg.UserID = creds.UserID
			}
		}
	}

	return cfg
}

// Authenticated reports whether a resolved user identity is available.
func (c Config) Authenticated() bool {
	return c.UserID != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
