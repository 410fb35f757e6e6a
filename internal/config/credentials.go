package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Credentials is the persisted client-local credential state. The API key is
// entered once through `gradbot config set-key` and cached between sessions.
type Credentials struct {
	APIKey string `yaml:"api_key"`
	UserID string `yaml:"user_id,omitempty"`
}

// CredentialsPath returns the credentials file location, honoring
// GRADBOT_CREDENTIALS for tests and non-standard setups.
func CredentialsPath() (string, error) {
	if p := os.Getenv("GRADBOT_CREDENTIALS"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "gradbot", "credentials.yaml"), nil
}

// LoadCredentials reads the credentials file. A missing file is an error;
// callers treat any error as "no credential configured".
func LoadCredentials() (Credentials, error) {
	var creds Credentials

	path, err := CredentialsPath()
	if err != nil {
		return creds, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}

	if err := yaml.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// SaveCredentials writes the credentials file with owner-only permissions.
func SaveCredentials(creds Credentials) error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
