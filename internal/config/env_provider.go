package config

import (
	"context"
	"os"
)

// EnvProvider reads secrets straight from environment variables. It is
// the last link in the provider chain, covering local development and
// docker-compose setups where no secret mounts exist.
// Example: JWT_SECRET, DATABASE_PASSWORD exported in the shell.
type EnvProvider struct{}

// NewEnvProvider creates an environment variable provider
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret looks the key up as an environment variable. An unset
// variable yields an empty value, which the chain treats as a miss.
func (e *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return os.Getenv(key), nil
}

// Name returns the provider name
func (e *EnvProvider) Name() string {
	return "env"
}

// IsAvailable reports true unconditionally; the process environment is
// always readable
func (e *EnvProvider) IsAvailable(ctx context.Context) bool {
	return true
}
