package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// JWTConfig holds configuration for JWT token generation and validation.
// An empty Secret disables bearer-token auth on the server.
type JWTConfig struct {
	Secret          string `yaml:"secret" json:"secret" env:"JWT_SECRET"`
	ExpirationHours int    `yaml:"expiration_hours" json:"expiration_hours" env:"JWT_EXPIRATION_HOURS" env-default:"24"`
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	var cfg JWTConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %w", err)
	}

	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Enabled reports whether a signing secret is configured.
func (c *JWTConfig) Enabled() bool {
	return c.Secret != ""
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
