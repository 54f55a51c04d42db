// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration
type Config struct {
	// ListenAddr is the HTTP listen address
	ListenAddr string `env:"EVENTPULSE_LISTEN_ADDR" envDefault:":8080"`

	// StorageType selects the storage backend: memory or sqlite
	StorageType string `env:"EVENTPULSE_STORAGE_TYPE" envDefault:"memory"`
	// SQLitePath is the database file path for the sqlite backend
	SQLitePath string `env:"EVENTPULSE_SQLITE_PATH" envDefault:"data/eventpulse.db"`

	// AppSecret signs encounter codes and verifies Telegram init data.
	// With no secret, credential verification always fails and codes
	// cannot be signed.
	AppSecret string `env:"EVENTPULSE_APP_SECRET"`

	// AllowUnsignedCodes accepts legacy unsigned code arities
	AllowUnsignedCodes bool `env:"EVENTPULSE_ALLOW_UNSIGNED_CODES" envDefault:"false"`
	// CodeMaxAgeSeconds bounds how far a code's issue time may sit from now
	CodeMaxAgeSeconds int `env:"EVENTPULSE_CODE_MAX_AGE_SECONDS" envDefault:"604800"`
	// CredentialMaxAgeSeconds bounds init data auth_date staleness
	CredentialMaxAgeSeconds int `env:"EVENTPULSE_CREDENTIAL_MAX_AGE_SECONDS" envDefault:"86400"`

	// DevModeEnabled allows the unverified dev identity fallback
	DevModeEnabled bool `env:"EVENTPULSE_DEV_MODE" envDefault:"false"`

	// DefaultEventSlug is the event assumed when a request names none
	DefaultEventSlug string `env:"EVENTPULSE_DEFAULT_EVENT_SLUG" envDefault:"default"`
	// DefaultEventName is the display name of the default event
	DefaultEventName string `env:"EVENTPULSE_DEFAULT_EVENT_NAME" envDefault:"Community"`
	// AllowPublicEventCreate provisions unknown event slugs on first use
	AllowPublicEventCreate bool `env:"EVENTPULSE_ALLOW_PUBLIC_EVENT_CREATE" envDefault:"false"`

	// LogLevel is the slog level: debug, info, warn or error
	LogLevel string `env:"EVENTPULSE_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
