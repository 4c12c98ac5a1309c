// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
loaded first (when present) so development setups do not need exported variables.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (stores, clients) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Backend Selectors

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the Blood Bridge portal.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// AllowedOriginSuffix restricts CORS origins outside development.
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"bloodbridge.app"`

	// Blood Bridge REST API
	APIBaseURL string `env:"API_BASE_URL,required"`

	// Identity provider (email/password sign-in, refresh-token exchange)
	IdentitySignInURL string `env:"IDENTITY_SIGNIN_URL" envDefault:"https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"`
	IdentityTokenURL  string `env:"IDENTITY_TOKEN_URL"  envDefault:"https://securetoken.googleapis.com/v1/token"`
	IdentityRevokeURL string `env:"IDENTITY_REVOKE_URL"`
	IdentityAPIKey    string `env:"IDENTITY_API_KEY,required"`

	// Session persistence
	SessionStore        string        `env:"SESSION_STORE"         envDefault:"redis"`
	SessionTTL          time.Duration `env:"SESSION_TTL"           envDefault:"24h"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`

	// Relational Database (PostgreSQL), only for SESSION_STORE=postgres
	DatabaseURL   string `env:"DATABASE_URL"`
	// MigrationPath overrides the migrations built into the binary.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL"`

	// Role lookups
	RoleCache    string        `env:"ROLE_CACHE"     envDefault:"memory"`
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL" envDefault:"5m"`

	// Access gate
	GateLoadingTimeout time.Duration `env:"GATE_LOADING_TIMEOUT" envDefault:"3s"`
	GateSubmitTimeout  time.Duration `env:"GATE_SUBMIT_TIMEOUT"  envDefault:"15s"`
	AccessPolicyPath   string        `env:"ACCESS_POLICY_PATH"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
//
// The file named by ENV_FILE (default ".env") is loaded first; a missing file
// is not an error. Variables already present in the environment win.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to load %s: %w", envFile, err)
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks requirements that span more than one field.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when SESSION_STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when SESSION_STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}

	switch c.RoleCache {
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required when ROLE_CACHE=redis")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown ROLE_CACHE %q", c.RoleCache)
	}

	if c.GateLoadingTimeout <= 0 {
		return errors.New("config: GATE_LOADING_TIMEOUT must be positive")
	}

	return nil
}

// NeedsRedis reports whether any configured backend talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.SessionStore == StoreRedis || c.RoleCache == StoreRedis
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// OriginSuffix returns the allowed CORS origin suffix for production traffic.
func (c *Config) OriginSuffix() string {
	return c.AllowedOriginSuffix
}
