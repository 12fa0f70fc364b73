// Package config provides unified configuration for castellan-protected
// services.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CASTELLAN_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for a castellan-protected service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// AuthConfig holds the authentication setup: the ordered backend list, the
// global exemptions, and per-route overrides.
type AuthConfig struct {
	// Backends lists the configured backends in priority order. One entry
	// is used directly; several are composed into a multi backend where
	// the first success wins.
	Backends []BackendConfig `yaml:"backends"`

	// ExemptMethods lists HTTP methods skipped by authentication.
	// Default: ["OPTIONS"].
	ExemptMethods []string `yaml:"exempt_methods"`

	// ExemptPaths lists request paths that never require authentication,
	// e.g. health endpoints. Not overridable per route.
	ExemptPaths []string `yaml:"exempt_paths"`

	// Routes lists per-route overrides.
	Routes []RouteConfig `yaml:"routes"`
}

// BackendConfig describes a single authentication backend.
type BackendConfig struct {
	// Name identifies the backend; route overrides reference it.
	Name string `yaml:"name"`

	// Type selects the scheme: "basic", "token" or "noop".
	Type string `yaml:"type"`

	// Scheme overrides the Authorization scheme label ("Basic"/"Bearer").
	Scheme string `yaml:"scheme"`

	// Getter optionally overrides where the credential is read from.
	Getter *GetterConfig `yaml:"getter"`

	// Token backend settings.
	Secret       string `yaml:"secret"`        // HMAC secret
	SecretFile   string `yaml:"secret_file"`   // _file variant for secret
	JWKSURL      string `yaml:"jwks_url"`      // JWKS endpoint for RSA keys
	Issuer       string `yaml:"issuer"`        // expected "iss" claim
	Audience     string `yaml:"audience"`      // expected "aud" claim
	SubjectClaim string `yaml:"subject_claim"` // claim resolved against the store, default "sub"
	ClaimsKey    string `yaml:"claims_key"`    // Result.Extra key for decoded claims
}

// GetterConfig describes where a credential is extracted from.
type GetterConfig struct {
	// Type selects the getter: "header", "auth_header", "param", "cookie"
	// or "multi".
	Type string `yaml:"type"`

	// Name is the header, parameter or cookie name.
	Name string `yaml:"name"`

	// Scheme is the auth-scheme prefix for type "auth_header".
	Scheme string `yaml:"scheme"`

	// Getters lists the children for type "multi", tried in order.
	Getters []GetterConfig `yaml:"getters"`
}

// RouteConfig overrides authentication for a single route path.
type RouteConfig struct {
	Path string `yaml:"path"`

	// Backend names the backend (from auth.backends) to use instead of
	// the default. Empty keeps the default.
	Backend string `yaml:"backend"`

	// ExemptMethods replaces the global exempt methods for this route.
	ExemptMethods []string `yaml:"exempt_methods"`

	// Disabled turns authentication off for this route.
	Disabled bool `yaml:"auth_disabled"`
}

// StoreConfig holds user store settings.
type StoreConfig struct {
	// Type selects the store: "memory" or "postgres". Default: "memory".
	Type string `yaml:"type"`

	// Users seeds the memory store.
	Users []UserConfig `yaml:"users"`

	Postgres PostgresConfig `yaml:"postgres"`
}

// UserConfig describes a single user entry for the memory store.
type UserConfig struct {
	ID           string            `yaml:"id"`
	Username     string            `yaml:"username"`
	PasswordHash string            `yaml:"password_hash"` // bcrypt
	Roles        []string          `yaml:"roles"`
	Metadata     map[string]string `yaml:"metadata"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Backends: []BackendConfig{{Name: "noop", Type: "noop"}},
		},
		Store: StoreConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
