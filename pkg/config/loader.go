package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CASTELLAN_CONFIG env, ./config.yaml,
//     /etc/castellan/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CASTELLAN_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/castellan/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check CASTELLAN_CONFIG env var.
	if envPath := os.Getenv("CASTELLAN_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/castellan/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASTELLAN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CASTELLAN_STORE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("CASTELLAN_POSTGRES_DSN"); v != "" {
		cfg.Store.Postgres.DSN = v
	}
	if v := os.Getenv("CASTELLAN_EXEMPT_METHODS"); v != "" {
		cfg.Auth.ExemptMethods = splitList(v)
	}
	if v := os.Getenv("CASTELLAN_EXEMPT_PATHS"); v != "" {
		cfg.Auth.ExemptPaths = splitList(v)
	}
	if v := os.Getenv("CASTELLAN_METRICS"); v != "" {
		cfg.Observability.Metrics.Enabled = v == "true" || v == "1"
	}
}

// splitList splits a comma-separated env value, trimming whitespace.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// store.postgres.dsn_file -> store.postgres.dsn
	if cfg.Store.Postgres.DSNFile != "" && cfg.Store.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Store.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("store.postgres.dsn_file: %w", err)
		}
		cfg.Store.Postgres.DSN = val
	}

	// auth.backends[*].secret_file -> auth.backends[*].secret
	for i := range cfg.Auth.Backends {
		if cfg.Auth.Backends[i].SecretFile != "" && cfg.Auth.Backends[i].Secret == "" {
			val, err := readSecretFile(cfg.Auth.Backends[i].SecretFile)
			if err != nil {
				return fmt.Errorf("auth.backends[%d].secret_file: %w", i, err)
			}
			cfg.Auth.Backends[i].Secret = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
