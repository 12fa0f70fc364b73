package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// At least one backend must be configured.
	if len(c.Auth.Backends) == 0 {
		errs = append(errs, fmt.Errorf("auth.backends must list at least one backend"))
	}

	names := make(map[string]bool, len(c.Auth.Backends))
	for i, b := range c.Auth.Backends {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("auth.backends[%d].name is required", i))
		} else if names[b.Name] {
			errs = append(errs, fmt.Errorf("auth.backends[%d].name %q is duplicated", i, b.Name))
		}
		names[b.Name] = true

		switch b.Type {
		case "basic", "noop":
			// valid
		case "token":
			set := 0
			if b.Secret != "" || b.SecretFile != "" {
				set++
			}
			if b.JWKSURL != "" {
				set++
			}
			if set != 1 {
				errs = append(errs, fmt.Errorf("auth.backends[%d]: token backend needs exactly one of secret/secret_file or jwks_url", i))
			}
		default:
			errs = append(errs, fmt.Errorf("auth.backends[%d].type must be \"basic\", \"token\" or \"noop\", got %q", i, b.Type))
		}

		if b.Getter != nil {
			if err := validateGetter(*b.Getter, fmt.Sprintf("auth.backends[%d].getter", i)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	// Route overrides must reference known backends and unique paths.
	paths := make(map[string]bool, len(c.Auth.Routes))
	for i, r := range c.Auth.Routes {
		if r.Path == "" {
			errs = append(errs, fmt.Errorf("auth.routes[%d].path is required", i))
		} else if paths[r.Path] {
			errs = append(errs, fmt.Errorf("auth.routes[%d].path %q is duplicated", i, r.Path))
		}
		paths[r.Path] = true

		if r.Backend != "" && !names[r.Backend] {
			errs = append(errs, fmt.Errorf("auth.routes[%d].backend %q is not a configured backend", i, r.Backend))
		}
	}

	// store.type must be a known value.
	switch c.Store.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("store.type must be \"memory\" or \"postgres\", got %q", c.Store.Type))
	}

	// If store.type is "postgres", DSN or DSNFile must be set.
	if c.Store.Type == "postgres" {
		if c.Store.Postgres.DSN == "" && c.Store.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("store.postgres.dsn or store.postgres.dsn_file is required when store.type is \"postgres\""))
		}
	}

	return errors.Join(errs...)
}

// validateGetter checks a getter configuration recursively.
func validateGetter(g GetterConfig, path string) error {
	switch g.Type {
	case "header", "param", "cookie":
		if g.Name == "" {
			return fmt.Errorf("%s.name is required for type %q", path, g.Type)
		}
	case "auth_header":
		if g.Scheme == "" {
			return fmt.Errorf("%s.scheme is required for type \"auth_header\"", path)
		}
	case "multi":
		if len(g.Getters) < 2 {
			return fmt.Errorf("%s.getters needs at least two entries for type \"multi\"", path)
		}
		for i, child := range g.Getters {
			if err := validateGetter(child, fmt.Sprintf("%s.getters[%d]", path, i)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s.type must be \"header\", \"auth_header\", \"param\", \"cookie\" or \"multi\", got %q", path, g.Type)
	}
	return nil
}
