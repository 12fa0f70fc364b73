package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Options configures the global behavior of a Middleware.
type Options struct {
	// ExemptMethods lists HTTP methods skipped by authentication. A nil
	// slice means the default, {"OPTIONS"}; an empty non-nil slice means
	// no method is exempt. Routes may replace this set individually.
	ExemptMethods []string

	// ExemptPaths lists request paths that skip authentication entirely,
	// e.g. health and metrics endpoints. Unlike methods, this set cannot
	// be overridden per route.
	ExemptPaths []string
}

// RouteConfig overrides the middleware configuration for a single route.
// A set field fully replaces the corresponding global value; it is never
// merged with it. An unset field (nil Backend, nil ExemptMethods) keeps
// the global value.
type RouteConfig struct {
	// Backend replaces the global backend for this route.
	Backend Backend

	// ExemptMethods replaces the global exempt method set for this route.
	// An empty non-nil slice removes all exemptions.
	ExemptMethods []string

	// Disabled turns authentication off for this route for every method.
	Disabled bool
}

// resolvedRoute is a route's effective configuration, computed once at
// registration time so dispatch does no per-request resolution work.
type resolvedRoute struct {
	backend       Backend
	exemptMethods map[string]bool
	disabled      bool
}

// Middleware authenticates requests before they reach their handlers.
// Construct it with New, register route overrides with Route, then wrap
// the final handler with Wrap. The composition is immutable after setup:
// Wrap must not race with Route.
type Middleware struct {
	backend       Backend
	exemptMethods map[string]bool
	exemptPaths   map[string]bool
	routes        map[string]resolvedRoute
}

// New creates a Middleware that authenticates with backend by default.
func New(backend Backend, opts Options) (*Middleware, error) {
	if backend == nil {
		return nil, fmt.Errorf("auth: middleware requires a backend")
	}

	exemptMethods := opts.ExemptMethods
	if exemptMethods == nil {
		exemptMethods = []string{http.MethodOptions}
	}

	m := &Middleware{
		backend:       backend,
		exemptMethods: methodSet(exemptMethods),
		exemptPaths:   make(map[string]bool, len(opts.ExemptPaths)),
		routes:        make(map[string]resolvedRoute),
	}
	for _, p := range opts.ExemptPaths {
		m.exemptPaths[p] = true
	}
	return m, nil
}

// Route registers a per-route configuration override for the given request
// path. The effective configuration is resolved here, once, not on every
// request. Registering the same path twice is a setup error.
func (m *Middleware) Route(path string, cfg RouteConfig) error {
	if path == "" {
		return fmt.Errorf("auth: route path must not be empty")
	}
	if _, dup := m.routes[path]; dup {
		return fmt.Errorf("auth: route %q already registered", path)
	}

	rr := resolvedRoute{
		backend:       m.backend,
		exemptMethods: m.exemptMethods,
		disabled:      cfg.Disabled,
	}
	if cfg.Backend != nil {
		rr.backend = cfg.Backend
	}
	if cfg.ExemptMethods != nil {
		rr.exemptMethods = methodSet(cfg.ExemptMethods)
	}

	m.routes[path] = rr
	return nil
}

// Wrap returns a handler that authenticates requests before delegating to
// next. Requests that fail authentication are answered with 401 and a
// WWW-Authenticate challenge; next never sees them.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exemptPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		// Resolve the effective configuration for this route.
		backend, exemptMethods := m.backend, m.exemptMethods
		if rr, ok := m.routes[r.URL.Path]; ok {
			if rr.disabled {
				next.ServeHTTP(w, r)
				return
			}
			backend, exemptMethods = rr.backend, rr.exemptMethods
		}

		if exemptMethods[r.Method] {
			next.ServeHTTP(w, r)
			return
		}

		result, err := backend.Authenticate(r.Context(), r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		if result.Backend == nil {
			result.Backend = backend
		}

		slog.Debug("authentication succeeded",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		next.ServeHTTP(w, r.WithContext(SetResult(r.Context(), result)))
	})
}

// reject writes the error response for a failed authentication attempt.
func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		// Loader or backend infrastructure error, not an auth outcome.
		slog.Error("authentication backend error",
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "server_error", "internal authentication error")
		return
	}

	slog.Warn("authentication failed",
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"kind", ae.Kind.String(),
		"error", ae,
	)

	for _, challenge := range ae.Challenges {
		w.Header().Add("WWW-Authenticate", challenge)
	}
	writeError(w, http.StatusUnauthorized, "unauthorized", ae.Description)
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

// methodSet normalizes a method list into a lookup set.
func methodSet(methods []string) map[string]bool {
	set := make(map[string]bool, len(methods))
	for _, method := range methods {
		set[strings.ToUpper(method)] = true
	}
	return set
}
