// Command demo runs a small HTTP service protected by castellan.
//
// It loads a layered configuration (see pkg/config), builds the configured
// backend composition and user store, and serves two endpoints:
//
//	GET /whoami  - requires authentication, echoes the resolved identity
//	GET /public  - authentication disabled via a route override
//
// Run with a config file:
//
//	demo -config config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/castellan-go/castellan/pkg/auth"
	"github.com/castellan-go/castellan/pkg/auth/basic"
	"github.com/castellan-go/castellan/pkg/auth/noop"
	"github.com/castellan-go/castellan/pkg/auth/token"
	"github.com/castellan-go/castellan/pkg/config"
	"github.com/castellan-go/castellan/pkg/observability"
	"github.com/castellan-go/castellan/pkg/store"
	"github.com/castellan-go/castellan/pkg/store/postgres"
	"github.com/castellan-go/castellan/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("demo server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create the user store.
	users, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("creating user store: %w", err)
	}
	defer closeStore()

	// Build the backend composition.
	backends, err := buildBackends(cfg.Auth, users)
	if err != nil {
		return fmt.Errorf("building backends: %w", err)
	}

	defaultBackend, err := composeDefault(cfg.Auth, backends)
	if err != nil {
		return err
	}

	// Authentication middleware with route overrides.
	exemptPaths := cfg.Auth.ExemptPaths
	if cfg.Observability.Metrics.Enabled {
		exemptPaths = append(exemptPaths, cfg.Observability.Metrics.Path)
	}
	exemptPaths = append(exemptPaths, "/healthz")

	mw, err := auth.New(defaultBackend, auth.Options{
		ExemptMethods: cfg.Auth.ExemptMethods,
		ExemptPaths:   exemptPaths,
	})
	if err != nil {
		return fmt.Errorf("creating middleware: %w", err)
	}

	for _, route := range cfg.Auth.Routes {
		rc := auth.RouteConfig{
			ExemptMethods: route.ExemptMethods,
			Disabled:      route.Disabled,
		}
		if route.Backend != "" {
			rc.Backend = backends[route.Backend]
		}
		if err := mw.Route(route.Path, rc); err != nil {
			return fmt.Errorf("registering route %s: %w", route.Path, err)
		}
	}

	// Build HTTP mux.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /whoami", whoami)
	mux.HandleFunc("GET /public", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "public content")
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	// Outermost first: request ID, logging, recovery, metrics, auth.
	handler := transport.Chain(
		transport.RequestID(),
		transport.Logging(nil),
		transport.Recovery(),
		observability.MetricsMiddleware,
		mw.Wrap,
	)(mux)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "store", cfg.Store.Type)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// whoami reports the authenticated identity stored by the middleware.
func whoami(w http.ResponseWriter, r *http.Request) {
	result := auth.ResultFromContext(r.Context())
	if result == nil {
		fmt.Fprintln(w, "anonymous")
		return
	}
	if u, ok := result.User.(*store.User); ok {
		fmt.Fprintf(w, "user: %s (%s)\n", u.Username, u.ID)
		return
	}
	fmt.Fprintf(w, "user: %v\n", result.User)
}

// buildStore creates the configured user store and a cleanup function.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.UserStore, func(), error) {
	switch cfg.Type {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("user store ready", "type", "postgres")
		return pg, pg.Close, nil

	default:
		entries := make([]store.User, 0, len(cfg.Users))
		for _, u := range cfg.Users {
			entries = append(entries, store.User{
				ID:           u.ID,
				Username:     u.Username,
				PasswordHash: u.PasswordHash,
				Roles:        u.Roles,
				Metadata:     u.Metadata,
			})
		}
		slog.Info("user store ready", "type", "memory", "users", len(entries))
		return store.NewMemory(entries...), func() {}, nil
	}
}

// buildBackends creates each configured backend by name, instrumented with
// metric hooks.
func buildBackends(cfg config.AuthConfig, users store.UserStore) (map[string]auth.Backend, error) {
	backends := make(map[string]auth.Backend, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		backend, err := buildBackend(bc, users)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}

		success, failure := observability.AuthHooks(bc.Name)
		instrumented, err := auth.NewCallback(backend, success, failure)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}
		backends[bc.Name] = instrumented
	}
	return backends, nil
}

// buildBackend creates a single backend from its configuration.
func buildBackend(bc config.BackendConfig, users store.UserStore) (auth.Backend, error) {
	getter, err := buildGetter(bc.Getter)
	if err != nil {
		return nil, err
	}

	switch bc.Type {
	case "basic":
		return basic.New(basic.Config{
			Loader: store.BasicLoader(users),
			Scheme: bc.Scheme,
			Getter: getter,
		})

	case "token":
		return token.New(token.Config{
			Loader:    store.TokenLoader(users, bc.SubjectClaim),
			Secret:    []byte(bc.Secret),
			JWKSURL:   bc.JWKSURL,
			Issuer:    bc.Issuer,
			Audience:  bc.Audience,
			Scheme:    bc.Scheme,
			Getter:    getter,
			ClaimsKey: bc.ClaimsKey,
		})

	case "noop":
		return noop.New(func(context.Context, *http.Request) (any, error) {
			return &store.User{ID: "anonymous", Username: "anonymous"}, nil
		})

	default:
		return nil, fmt.Errorf("unknown backend type %q", bc.Type)
	}
}

// buildGetter creates a getter from its configuration. A nil configuration
// yields nil, letting the backend fall back to its default getter.
func buildGetter(gc *config.GetterConfig) (auth.Getter, error) {
	if gc == nil {
		return nil, nil
	}
	switch gc.Type {
	case "header":
		return auth.HeaderGetter{Name: gc.Name}, nil
	case "auth_header":
		return auth.AuthHeaderGetter{Scheme: gc.Scheme, Header: gc.Name}, nil
	case "param":
		return auth.ParamGetter{Name: gc.Name}, nil
	case "cookie":
		return auth.CookieGetter{Name: gc.Name}, nil
	case "multi":
		children := make([]auth.Getter, 0, len(gc.Getters))
		for i := range gc.Getters {
			child, err := buildGetter(&gc.Getters[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return auth.NewMultiGetter(children...)
	default:
		return nil, fmt.Errorf("unknown getter type %q", gc.Type)
	}
}

// composeDefault combines the configured backends, in order, into the
// middleware's default backend.
func composeDefault(cfg config.AuthConfig, backends map[string]auth.Backend) (auth.Backend, error) {
	if len(cfg.Backends) == 1 {
		return backends[cfg.Backends[0].Name], nil
	}
	ordered := make([]auth.Backend, 0, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		ordered = append(ordered, backends[bc.Name])
	}
	return auth.NewMulti(ordered...)
}
