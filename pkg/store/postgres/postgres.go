// Package postgres provides a PostgreSQL implementation of store.UserStore.
// It uses pgx/v5 for connection pooling; roles and metadata are stored as
// JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/castellan-go/castellan/pkg/store"
)

// Store is a PostgreSQL-backed UserStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements store.UserStore at compile time.
var _ store.UserStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// LookupUsername returns the user with the given login name.
func (s *Store) LookupUsername(ctx context.Context, username string) (*store.User, error) {
	return s.lookup(ctx, "username = $1", username)
}

// LookupSubject returns the user with the given stable ID.
func (s *Store) LookupSubject(ctx context.Context, subject string) (*store.User, error) {
	return s.lookup(ctx, "id = $1", subject)
}

func (s *Store) lookup(ctx context.Context, where string, arg string) (*store.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, roles, metadata
		FROM users
		WHERE `+where,
		arg,
	)

	var (
		u            store.User
		rolesJSON    []byte
		metadataJSON []byte
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &rolesJSON, &metadataJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if len(rolesJSON) > 0 {
		if err := json.Unmarshal(rolesJSON, &u.Roles); err != nil {
			return nil, fmt.Errorf("unmarshaling roles: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &u.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &u, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
