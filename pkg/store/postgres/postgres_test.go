package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/castellan-go/castellan/pkg/store"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("castellan_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	s, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func seedUser(t *testing.T, s *Store, id, username, hash string) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO users (id, username, password_hash, roles, metadata)
		VALUES ($1, $2, $3, $4, $5)`,
		id, username, hash, `["admin"]`, `{"team":"platform"}`,
	)
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
}

func TestPostgres_LookupUsername(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	hash, err := store.HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	seedUser(t, s, "u-1", "alice", hash)

	user, err := s.LookupUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("LookupUsername failed: %v", err)
	}
	if user.ID != "u-1" {
		t.Errorf("ID = %q, want u-1", user.ID)
	}
	if !store.VerifyPassword(user.PasswordHash, "secret") {
		t.Error("stored hash does not verify the password")
	}
	if len(user.Roles) != 1 || user.Roles[0] != "admin" {
		t.Errorf("Roles = %v, want [admin]", user.Roles)
	}
	if user.Metadata["team"] != "platform" {
		t.Errorf("Metadata = %v, want team=platform", user.Metadata)
	}
}

func TestPostgres_LookupSubject(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	seedUser(t, s, "u-2", "bob", "")

	user, err := s.LookupSubject(ctx, "u-2")
	if err != nil {
		t.Fatalf("LookupSubject failed: %v", err)
	}
	if user.Username != "bob" {
		t.Errorf("Username = %q, want bob", user.Username)
	}
}

func TestPostgres_NotFound(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.LookupUsername(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LookupUsername(nobody) error = %v, want ErrNotFound", err)
	}
	if _, err := s.LookupSubject(ctx, "u-404"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LookupSubject(u-404) error = %v, want ErrNotFound", err)
	}
}

func TestPostgres_MigrationsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	// setupTestDB already migrated once; a second run must be a no-op.
	if err := s.migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}
