package noop

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/castellan-go/castellan/pkg/auth"
)

func TestBackend_Authenticate(t *testing.T) {
	backend, err := New(func(_ context.Context, r *http.Request) (any, error) {
		return map[string]any{"remote": r.RemoteAddr}, nil
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	result, err := backend.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.User == nil {
		t.Error("User = nil, want the loader's identity")
	}
	if result.Backend != backend {
		t.Errorf("Backend = %v, want the noop backend", result.Backend)
	}
}

func TestBackend_NilUserIsUserNotFound(t *testing.T) {
	backend, err := New(func(_ context.Context, _ *http.Request) (any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	_, err = backend.Authenticate(context.Background(), r)
	if !auth.IsUserNotFound(err) {
		t.Errorf("Authenticate() error = %v, want UserNotFound", err)
	}
}

func TestBackend_LoaderError(t *testing.T) {
	boom := errors.New("store down")
	backend, err := New(func(_ context.Context, _ *http.Request) (any, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	_, err = backend.Authenticate(context.Background(), r)
	if !errors.Is(err, boom) {
		t.Errorf("Authenticate() error = %v, want the loader's error", err)
	}
}

func TestNew_RequiresLoader(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error")
	}
}
