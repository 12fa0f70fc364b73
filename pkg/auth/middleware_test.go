package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(t *testing.T, called *int) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called++
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_AuthenticatedRequest(t *testing.T) {
	backend := &mockBackend{result: &Result{User: "alice"}}
	m, err := New(backend, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var seen *Result
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ResultFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/resource", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen == nil || seen.User != "alice" {
		t.Errorf("Result in context = %+v, want user alice", seen)
	}
	if seen.Backend != backend {
		t.Errorf("Result.Backend = %v, want the configured backend", seen.Backend)
	}
}

func TestMiddleware_RejectsWith401(t *testing.T) {
	backend := &mockBackend{err: Failure("bad credentials", nil).WithChallenges("Basic", "Bearer")}
	m, err := New(backend, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var called int
	w := httptest.NewRecorder()
	m.Wrap(okHandler(t, &called)).ServeHTTP(w, httptest.NewRequest("GET", "/resource", nil))

	if called != 0 {
		t.Errorf("handler called %d times for rejected request, want 0", called)
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	challenges := w.Header().Values("WWW-Authenticate")
	if len(challenges) != 2 || challenges[0] != "Basic" || challenges[1] != "Bearer" {
		t.Errorf("WWW-Authenticate = %v, want [Basic Bearer]", challenges)
	}

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if envelope.Error.Type != "unauthorized" {
		t.Errorf("error type = %q, want unauthorized", envelope.Error.Type)
	}
	if envelope.Error.Message != "bad credentials" {
		t.Errorf("error message = %q, want the failure description", envelope.Error.Message)
	}
}

func TestMiddleware_InfrastructureErrorIs500(t *testing.T) {
	backend := &mockBackend{err: errors.New("store down")}
	m, err := New(backend, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w := httptest.NewRecorder()
	var called int
	m.Wrap(okHandler(t, &called)).ServeHTTP(w, httptest.NewRequest("GET", "/resource", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != "" {
		t.Errorf("WWW-Authenticate = %q for infrastructure error, want none", got)
	}
}

func TestMiddleware_DefaultExemptMethods(t *testing.T) {
	backend := &mockBackend{err: Failure("nope", nil)}
	m, err := New(backend, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// OPTIONS is exempt by default, GET is not.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/resource", nil))
	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want 200", w.Code)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for exempt method, want 0", backend.calls)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/resource", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET status = %d, want 401", w.Code)
	}
}

func TestMiddleware_EmptyExemptMethodsRemovesDefault(t *testing.T) {
	backend := &mockBackend{err: Failure("nope", nil)}
	m, err := New(backend, Options{ExemptMethods: []string{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w := httptest.NewRecorder()
	var called int
	m.Wrap(okHandler(t, &called)).ServeHTTP(w, httptest.NewRequest("OPTIONS", "/resource", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("OPTIONS status = %d with empty exempt set, want 401", w.Code)
	}
}

func TestMiddleware_ExemptPaths(t *testing.T) {
	backend := &mockBackend{err: Failure("nope", nil)}
	m, err := New(backend, Options{ExemptPaths: []string{"/healthz"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var called int
	handler := m.Wrap(okHandler(t, &called))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || called != 1 {
		t.Errorf("exempt path: status = %d, handler calls = %d, want 200 and 1", w.Code, called)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for exempt path, want 0", backend.calls)
	}
}

func TestMiddleware_RouteDisabled(t *testing.T) {
	backend := &mockBackend{err: Failure("nope", nil)}
	m, err := New(backend, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Route("/open", RouteConfig{Disabled: true}); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	var called int
	handler := m.Wrap(okHandler(t, &called))

	for _, method := range []string{"GET", "POST", "PUT", "DELETE"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, "/open", nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s /open status = %d, want 200", method, w.Code)
		}
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times on disabled route, want 0", backend.calls)
	}
}

func TestMiddleware_RouteBackendOverride(t *testing.T) {
	global := &mockBackend{err: Failure("global should not run", nil)}
	routeBackend := &mockBackend{result: &Result{User: "bob"}}

	m, err := New(global, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Route("/special", RouteConfig{Backend: routeBackend}); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	var called int
	w := httptest.NewRecorder()
	m.Wrap(okHandler(t, &called)).ServeHTTP(w, httptest.NewRequest("GET", "/special", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if global.calls != 0 {
		t.Errorf("global backend called %d times on overridden route, want 0", global.calls)
	}
	if routeBackend.calls != 1 {
		t.Errorf("route backend called %d times, want 1", routeBackend.calls)
	}
}

func TestMiddleware_RouteExemptMethodsReplaceGlobal(t *testing.T) {
	backend := &mockBackend{err: Failure("nope", nil)}
	m, err := New(backend, Options{ExemptMethods: []string{"OPTIONS", "GET"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// The route's set replaces the global one; GET is no longer exempt here.
	if err := m.Route("/strict", RouteConfig{ExemptMethods: []string{"OPTIONS"}}); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	var called int
	handler := m.Wrap(okHandler(t, &called))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/strict", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /strict status = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/elsewhere", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /elsewhere status = %d, want 200 (globally exempt)", w.Code)
	}
}

func TestMiddleware_RouteInheritsGlobalExemptMethods(t *testing.T) {
	global := &mockBackend{err: Failure("nope", nil)}
	routeBackend := &mockBackend{err: Failure("route nope", nil)}

	m, err := New(global, Options{ExemptMethods: []string{"GET"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Backend override only; the exempt method set is inherited.
	if err := m.Route("/mixed", RouteConfig{Backend: routeBackend}); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	var called int
	handler := m.Wrap(okHandler(t, &called))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/mixed", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /mixed status = %d, want 200 (inherited exemption)", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mixed", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST /mixed status = %d, want 401", w.Code)
	}
	if routeBackend.calls != 1 {
		t.Errorf("route backend called %d times, want 1", routeBackend.calls)
	}
}

func TestMiddleware_DuplicateRoute(t *testing.T) {
	m, err := New(&mockBackend{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Route("/dup", RouteConfig{Disabled: true}); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if err := m.Route("/dup", RouteConfig{}); err == nil {
		t.Error("duplicate Route() registration: expected error")
	}
}

func TestMiddleware_RequiresBackend(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("New(nil) expected error")
	}
}

func TestResultFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if result := ResultFromContext(r.Context()); result != nil {
		t.Errorf("ResultFromContext on bare context = %v, want nil", result)
	}
}
