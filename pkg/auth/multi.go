package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// MultiBackend combines several backends into one. Children are tried in
// order and the first success wins; order of the configured sequence is the
// only priority signal.
//
// A child reporting NotApplicable (its credentials are absent) is skipped
// and the next child is tried. A child reporting invalid credentials
// (KindFailure or KindUserNotFound) is recorded and the chain still
// continues, so a later scheme can authenticate the request. When no child
// succeeds, the aggregate outcome is the first recorded invalid failure,
// which gives a stable, deterministic error; if every child was
// NotApplicable the aggregate is NotApplicable, carrying the challenges
// collected from all children.
type MultiBackend struct {
	backends []Backend
}

// NewMulti builds a MultiBackend. At least two children are required;
// fewer is a configuration mistake reported at setup time.
func NewMulti(backends ...Backend) (*MultiBackend, error) {
	if len(backends) < 2 {
		return nil, fmt.Errorf("auth: MultiBackend needs at least two backends, got %d", len(backends))
	}
	for i, b := range backends {
		if b == nil {
			return nil, fmt.Errorf("auth: MultiBackend backend %d is nil", i)
		}
	}
	return &MultiBackend{backends: append([]Backend(nil), backends...)}, nil
}

func (m *MultiBackend) Authenticate(ctx context.Context, r *http.Request) (*Result, error) {
	var (
		firstInvalid *Error
		challenges   []string
	)

	for _, b := range m.backends {
		result, err := b.Authenticate(ctx, r)
		if err == nil {
			if result.Backend == nil {
				result.Backend = b
			}
			return result, nil
		}

		var ae *Error
		if !errors.As(err, &ae) {
			// Not an authentication outcome; infrastructure errors from
			// loaders propagate unchanged.
			return nil, err
		}

		challenges = append(challenges, ae.Challenges...)
		if ae.Kind != KindNotApplicable && firstInvalid == nil {
			firstInvalid = ae
		}
	}

	if firstInvalid != nil {
		return nil, firstInvalid
	}
	return nil, &Error{
		Kind:        KindNotApplicable,
		Description: "cannot authenticate the request",
		Challenges:  challenges,
	}
}

// SuccessHook observes a successful authentication. Hooks must not mutate
// the result; they are observers only.
type SuccessHook func(ctx context.Context, r *http.Request, result *Result)

// FailureHook observes a failed authentication with the error the wrapped
// backend produced.
type FailureHook func(ctx context.Context, r *http.Request, err error)

// CallbackBackend wraps exactly one backend and notifies optional hooks
// after each authentication attempt. The delegate's outcome, success or
// failure, passes through unchanged: hooks cannot swallow or convert it.
// Typical uses are audit logging and metrics.
type CallbackBackend struct {
	backend   Backend
	onSuccess SuccessHook
	onFailure FailureHook
}

// NewCallback builds a CallbackBackend around backend. Either hook may be
// nil.
func NewCallback(backend Backend, onSuccess SuccessHook, onFailure FailureHook) (*CallbackBackend, error) {
	if backend == nil {
		return nil, fmt.Errorf("auth: CallbackBackend requires a backend")
	}
	return &CallbackBackend{backend: backend, onSuccess: onSuccess, onFailure: onFailure}, nil
}

func (c *CallbackBackend) Authenticate(ctx context.Context, r *http.Request) (*Result, error) {
	result, err := c.backend.Authenticate(ctx, r)
	if err != nil {
		if c.onFailure != nil {
			c.onFailure(ctx, r, err)
		}
		return nil, err
	}

	if result.Backend == nil {
		result.Backend = c.backend
	}
	if c.onSuccess != nil {
		c.onSuccess(ctx, r, result)
	}
	return result, nil
}
