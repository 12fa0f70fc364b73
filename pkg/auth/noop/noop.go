// Package noop provides a backend that performs no credential check.
//
// It is most useful as the last child of an auth.MultiBackend, where it
// turns authentication optional: requests no other scheme claims fall
// through to it and receive the anonymous identity its loader supplies.
package noop

import (
	"context"
	"fmt"
	"net/http"

	"github.com/castellan-go/castellan/pkg/auth"
)

// UserLoader supplies the identity for unauthenticated requests, or the
// result of a fully custom authentication workflow. Returning (nil, nil)
// is reported as UserNotFound.
type UserLoader func(ctx context.Context, r *http.Request) (any, error)

// Backend always succeeds, resolving the identity via its loader.
type Backend struct {
	loader UserLoader
}

// New creates a no-op backend.
func New(loader UserLoader) (*Backend, error) {
	if loader == nil {
		return nil, fmt.Errorf("noop: backend requires a user loader")
	}
	return &Backend{loader: loader}, nil
}

func (b *Backend) Authenticate(ctx context.Context, r *http.Request) (*auth.Result, error) {
	user, err := b.loader(ctx, r)
	user, err = auth.LoadUser(user, err, nil)
	if err != nil {
		return nil, err
	}
	return &auth.Result{Backend: b, User: user}, nil
}
