package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// GenericConfig configures a GenericBackend.
type GenericConfig struct {
	// Getter extracts the credential payload from the request. Required.
	Getter Getter

	// Loader receives the extracted payload unmodified and resolves the
	// identity. Required.
	Loader LoaderFunc

	// PayloadKey, when non-empty, names a key in Result.Extra that will
	// hold the raw extracted payload. "user" and "backend" are reserved.
	PayloadKey string

	// Challenges are the WWW-Authenticate values attached to failures.
	Challenges []string
}

// GenericBackend extracts credential material with a Getter and hands it,
// uninterpreted, to a caller-supplied loader. It is the escape hatch for
// arbitrary schemes: session cookies, opaque API tokens, signed URLs.
type GenericBackend struct {
	cfg GenericConfig
}

// NewGeneric builds a GenericBackend, validating the configuration up
// front so miswiring fails at setup rather than on the first request.
func NewGeneric(cfg GenericConfig) (*GenericBackend, error) {
	if cfg.Getter == nil {
		return nil, fmt.Errorf("auth: GenericBackend requires a getter")
	}
	if cfg.Loader == nil {
		return nil, fmt.Errorf("auth: GenericBackend requires a loader")
	}
	if cfg.PayloadKey == "user" || cfg.PayloadKey == "backend" {
		return nil, fmt.Errorf("auth: payload key %q is reserved", cfg.PayloadKey)
	}
	return &GenericBackend{cfg: cfg}, nil
}

func (b *GenericBackend) Authenticate(ctx context.Context, r *http.Request) (*Result, error) {
	payload, err := b.cfg.Getter.Load(r)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return nil, ae.WithChallenges(b.cfg.Challenges...)
		}
		return nil, err
	}

	user, err := b.cfg.Loader(ctx, payload)
	user, err = LoadUser(user, err, b.cfg.Challenges)
	if err != nil {
		return nil, err
	}

	result := &Result{Backend: b, User: user}
	if b.cfg.PayloadKey != "" {
		result.setExtra(b.cfg.PayloadKey, payload)
	}
	return result, nil
}
