// Package token implements a JWT bearer-token backend (RFC 7519).
//
// Signature and claims verification is delegated to
// github.com/golang-jwt/jwt/v5. Keys are supplied statically (an HMAC
// secret or an RSA public key) or fetched from a JWKS endpoint with a
// TTL cache. Decoded claims are handed to a caller-supplied loader that
// resolves the identity.
package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/castellan-go/castellan/pkg/auth"
)

// UserLoader resolves an identity from the decoded token claims.
// Returning (nil, nil) means no matching user and is reported as
// UserNotFound.
type UserLoader func(ctx context.Context, claims map[string]any) (any, error)

// Config configures a Backend. Exactly one of Secret, PublicKey or JWKSURL
// must be set.
type Config struct {
	// Loader resolves the identity from verified claims. Required.
	Loader UserLoader

	// Secret enables HMAC verification (HS256/384/512) with this key.
	Secret []byte

	// PublicKey enables RSA verification (RS256/384/512) with this key.
	PublicKey *rsa.PublicKey

	// JWKSURL enables RSA verification with keys fetched from a JSON Web
	// Key Set endpoint, selected by the token's "kid" header.
	JWKSURL string

	// Issuer, when non-empty, is validated against the "iss" claim.
	Issuer string

	// Audience, when non-empty, is validated against the "aud" claim.
	Audience string

	// Scheme is the Authorization scheme expected and advertised in the
	// challenge. Default: "Bearer".
	Scheme string

	// Getter overrides how the raw token is extracted, e.g. to read it
	// from a cookie or query parameter. Default: an auth.AuthHeaderGetter
	// for Scheme.
	Getter auth.Getter

	// ClaimsKey, when non-empty, names a key in Result.Extra that will
	// hold the decoded claims. "user" and "backend" are reserved.
	ClaimsKey string

	// CacheTTL controls how long JWKS keys are cached. Default: 1 hour.
	CacheTTL time.Duration

	// HTTPClient is used for JWKS fetches. Default: http.DefaultClient.
	HTTPClient *http.Client
}

// keySource yields the verification key for a parsed token header. The
// context is the request context, so JWKS fetches are cancelled with the
// request.
type keySource func(ctx context.Context, t *jwtlib.Token) (any, error)

// Backend authenticates requests carrying JWT bearer tokens.
type Backend struct {
	loader     UserLoader
	getter     auth.Getter
	claimsKey  string
	challenges []string
	keys       keySource
	parserOpts []jwtlib.ParserOption
}

// New creates a token backend, validating the key configuration up front.
func New(cfg Config) (*Backend, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("token: backend requires a user loader")
	}
	if cfg.ClaimsKey == "user" || cfg.ClaimsKey == "backend" {
		return nil, fmt.Errorf("token: claims key %q is reserved", cfg.ClaimsKey)
	}

	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}
	getter := cfg.Getter
	if getter == nil {
		getter = auth.AuthHeaderGetter{Scheme: scheme}
	}

	keys, methods, err := buildKeySource(cfg)
	if err != nil {
		return nil, err
	}

	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	return &Backend{
		loader:     cfg.Loader,
		getter:     getter,
		claimsKey:  cfg.ClaimsKey,
		challenges: []string{scheme},
		keys:       keys,
		parserOpts: opts,
	}, nil
}

// buildKeySource selects the verification key source from the configuration.
func buildKeySource(cfg Config) (keySource, []string, error) {
	set := 0
	for _, ok := range []bool{len(cfg.Secret) > 0, cfg.PublicKey != nil, cfg.JWKSURL != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, nil, fmt.Errorf("token: exactly one of Secret, PublicKey or JWKSURL must be set")
	}

	rsaMethods := []string{"RS256", "RS384", "RS512"}

	switch {
	case len(cfg.Secret) > 0:
		key := append([]byte(nil), cfg.Secret...)
		return func(_ context.Context, t *jwtlib.Token) (any, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		}, []string{"HS256", "HS384", "HS512"}, nil

	case cfg.PublicKey != nil:
		return func(_ context.Context, t *jwtlib.Token) (any, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return cfg.PublicKey, nil
		}, rsaMethods, nil

	default:
		cache := newJWKSCache(cfg.JWKSURL, cfg.CacheTTL, cfg.HTTPClient)
		return func(ctx context.Context, t *jwtlib.Token) (any, error) {
			if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			kid, ok := t.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("token missing kid header")
			}
			key, err := cache.getKey(ctx, kid)
			if err != nil {
				return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, err)
			}
			return key, nil
		}, rsaMethods, nil
	}
}

// Authenticate extracts the bearer token, verifies it and delegates the
// decoded claims to the user loader. Any verification error from the JWT
// library is mapped to auth.Failure.
func (b *Backend) Authenticate(ctx context.Context, r *http.Request) (*auth.Result, error) {
	raw, err := b.getter.Load(r)
	if err != nil {
		var ae *auth.Error
		if errors.As(err, &ae) {
			return nil, ae.WithChallenges(b.challenges...)
		}
		return nil, err
	}

	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return b.keys(ctx, t)
	}, b.parserOpts...)
	if err != nil {
		return nil, auth.Failure("invalid token", err).WithChallenges(b.challenges...)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, auth.Failure("invalid token claims", nil).WithChallenges(b.challenges...)
	}

	user, err := b.loader(ctx, claims)
	user, err = auth.LoadUser(user, err, b.challenges)
	if err != nil {
		return nil, err
	}

	result := &auth.Result{Backend: b, User: user}
	if b.claimsKey != "" {
		result.Extra = map[string]any{b.claimsKey: map[string]any(claims)}
	}
	return result, nil
}
