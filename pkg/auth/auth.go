package auth

import (
	"context"
	"net/http"
)

// Result carries the outcome of a successful authentication attempt.
// The middleware stores exactly one Result per request in the request
// context; see ResultFromContext.
type Result struct {
	// Backend is the backend that authenticated the request. Meta backends
	// (MultiBackend, CallbackBackend) preserve the value set by the child
	// that actually performed the verification.
	Backend Backend

	// User is the identity resolved by the backend's user loader. Its
	// concrete type is owned by the caller that supplied the loader.
	User any

	// Extra holds backend-specific data, e.g. decoded token claims or the
	// raw payload a GenericBackend extracted.
	Extra map[string]any
}

// setExtra lazily initializes Extra and stores a key.
func (r *Result) setExtra(key string, value any) {
	if r.Extra == nil {
		r.Extra = make(map[string]any, 1)
	}
	r.Extra[key] = value
}

// Backend verifies the credentials carried by a request and resolves an
// identity.
//
// On success it returns a Result whose User field is populated; the Backend
// field may be left nil, in which case the caller (middleware or meta
// backend) fills it in with the backend itself. On failure it returns a nil
// Result and an *Error describing which of the three outcomes occurred:
// credentials absent (KindNotApplicable), credentials invalid (KindFailure),
// or identity unknown (KindUserNotFound).
//
// Verification may block, e.g. on a store lookup or an external validation
// call; implementations honor ctx cancellation.
type Backend interface {
	Authenticate(ctx context.Context, r *http.Request) (*Result, error)
}

// LoaderFunc resolves an identity from a raw credential payload. It is the
// loader signature used by GenericBackend; the basic and token backends
// define richer signatures in their own packages.
//
// Returning (nil, nil) means no matching identity and is reported as
// UserNotFound. A non-nil error is surfaced unchanged.
type LoaderFunc func(ctx context.Context, payload string) (any, error)

// LoadUser applies the UserNotFound rule shared by every loader-based
// backend: a nil user with a nil error becomes a UserNotFound error
// carrying the backend's challenges.
func LoadUser(user any, err error, challenges []string) (any, error) {
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, UserNotFound("user not found for provided credentials").WithChallenges(challenges...)
	}
	return user, nil
}
