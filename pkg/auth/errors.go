package auth

import (
	"errors"
	"fmt"
)

// Kind classifies why an authentication attempt did not succeed.
type Kind int

const (
	// KindNotApplicable means the credentials this backend understands are
	// absent from the request. MultiBackend treats this as non-terminal and
	// tries the next child; the middleware treats it as a 401.
	KindNotApplicable Kind = iota

	// KindFailure means credentials are present but fail verification
	// (bad signature, malformed encoding, scheme violation). Terminal.
	KindFailure

	// KindUserNotFound means verification succeeded at the protocol level
	// but the user loader found no matching identity. Terminal, kept
	// distinct from KindFailure for diagnostics.
	KindUserNotFound
)

// String returns a short label for the kind, used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindNotApplicable:
		return "not_applicable"
	case KindFailure:
		return "failure"
	case KindUserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}

// Error is the failure outcome of a getter or backend. All authentication
// failures surface as *Error so the middleware and MultiBackend can
// distinguish the three kinds without string matching.
type Error struct {
	Kind        Kind
	Description string

	// Challenges holds WWW-Authenticate challenge values (e.g. "Basic",
	// `Bearer realm="api"`) to return to the client.
	Challenges []string

	// Err is the underlying cause, if any (e.g. a JWT validation error).
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

func (e *Error) Unwrap() error { return e.Err }

// WithChallenges returns a copy of the error with the given challenges,
// unless the error already carries some. Backends use it to stamp their
// challenge onto getter errors without clobbering more specific ones.
func (e *Error) WithChallenges(challenges ...string) *Error {
	if len(e.Challenges) > 0 || len(challenges) == 0 {
		return e
	}
	c := *e
	c.Challenges = append([]string(nil), challenges...)
	return &c
}

// NotApplicable reports that the request carries no credentials this
// backend or getter understands.
func NotApplicable(description string) *Error {
	return &Error{Kind: KindNotApplicable, Description: description}
}

// Failure reports credentials that are present but invalid. cause may be nil.
func Failure(description string, cause error) *Error {
	return &Error{Kind: KindFailure, Description: description, Err: cause}
}

// UserNotFound reports that no identity matched the verified credentials.
func UserNotFound(description string) *Error {
	return &Error{Kind: KindUserNotFound, Description: description}
}

// kindIs reports whether err is an *Error of the given kind.
func kindIs(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// IsNotApplicable reports whether err signals absent credentials.
func IsNotApplicable(err error) bool { return kindIs(err, KindNotApplicable) }

// IsFailure reports whether err signals invalid credentials.
func IsFailure(err error) bool { return kindIs(err, KindFailure) }

// IsUserNotFound reports whether err signals an unknown identity.
func IsUserNotFound(err error) bool { return kindIs(err, KindUserNotFound) }

// challengesOf extracts the challenge values from err, if it is an *Error.
func challengesOf(err error) []string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Challenges
	}
	return nil
}
