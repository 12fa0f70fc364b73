// Package store defines the user lookup interface consumed by the auth
// backends' user loaders, plus an in-memory implementation. A
// PostgreSQL-backed implementation lives in the postgres subpackage.
//
// Stores only look up users; creating, updating and rotating credentials
// is out of scope.
package store

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// User is an application identity as known to a UserStore. Auth results
// carry it as the opaque user value.
type User struct {
	// ID is the stable unique identifier, matched against token subjects.
	ID string

	// Username is the login name, matched by Basic authentication.
	Username string

	// PasswordHash is the bcrypt hash of the user's password. Empty for
	// users that authenticate only by token.
	PasswordHash string

	// Roles lists the application roles granted to the user.
	Roles []string

	// Metadata carries application-specific data.
	Metadata map[string]string
}

// UserStore looks up users for the auth loaders.
type UserStore interface {
	// LookupUsername returns the user with the given login name, or
	// ErrNotFound.
	LookupUsername(ctx context.Context, username string) (*User, error)

	// LookupSubject returns the user with the given stable ID (e.g. a
	// token "sub" claim), or ErrNotFound.
	LookupSubject(ctx context.Context, subject string) (*User, error)
}

// HashPassword returns the bcrypt hash of a password, for seeding stores.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
