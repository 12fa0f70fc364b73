package store

import (
	"context"
	"errors"

	"github.com/castellan-go/castellan/pkg/auth/basic"
	"github.com/castellan-go/castellan/pkg/auth/token"
)

// BasicLoader adapts a UserStore into a loader for the basic backend.
// An unknown username or a password that does not match the stored hash
// yields a nil user, which the backend reports as UserNotFound.
func BasicLoader(s UserStore) basic.UserLoader {
	return func(ctx context.Context, username, password string) (any, error) {
		user, err := s.LookupUsername(ctx, username)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !VerifyPassword(user.PasswordHash, password) {
			return nil, nil
		}
		return user, nil
	}
}

// TokenLoader adapts a UserStore into a loader for the token backend,
// resolving the user by the claim named by subjectClaim ("sub" when
// empty).
func TokenLoader(s UserStore, subjectClaim string) token.UserLoader {
	if subjectClaim == "" {
		subjectClaim = "sub"
	}
	return func(ctx context.Context, claims map[string]any) (any, error) {
		subject, _ := claims[subjectClaim].(string)
		if subject == "" {
			return nil, nil
		}
		user, err := s.LookupSubject(ctx, subject)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	}
}
