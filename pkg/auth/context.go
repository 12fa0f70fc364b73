package auth

import "context"

// resultKey is a private type for the authentication result context key.
type resultKey struct{}

// SetResult stores the authentication result in the context.
func SetResult(ctx context.Context, result *Result) context.Context {
	return context.WithValue(ctx, resultKey{}, result)
}

// ResultFromContext retrieves the authentication result stored by the
// middleware. Returns nil if the request was exempt from authentication or
// authentication is disabled for the route.
func ResultFromContext(ctx context.Context) *Result {
	if v, ok := ctx.Value(resultKey{}).(*Result); ok {
		return v
	}
	return nil
}
