// Package auth provides pluggable authentication middleware for net/http.
//
// Credential extraction is decoupled from verification: a Getter locates
// raw credential material in a request (header, auth-scheme header, query
// parameter, cookie) and a Backend verifies it and resolves an identity.
// Backends compose: MultiBackend tries several schemes in order and
// CallbackBackend attaches success/failure observers, both implementing the
// same Backend interface as the leaf schemes so composition nests freely.
//
// Failures use a three-way taxonomy carried by *Error: credentials absent
// (not applicable), credentials present but invalid, and identity unknown.
// MultiBackend relies on the first kind to fall through to the next scheme.
//
// The Middleware type dispatches per request: it resolves the effective
// backend and exemptions for the matched route (route registration beats
// the global default), skips exempt methods and disabled routes, and on
// success stores a Result in the request context for handlers to read.
// Scheme implementations live in the basic, token and noop subpackages.
package auth
