// Package middleware exposes net/http adapters that attach a request session
// and gate handlers on a valid access token.
//
// # Guards
//
//   - [Session] attaches a fresh [authcore.Session] and the client IP.
//   - [Guard] authenticates the bearer token and binds the principal.
//   - [RequireRole] rejects principals that lack every listed role.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Authenticate.
package middleware
