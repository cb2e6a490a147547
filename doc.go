// Package authcore provides stateless credential authentication: signed,
// self-contained access and refresh tokens issued against a pluggable
// account store.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([TokenPair], [AccountSummary], [Principal]). Flow
// orchestration, rate limiting, audit dispatch and counters live under
// internal/ and are never exported. Token encoding lives in the jwt
// sub-package and password hashing in password.
//
// # Request sessions
//
// Each request carries its own [Session], attached with [WithSession]. Login,
// Register and [Engine.Authenticate] bind the principal to it; Logout clears
// it. Sessions are never shared between requests and nothing about them is
// stored server-side.
//
// # Token lifecycle
//
// Tokens are stateless. A refresh token is exchanged for a new access token
// only; it is never rotated and stays valid until its own expiry. Logout does
// not revoke anything.
package authcore
