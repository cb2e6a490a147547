// Package jwt issues and verifies the signed access and refresh tokens used by
// authcore.
//
// Parsing and expiry are separate steps: [Manager.ParseAndVerify] accepts an
// expired token as long as its signature holds, and callers decide staleness
// with [IsExpired]. [Manager.Validate] chains both for the common case.
package jwt
