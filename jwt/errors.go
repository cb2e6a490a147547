package jwt

import "errors"

var (
	// ErrInvalidSignature is returned when the signature, algorithm or key id does not verify.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrMalformed is returned when the token cannot be decoded into the expected shape.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired is returned by Validate when the token is at or past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrUnsupportedTokenKind is returned when the kind marker is missing or unrecognized.
	ErrUnsupportedTokenKind = errors.New("unsupported token kind")
	// ErrInvalidIssuer is returned when a configured issuer does not match.
	ErrInvalidIssuer = errors.New("token issuer mismatch")
	// ErrInvalidAudience is returned when a configured audience is absent from the token.
	ErrInvalidAudience = errors.New("token audience mismatch")
)
