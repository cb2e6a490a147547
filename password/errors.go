package password

import "errors"

var (
	// ErrInvalidHash is returned when a stored hash cannot be decoded.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrUnsupportedAlgorithm is returned when a stored hash names an algorithm the hasher does not handle.
	ErrUnsupportedAlgorithm = errors.New("unsupported password hash algorithm")
)
