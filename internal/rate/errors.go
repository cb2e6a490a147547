package rate

import "errors"

var (
	// ErrRateLimited is returned once a window budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
