package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password. The two are never distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned when the credentials are right but the account is deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrDuplicateEmail is returned by Register, and by UserStore.Save, when the email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrWeakPassword is returned when a new password is shorter than the configured minimum.
	ErrWeakPassword = errors.New("password too short")
	// ErrPasswordTooLong is returned when a new password is longer than the configured maximum in bytes.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidRole is returned when Register names a role that does not exist.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidToken covers malformed, forged, expired and wrong-kind tokens, and tokens whose account is gone or inactive.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorizedNoSession is returned when an operation needs a bound principal and none is bound.
	ErrUnauthorizedNoSession = errors.New("no authenticated session")
	// ErrLoginRateLimited is returned while the login throttle is blocking an email or IP.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned while the refresh throttle is blocking an account.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrAccountNotFound is the UserStore contract for a missing account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEngineNotReady is returned by an Engine that was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
