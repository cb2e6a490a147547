package jwt

import "time"

// Kind marks what a token may be used for.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is a kind this package issues.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the decoded payload of a token.
//
// Subject is the account id. IssuedAt and ExpiresAt have second
// precision. ID is unique per issuance.
type Claims struct {
	Subject   int64
	Email     string
	Name      string
	Roles     []string
	Kind      Kind
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether now is at or past c.ExpiresAt.
func IsExpired(c Claims, now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
