package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when BcryptConfig.Cost is zero.
const DefaultBcryptCost = bcrypt.DefaultCost

// BcryptConfig holds the bcrypt work factor.
type BcryptConfig struct {
	Cost int
}

// Bcrypt hashes passwords with bcrypt ($2a$ modular crypt format).
type Bcrypt struct {
	cost int
}

// NewBcrypt validates cfg and returns a bcrypt hasher.
func NewBcrypt(cfg BcryptConfig) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns a salted bcrypt hash. bcrypt only reads the first 72
// bytes; longer inputs are rejected rather than silently truncated.
func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares password against hash. A mismatch is (false, nil);
// only an undecodable hash is an error.
func (b *Bcrypt) Verify(password string, hash string) (bool, error) {
	if !isBcryptHash(hash) {
		return false, ErrUnsupportedAlgorithm
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}

// NeedsUpgrade reports whether hash was produced with a lower cost.
func (b *Bcrypt) NeedsUpgrade(hash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return cost < b.cost, nil
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
