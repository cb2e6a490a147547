package password

import "strings"

// Hasher is the contract shared by every algorithm in this package.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Mux hashes with a primary algorithm and verifies hashes from any
// algorithm it knows, picked by the hash prefix. Hashes not in the
// primary's format always need an upgrade.
type Mux struct {
	primary Hasher
	bcrypt  Hasher
	argon2  Hasher
}

// NewMux returns a Mux that hashes with primary. bcryptHasher and
// argon2Hasher verify legacy hashes and may be nil.
func NewMux(primary, bcryptHasher, argon2Hasher Hasher) *Mux {
	return &Mux{primary: primary, bcrypt: bcryptHasher, argon2: argon2Hasher}
}

// Hash hashes with the primary algorithm.
func (m *Mux) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify checks password against a hash in any known format.
func (m *Mux) Verify(password, encodedHash string) (bool, error) {
	h := m.forHash(encodedHash)
	if h == nil {
		return false, ErrUnsupportedAlgorithm
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade is true for hashes outside the primary format and for primary
// hashes with outdated parameters.
func (m *Mux) NeedsUpgrade(encodedHash string) (bool, error) {
	h := m.forHash(encodedHash)
	if h == nil {
		return false, ErrUnsupportedAlgorithm
	}
	if h != m.primary {
		return true, nil
	}
	return h.NeedsUpgrade(encodedHash)
}

func (m *Mux) forHash(encodedHash string) Hasher {
	switch {
	case isBcryptHash(encodedHash):
		if _, ok := m.primary.(*Bcrypt); ok {
			return m.primary
		}
		return m.bcrypt
	case strings.HasPrefix(encodedHash, "$"+argon2ID+"$"):
		if _, ok := m.primary.(*Argon2); ok {
			return m.primary
		}
		return m.argon2
	default:
		return nil
	}
}
