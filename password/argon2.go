package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2ID = "argon2id"

// Lower bounds accepted both for configuration and for stored hashes.
const (
	argon2MinMemory uint32 = 8 * 1024
	argon2MinSalt   uint32 = 16
	argon2MinKey    uint32 = 16
)

// Argon2Config holds the Argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns the parameters used when none are configured.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < argon2MinMemory:
		return fmt.Errorf("argon2: memory %d KiB is below %d", c.Memory, argon2MinMemory)
	case c.Time == 0:
		return errors.New("argon2: time cost must be at least 1")
	case c.Parallelism == 0:
		return errors.New("argon2: parallelism must be at least 1")
	case c.SaltLength < argon2MinSalt:
		return fmt.Errorf("argon2: salt length %d is below %d", c.SaltLength, argon2MinSalt)
	case c.KeyLength < argon2MinKey:
		return fmt.Errorf("argon2: key length %d is below %d", c.KeyLength, argon2MinKey)
	}
	return nil
}

// Argon2 hashes passwords with Argon2id and encodes them in PHC format:
//
//	$argon2id$v=19$m=<kib>,t=<passes>,p=<lanes>$<salt>$<key>
type Argon2 struct {
	cfg Argon2Config
}

// NewArgon2 validates cfg and returns an Argon2id hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{cfg: cfg}, nil
}

// phcHash is a decoded Argon2id PHC string.
type phcHash struct {
	memory  uint32
	passes  uint32
	lanes   uint8
	salt    []byte
	derived []byte
}

func (p phcHash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID, argon2.Version, p.memory, p.passes, p.lanes,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.derived))
}

func (p phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.passes, p.memory, p.lanes, uint32(len(p.derived)))
}

// Hash derives a fresh salted hash. Password bytes are used as given, with
// no Unicode normalization; length policy belongs to the caller.
func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: read salt: %w", err)
	}

	h := phcHash{
		memory: a.cfg.Memory,
		passes: a.cfg.Time,
		lanes:  a.cfg.Parallelism,
		salt:   salt,
	}
	h.derived = argon2.IDKey([]byte(password), salt, h.passes, h.memory, h.lanes, a.cfg.KeyLength)
	return h.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash and
// compares in constant time.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.derived) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters, or a different key length, than the hasher's current ones.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.cfg.Memory || h.passes < a.cfg.Time || h.lanes < a.cfg.Parallelism
	return weaker || uint32(len(h.derived)) != a.cfg.KeyLength, nil
}

func decodePHC(encoded string) (phcHash, error) {
	var h phcHash

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, fmt.Errorf("%w: not a PHC string", ErrInvalidHash)
	}
	if fields[1] != argon2ID {
		return h, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return h, fmt.Errorf("%w: bad version field %q", ErrInvalidHash, fields[2])
	}
	if version != argon2.Version {
		return h, fmt.Errorf("%w: argon2 version %d", ErrUnsupportedAlgorithm, version)
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.passes, &h.lanes); err != nil {
		return h, fmt.Errorf("%w: bad parameters %q", ErrInvalidHash, fields[3])
	}
	if fields[3] != fmt.Sprintf("m=%d,t=%d,p=%d", h.memory, h.passes, h.lanes) {
		return h, fmt.Errorf("%w: bad parameters %q", ErrInvalidHash, fields[3])
	}
	if h.memory < argon2MinMemory || h.passes == 0 || h.lanes == 0 {
		return h, fmt.Errorf("%w: parameters below minimum", ErrInvalidHash)
	}

	var err error
	if h.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || uint32(len(h.salt)) < argon2MinSalt {
		return h, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if h.derived, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(h.derived) == 0 {
		return h, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	return h, nil
}
