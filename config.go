package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/eamcap/authcore/jwt"
	"github.com/eamcap/authcore/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is the process-wide engine configuration. It is copied by the
// Builder and never mutated afterwards.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Account  AccountConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries signing keys and token lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

const bcryptMaxPasswordBytes = 72

const (
	PasswordAlgorithmBcrypt   = "bcrypt"
	PasswordAlgorithmArgon2id = "argon2id"
)

// PasswordConfig selects the hashing algorithm and the length policy.
// MinLength counts characters, MaxLength counts bytes. bcrypt reads at most
// 72 bytes, so MaxLength may not exceed that when it is selected.
type PasswordConfig struct {
	Algorithm  string
	MinLength  int
	MaxLength  int
	BcryptCost int

	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	UpgradeOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration defaults.
type AccountConfig struct {
	DefaultRole string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls the Redis-backed throttles. Either throttle
// requires a Redis client on the Builder.
type SecurityConfig struct {
	EnableLoginThrottle     bool
	EnableIPThrottle        bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// DefaultConfig returns a configuration with every field but the signing
// key filled in.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := password.DefaultArgon2Config()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
		},
		Password: PasswordConfig{
			Algorithm:      PasswordAlgorithmBcrypt,
			MinLength:      8,
			MaxLength:      bcryptMaxPasswordBytes,
			BcryptCost:     bcrypt.DefaultCost,
			Memory:         argon.Memory,
			Time:           argon.Time,
			Parallelism:    argon.Parallelism,
			SaltLength:     argon.SaltLength,
			KeyLength:      argon.KeyLength,
			UpgradeOnLogin: false,
		},
		Account: AccountConfig{
			DefaultRole: RoleUser,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:     false,
			EnableIPThrottle:        false,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   false,
			MaxRefreshAttempts:      30,
			RefreshCooldownDuration: time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found. Key material is
// checked in depth by jwt.NewManager during Build.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be longer than AccessTTL")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	switch c.Password.Algorithm {
	case PasswordAlgorithmBcrypt:
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("Password BcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
		if c.Password.MaxLength > bcryptMaxPasswordBytes {
			return fmt.Errorf("Password MaxLength must be <= %d bytes for bcrypt", bcryptMaxPasswordBytes)
		}
	case PasswordAlgorithmArgon2id:
	default:
		return errors.New("unsupported Password Algorithm")
	}

	// Account
	if !ValidRole(c.Account.DefaultRole) {
		return errors.New("Account DefaultRole is not a known role")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}

	return nil
}
