package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm used by a [Manager].
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 over a shared secret. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public half.
	MethodEd25519 SigningMethod = "ed25519"
)

// MinHMACKeyLength is the shortest HS256 secret NewManager accepts, in bytes.
const MinHMACKeyLength = 32

// Config carries the key material and registered-claim policy of a [Manager].
//
// Keys are injected here and never read from process-wide state, so every
// Manager (and every test) owns its own secret.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
	Now           func() time.Time
}

// Manager issues and verifies signed tokens. It is immutable after
// construction and safe for concurrent use.
type Manager struct {
	config Config
}

type wireClaims struct {
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Kind  Kind     `json:"type"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < MinHMACKeyLength {
			return nil, fmt.Errorf("hs256 requires a key of at least %d bytes", MinHMACKeyLength)
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if len(key) < MinHMACKeyLength {
				return nil, fmt.Errorf("hs256 verify key for kid %q is too short", kid)
			}
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a snapshot of c that expires ttl from now.
//
// IssuedAt, ExpiresAt and ID on c are ignored and replaced. An empty Kind
// is issued as [KindAccess]; any other unrecognized kind is refused with
// [ErrUnsupportedTokenKind].
func (m *Manager) Issue(c Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid TTL")
	}
	if c.Kind == "" {
		c.Kind = KindAccess
	}
	if !c.Kind.Valid() {
		return "", ErrUnsupportedTokenKind
	}

	iat := m.config.Now().Truncate(time.Second)
	wc := wireClaims{
		Email: c.Email,
		Name:  c.Name,
		Roles: slices.Clone(c.Roles),
		Kind:  c.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(c.Subject, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		wc.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.getMethod(), wc)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signKey, err := m.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// ParseAndVerify checks the signature of tokenStr and decodes its claims.
//
// Expired tokens are NOT rejected here; callers must follow up with
// [IsExpired] (or use [Manager.Validate]).
func (m *Manager) ParseAndVerify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var wc wireClaims
	_, err := parser.ParseWithClaims(tokenStr, &wc, m.keyFunc)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if m.config.Issuer != "" && wc.Issuer != m.config.Issuer {
		return Claims{}, ErrInvalidIssuer
	}
	if m.config.Audience != "" && !slices.Contains(wc.Audience, m.config.Audience) {
		return Claims{}, ErrInvalidAudience
	}

	subject, err := strconv.ParseInt(wc.Subject, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: subject is not an account id", ErrMalformed)
	}
	if wc.IssuedAt == nil || wc.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing iat or exp", ErrMalformed)
	}
	if !wc.Kind.Valid() {
		return Claims{}, ErrUnsupportedTokenKind
	}

	return Claims{
		Subject:   subject,
		Email:     wc.Email,
		Name:      wc.Name,
		Roles:     wc.Roles,
		Kind:      wc.Kind,
		ID:        wc.ID,
		IssuedAt:  wc.IssuedAt.Time,
		ExpiresAt: wc.ExpiresAt.Time,
	}, nil
}

// Validate runs ParseAndVerify followed by the expiry check against now.
func (m *Manager) Validate(tokenStr string, now time.Time) (Claims, error) {
	c, err := m.ParseAndVerify(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if IsExpired(c, now) {
		return Claims{}, ErrExpired
	}
	return c, nil
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.config.Now()
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return m.keyBytesToVerifyKey(key)
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.getVerifyKey()
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		if len(m.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 manager has no private key")
		}
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(key)
	default:
		return key, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
