package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.PrivateKey == nil && cfg.SigningMethod != MethodEd25519 {
		cfg.PrivateKey = testKey
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueParseRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)
	m := newTestManager(t, Config{Now: fixedClock(now)})

	in := Claims{
		Subject: 42,
		Email:   "ana@example.com",
		Name:    "Ana",
		Roles:   []string{"INSTRUCTOR"},
		Kind:    KindAccess,
	}
	token, err := m.Issue(in, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	out, err := m.ParseAndVerify(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Subject != in.Subject || out.Email != in.Email || out.Name != in.Name || out.Kind != in.Kind {
		t.Fatalf("claims mismatch: got %+v want %+v", out, in)
	}
	if len(out.Roles) != 1 || out.Roles[0] != "INSTRUCTOR" {
		t.Fatalf("roles mismatch: %v", out.Roles)
	}
	wantIAT := now.Truncate(time.Second)
	if !out.IssuedAt.Equal(wantIAT) {
		t.Fatalf("iat: got %v want %v", out.IssuedAt, wantIAT)
	}
	if !out.ExpiresAt.Equal(wantIAT.Add(15 * time.Minute)) {
		t.Fatalf("exp: got %v", out.ExpiresAt)
	}
	if out.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestIssueDoesNotAliasRoles(t *testing.T) {
	m := newTestManager(t, Config{})
	roles := []string{"USER"}
	token, err := m.Issue(Claims{Subject: 1, Roles: roles}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	roles[0] = "ADMIN"

	out, err := m.ParseAndVerify(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Roles[0] != "USER" {
		t.Fatalf("expected signed snapshot to keep USER, got %v", out.Roles)
	}
}

func TestIssueDefaultsToAccessKind(t *testing.T) {
	m := newTestManager(t, Config{})
	token, err := m.Issue(Claims{Subject: 7}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	out, err := m.ParseAndVerify(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Kind != KindAccess {
		t.Fatalf("expected access kind, got %q", out.Kind)
	}
}

func TestIssueRejectsUnknownKindAndBadTTL(t *testing.T) {
	m := newTestManager(t, Config{})
	if _, err := m.Issue(Claims{Subject: 1, Kind: "id"}, time.Minute); !errors.Is(err, ErrUnsupportedTokenKind) {
		t.Fatalf("expected ErrUnsupportedTokenKind, got %v", err)
	}
	if _, err := m.Issue(Claims{Subject: 1}, 0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}

func TestSameSecondIssuancesDiffer(t *testing.T) {
	m := newTestManager(t, Config{Now: fixedClock(time.Unix(1_700_000_000, 0))})
	c := Claims{Subject: 3, Email: "a@x.com"}
	a, err := m.Issue(c, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := m.Issue(c, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens for identical claims")
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	signer := newTestManager(t, Config{})
	verifier := newTestManager(t, Config{PrivateKey: []byte("ffffffffffffffffffffffffffffffff")})

	token, err := signer.Issue(Claims{Subject: 1}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.ParseAndVerify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t, Config{})
	token, err := m.Issue(Claims{Subject: 1, Roles: []string{"USER"}}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(token, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"1","roles":["ADMIN"],"type":"access","iat":1,"exp":9999999999}`))
	tampered := parts[0] + "." + forged + "." + parts[2]

	if _, err := m.ParseAndVerify(tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m := newTestManager(t, Config{SigningMethod: MethodEd25519, PublicKey: pub})

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, wireClaims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "1"}})
	token, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseAndVerify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	m := newTestManager(t, Config{})
	for _, input := range []string{"", "abc", "not.a.jwt", "a.b"} {
		if _, err := m.ParseAndVerify(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func signRaw(t *testing.T, wc wireClaims) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, wc).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseRejectsUnknownKind(t *testing.T) {
	m := newTestManager(t, Config{})
	now := time.Now()
	token := signRaw(t, wireClaims{Kind: "password-reset", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "1",
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}})
	if _, err := m.ParseAndVerify(token); !errors.Is(err, ErrUnsupportedTokenKind) {
		t.Fatalf("expected ErrUnsupportedTokenKind, got %v", err)
	}
}

func TestParseRejectsMissingRegisteredClaims(t *testing.T) {
	m := newTestManager(t, Config{})
	now := time.Now()

	noSubject := signRaw(t, wireClaims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
	}})
	if _, err := m.ParseAndVerify(noSubject); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing sub: expected ErrMalformed, got %v", err)
	}

	noExpiry := signRaw(t, wireClaims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:  "1",
		IssuedAt: gjwt.NewNumericDate(now),
	}})
	if _, err := m.ParseAndVerify(noExpiry); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing exp: expected ErrMalformed, got %v", err)
	}
}

func TestParseDoesNotRejectExpired(t *testing.T) {
	issuedAt := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(t, Config{Now: fixedClock(issuedAt)})
	token, err := m.Issue(Claims{Subject: 9}, time.Second)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	c, err := m.ParseAndVerify(token)
	if err != nil {
		t.Fatalf("expected stale token to parse, got %v", err)
	}
	if !IsExpired(c, time.Now()) {
		t.Fatal("expected token to be expired against wall clock")
	}
	if _, err := m.Validate(token, issuedAt.Add(2*time.Second)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired from Validate, got %v", err)
	}
	if _, err := m.Validate(token, issuedAt); err != nil {
		t.Fatalf("expected fresh validate to pass, got %v", err)
	}
}

func TestIsExpiredBoundary(t *testing.T) {
	exp := time.Unix(1_700_000_100, 0)
	c := Claims{ExpiresAt: exp}

	if IsExpired(c, exp.Add(-time.Nanosecond)) {
		t.Fatal("expected not expired immediately before expiry")
	}
	if !IsExpired(c, exp) {
		t.Fatal("expected expired exactly at expiry")
	}
	if !IsExpired(c, exp.Add(time.Second)) {
		t.Fatal("expected expired after expiry")
	}
}

func TestParseIssuerAndAudience(t *testing.T) {
	signer := newTestManager(t, Config{Issuer: "authcore", Audience: "courses"})
	token, err := signer.Issue(Claims{Subject: 1}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := signer.ParseAndVerify(token); err != nil {
		t.Fatalf("expected token to parse: %v", err)
	}

	otherIssuer := newTestManager(t, Config{Issuer: "other"})
	if _, err := otherIssuer.ParseAndVerify(token); !errors.Is(err, ErrInvalidIssuer) {
		t.Fatalf("expected ErrInvalidIssuer, got %v", err)
	}
	otherAudience := newTestManager(t, Config{Issuer: "authcore", Audience: "billing"})
	if _, err := otherAudience.ParseAndVerify(token); !errors.Is(err, ErrInvalidAudience) {
		t.Fatalf("expected ErrInvalidAudience, got %v", err)
	}
}

func TestNewManagerRejectsShortHMACKey(t *testing.T) {
	if _, err := NewManager(Config{PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short key to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: "rs256", PrivateKey: testKey}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
}

func TestEd25519RoundTrip(t *testing.T) {
	pub, priv := newEdKeys(t)
	m := newTestManager(t, Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})

	token, err := m.Issue(Claims{Subject: 5, Kind: KindRefresh}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := m.ParseAndVerify(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Subject != 5 || c.Kind != KindRefresh {
		t.Fatalf("unexpected claims %+v", c)
	}
}

func TestKeyRotationWithVerifyKeys(t *testing.T) {
	oldKey := []byte("old-old-old-old-old-old-old-old-")
	newKey := []byte("new-new-new-new-new-new-new-new-")

	oldSigner := newTestManager(t, Config{PrivateKey: oldKey, KeyID: "k1"})
	token, err := oldSigner.Issue(Claims{Subject: 1}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated := newTestManager(t, Config{
		PrivateKey: newKey,
		KeyID:      "k2",
		VerifyKeys: map[string][]byte{"k1": oldKey, "k2": newKey},
	})
	if _, err := rotated.ParseAndVerify(token); err != nil {
		t.Fatalf("expected token signed with retired key to verify: %v", err)
	}

	dropped := newTestManager(t, Config{
		PrivateKey: newKey,
		KeyID:      "k2",
		VerifyKeys: map[string][]byte{"k2": newKey},
	})
	if _, err := dropped.ParseAndVerify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected unknown kid to fail verification, got %v", err)
	}
}
