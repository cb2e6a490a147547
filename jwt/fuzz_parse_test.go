package jwt

import (
	"testing"
	"time"
)

// FuzzParseAndVerify feeds arbitrary strings to the parser.
// Goal: no panics; anything that parses must carry a known kind.
func FuzzParseAndVerify(f *testing.F) {
	mgr, err := NewManager(Config{
		PrivateKey: testKey,
		Issuer:     "fuzz-test",
		KeyID:      "k1",
		VerifyKeys: map[string][]byte{"k1": testKey},
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.Issue(Claims{Subject: 1, Email: "f@x.com", Roles: []string{"USER"}}, 5*time.Minute)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiIxIn0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.ParseAndVerify(input)
		if err != nil {
			return
		}
		if !claims.Kind.Valid() {
			t.Fatalf("parsed token with unknown kind %q", claims.Kind)
		}
	})
}
