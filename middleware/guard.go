package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/eamcap/authcore"
)

// Authenticator is the subset of *authcore.Engine the guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*authcore.Principal, error)
}

// Session attaches a fresh request session and the remote IP to every
// request. Guard installs it implicitly when no session is present.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withRequestSession(r)))
	})
}

// Guard rejects requests without a valid bearer access token with 401 and
// binds the principal to the request session otherwise.
func Guard(engine Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			if _, ok := authcore.SessionFromContext(ctx); !ok {
				ctx = withRequestSession(r)
			}

			if _, err := engine.Authenticate(ctx, token); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func withRequestSession(r *http.Request) context.Context {
	ctx, _ := authcore.WithSession(r.Context())
	return authcore.WithClientIP(ctx, ClientIP(r))
}
