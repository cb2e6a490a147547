package authcore

import (
	"context"
	"slices"
	"sync"
)

// SessionContext holds the principal of one in-flight request. At most one
// principal is bound at a time.
type SessionContext interface {
	Bind(p Principal)
	Current() (Principal, bool)
	Clear()
}

// Session is the default request-scoped [SessionContext]. It is created per
// request by [WithSession] and must not be shared between requests.
type Session struct {
	mu        sync.RWMutex
	principal Principal
	bound     bool
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// Bind makes p the session's principal, replacing any earlier one.
func (s *Session) Bind(p Principal) {
	p.Roles = slices.Clone(p.Roles)
	s.mu.Lock()
	s.principal = p
	s.bound = true
	s.mu.Unlock()
}

// Current returns a copy of the bound principal and whether one is bound.
func (s *Session) Current() (Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.bound {
		return Principal{}, false
	}
	p := s.principal
	p.Roles = slices.Clone(p.Roles)
	return p, true
}

// Clear unbinds the principal.
func (s *Session) Clear() {
	s.mu.Lock()
	s.principal = Principal{}
	s.bound = false
	s.mu.Unlock()
}

type sessionContextKey struct{}
type clientIPContextKey struct{}

// WithSession attaches a fresh request session to ctx and returns both.
// HTTP middleware calls this once at request entry.
func WithSession(ctx context.Context) (context.Context, *Session) {
	s := NewSession()
	return context.WithValue(ctx, sessionContextKey{}, SessionContext(s)), s
}

// WithSessionContext attaches a caller-provided SessionContext to ctx.
func WithSessionContext(ctx context.Context, sc SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sc)
}

// SessionFromContext returns the request session, if one was attached.
func SessionFromContext(ctx context.Context) (SessionContext, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(sessionContextKey{}).(SessionContext)
	return sc, ok && sc != nil
}

// PrincipalFromContext returns the principal bound to the request session.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	sc, ok := SessionFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return sc.Current()
}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP login throttling and audit records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
