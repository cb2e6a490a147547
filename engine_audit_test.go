package authcore

import (
	"context"
	"testing"
	"time"
)

func collectAuditEvents(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()

	out := make([]AuditEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d audit events", len(out), n)
		}
	}
	return out
}

func TestAuditEventsForLoginFlow(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	sink := NewChannelSink(16)
	clock := newTestClock()

	engine, err := New().WithConfig(cfg).WithUserStore(newMockUserStore()).WithAuditSink(sink).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	ctx := WithClientIP(context.Background(), "192.0.2.10")
	if _, err := engine.Register(ctx, RegisterRequest{Email: "audit@example.com", Password: "audit-password"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, _ = engine.Login(ctx, "audit@example.com", "wrong-password")
	if _, err := engine.Login(ctx, "audit@example.com", "audit-password"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	events := collectAuditEvents(t, sink, 3)

	if events[0].EventType != auditEventRegisterSuccess || !events[0].Success {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].Metadata["role"] != RoleUser {
		t.Fatalf("expected role metadata, got %v", events[0].Metadata)
	}

	fail := events[1]
	if fail.EventType != auditEventLoginFailure || fail.Success {
		t.Fatalf("unexpected failure event: %+v", fail)
	}
	if fail.Error != string(auditErrInvalidCredentials) || fail.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected failure detail: %+v", fail)
	}
	if fail.IP != "192.0.2.10" || fail.Email != "audit@example.com" {
		t.Fatalf("missing request attributes: %+v", fail)
	}
	if !fail.Timestamp.Equal(clock.Now()) {
		t.Fatalf("timestamp %v, want %v", fail.Timestamp, clock.Now())
	}

	if events[2].EventType != auditEventLoginSuccess || events[2].AccountID == 0 {
		t.Fatalf("unexpected success event: %+v", events[2])
	}
}

func TestAuditUnknownEmailLooksLikeFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	sink := NewChannelSink(4)

	engine, err := New().WithConfig(cfg).WithUserStore(newMockUserStore()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Login(context.Background(), "ghost@example.com", "ghost-password")
	ev := collectAuditEvents(t, sink, 1)[0]
	if ev.EventType != auditEventLoginFailure || ev.Error != string(auditErrInvalidCredentials) || ev.AccountID != 0 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := NewChannelSink(4)
	engine, err := New().WithConfig(testConfig()).WithUserStore(newMockUserStore()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	registerTestAccount(t, engine, "quiet@example.com", "quiet-password")
	engine.Close()

	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event with audit disabled: %+v", ev)
	default:
	}
	if engine.AuditDropped() != 0 {
		t.Fatalf("unexpected drops")
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := map[error]AuditErrorCode{
		ErrInvalidCredentials:    auditErrInvalidCredentials,
		ErrAccountInactive:       auditErrAccountInactive,
		ErrDuplicateEmail:        auditErrDuplicateEmail,
		ErrWeakPassword:          auditErrPasswordPolicy,
		ErrPasswordTooLong:       auditErrPasswordPolicy,
		ErrInvalidRole:           auditErrInvalidRole,
		ErrInvalidToken:          auditErrInvalidToken,
		ErrUnauthorizedNoSession: auditErrUnauthorized,
		ErrLoginRateLimited:      auditErrRateLimited,
		ErrRefreshRateLimited:    auditErrRateLimited,
		ErrAccountNotFound:       auditErrAccountNotFound,
		context.Canceled:         auditErrInternal,
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
