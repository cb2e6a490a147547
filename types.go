package authcore

import (
	"context"
	"time"

	internalaudit "github.com/eamcap/authcore/internal/audit"
	internalmetrics "github.com/eamcap/authcore/internal/metrics"
)

// Role labels an account's privilege level.
type Role = string

const (
	RoleUser       Role = "USER"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// KnownRoles lists every role Register accepts.
var KnownRoles = []Role{RoleUser, RoleInstructor, RoleAdmin}

// ValidRole reports whether r is one of [KnownRoles].
func ValidRole(r string) bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Account is the stored credential record, owned by the [UserStore].
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Department   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the account without its password hash.
func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:         a.ID,
		Email:      a.Email,
		Name:       a.Name,
		Role:       a.Role,
		Department: a.Department,
		Active:     a.Active,
		CreatedAt:  a.CreatedAt,
	}
}

// AccountSummary is the public projection of an account returned to clients.
type AccountSummary struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Principal is the authenticated identity bound to one request.
type Principal struct {
	AccountID int64
	Email     string
	Name      string
	Roles     []string
}

// HasRole reports whether p carries role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair is returned by Login and Register.
type TokenPair struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	Account      AccountSummary `json:"account"`
}

// RefreshResult is returned by Refresh. It never carries a refresh token.
type RefreshResult struct {
	AccessToken string `json:"accessToken"`
}

// RegisterRequest carries the fields of a new account. An empty Role
// registers with the configured default role.
type RegisterRequest struct {
	Email      string
	Password   string
	Name       string
	Role       Role
	Department string
}

// UserStore persists accounts.
//
// FindByEmail and FindByID return [ErrAccountNotFound] for a missing
// account. Save inserts when ID is zero and updates otherwise; it must
// enforce email uniqueness atomically and return [ErrDuplicateEmail] when a
// concurrent writer got there first. Any other error is treated as a store
// failure and propagated unchanged.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, account Account) (Account, error)
}

// PasswordHasher is the one-way credential hash. Verify returns (false, nil)
// on mismatch. Implementations may also provide
// NeedsUpgrade(hash string) (bool, error) to take part in upgrade-on-login.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

type upgradeableHasher interface {
	NeedsUpgrade(hash string) (bool, error)
}

// AuditEvent is the audit record emitted by Engine operations.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink writes audit events to a zap logger.
type ZapSink = internalaudit.ZapSink

var (
	NewChannelSink    = internalaudit.NewChannelSink
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	NewZapSink        = internalaudit.NewZapSink
)

// MetricID names one engine metric.
type MetricID = internalmetrics.ID

// MetricsSnapshot is a point-in-time copy of the engine counters.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricLoginSuccess             = internalmetrics.LoginSuccess
	MetricLoginFailure             = internalmetrics.LoginFailure
	MetricLoginInactive            = internalmetrics.LoginInactive
	MetricLoginRateLimited         = internalmetrics.LoginRateLimited
	MetricRegisterSuccess          = internalmetrics.RegisterSuccess
	MetricRegisterDuplicate        = internalmetrics.RegisterDuplicate
	MetricRegisterRejected         = internalmetrics.RegisterRejected
	MetricRefreshSuccess           = internalmetrics.RefreshSuccess
	MetricRefreshFailure           = internalmetrics.RefreshFailure
	MetricRefreshRateLimited       = internalmetrics.RefreshRateLimited
	MetricLogout                   = internalmetrics.Logout
	MetricPasswordChangeSuccess    = internalmetrics.PasswordChangeSuccess
	MetricPasswordChangeInvalidOld = internalmetrics.PasswordChangeInvalidOld
	MetricPasswordChangeRejected   = internalmetrics.PasswordChangeRejected
	MetricPasswordHashUpgraded     = internalmetrics.PasswordHashUpgraded
	MetricValidateSuccess          = internalmetrics.ValidateSuccess
	MetricValidateFailure          = internalmetrics.ValidateFailure
	MetricValidateLatency          = internalmetrics.ValidateLatency
)
