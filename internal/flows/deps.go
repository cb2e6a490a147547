package flows

import (
	"context"
	"time"

	"github.com/eamcap/authcore/jwt"
)

// AccountRecord is the flow-local account model. The root engine converts
// to and from its public Account type.
type AccountRecord struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Department   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrincipalRecord is the flow-local authenticated principal.
type PrincipalRecord struct {
	AccountID int64
	Email     string
	Name      string
	Roles     []string
}

// TokenPairResult is returned by the flows that end in an authenticated session.
type TokenPairResult struct {
	AccessToken  string
	RefreshToken string
	Account      AccountRecord
}

// AuditFunc emits one audit event. metadata is only invoked when the event
// is actually recorded.
type AuditFunc func(ctx context.Context, event string, success bool, accountID int64, email string, err error, metadata func() map[string]string)

// TokenIssuer bundles the signing primitive with the configured lifetimes.
type TokenIssuer struct {
	Issue      func(jwt.Claims, time.Duration) (string, error)
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// PrincipalFromAccount projects the fields bound to a request session.
func PrincipalFromAccount(a AccountRecord) PrincipalRecord {
	return PrincipalRecord{
		AccountID: a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Roles:     []string{a.Role},
	}
}

func accessClaims(a AccountRecord) jwt.Claims {
	return jwt.Claims{
		Subject: a.ID,
		Email:   a.Email,
		Name:    a.Name,
		Roles:   []string{a.Role},
		Kind:    jwt.KindAccess,
	}
}

func refreshClaims(a AccountRecord) jwt.Claims {
	return jwt.Claims{
		Subject: a.ID,
		Kind:    jwt.KindRefresh,
	}
}

// issuePair signs the access token and the refresh token for a.
func issuePair(ti TokenIssuer, a AccountRecord) (string, string, error) {
	access, err := ti.Issue(accessClaims(a), ti.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := ti.Issue(refreshClaims(a), ti.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func noopAudit(context.Context, string, bool, int64, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}
