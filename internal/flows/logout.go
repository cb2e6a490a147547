package flows

import "context"

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	ClearSession func(context.Context) (PrincipalRecord, bool)

	MetricInc    func(int)
	EmitAudit    AuditFunc
	LogoutMetric int
	LogoutEvent  string
}

// RunLogout unbinds the principal from the current request. Tokens are not
// revoked: a still-valid token keeps authenticating on other requests.
func RunLogout(ctx context.Context, deps LogoutDeps) {
	if deps.ClearSession == nil {
		return
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}

	principal, ok := deps.ClearSession(ctx)
	if !ok {
		return
	}
	deps.MetricInc(deps.LogoutMetric)
	deps.EmitAudit(ctx, deps.LogoutEvent, true, principal.AccountID, principal.Email, nil, nil)
}
