package flows

import (
	"context"
	"errors"
	"fmt"
)

// CurrentAccountErrors carries host-level sentinel errors used by RunCurrentAccount.
type CurrentAccountErrors struct {
	EngineNotReady        error
	UnauthorizedNoSession error
	AccountNotFound       error
	InvalidToken          error
}

// CurrentAccountDeps captures the dependencies of RunCurrentAccount.
type CurrentAccountDeps struct {
	CurrentPrincipal func(context.Context) (PrincipalRecord, bool)
	FindByID         func(context.Context, int64) (AccountRecord, error)

	Errors CurrentAccountErrors
}

// RunCurrentAccount loads the stored account of the session principal.
// A principal whose account was removed or deactivated after the token was
// issued no longer resolves.
func RunCurrentAccount(ctx context.Context, deps CurrentAccountDeps) (AccountRecord, error) {
	if deps.CurrentPrincipal == nil || deps.FindByID == nil {
		return AccountRecord{}, deps.Errors.EngineNotReady
	}

	principal, ok := deps.CurrentPrincipal(ctx)
	if !ok {
		return AccountRecord{}, deps.Errors.UnauthorizedNoSession
	}

	acct, err := deps.FindByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return AccountRecord{}, deps.Errors.InvalidToken
		}
		return AccountRecord{}, fmt.Errorf("current account: find account: %w", err)
	}
	if !acct.Active {
		return AccountRecord{}, deps.Errors.InvalidToken
	}
	return acct, nil
}
