package flows

import (
	"context"
	"time"

	"github.com/eamcap/authcore/jwt"
)

// ValidateMetrics carries metric IDs needed by the validate flow.
type ValidateMetrics struct {
	ValidateSuccess int
	ValidateFailure int
	ValidateLatency int
}

// ValidateErrors carries host-level sentinel errors used by the validate flow.
type ValidateErrors struct {
	EngineNotReady error
	InvalidToken   error
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	Now        func() time.Time
	ParseToken func(string) (jwt.Claims, error)

	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)

	Metrics ValidateMetrics
	Errors  ValidateErrors
}

// RunValidate is the per-request gate: signature, expiry and kind are all
// checked, and no store is consulted.
func RunValidate(_ context.Context, accessToken string, deps ValidateDeps) (PrincipalRecord, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.ParseToken == nil {
		return PrincipalRecord{}, deps.Errors.EngineNotReady
	}
	if deps.ObserveLatency != nil {
		start := time.Now()
		defer func() { deps.ObserveLatency(deps.Metrics.ValidateLatency, time.Since(start)) }()
	}

	claims, err := deps.ParseToken(accessToken)
	if err != nil || jwt.IsExpired(claims, deps.Now()) || claims.Kind != jwt.KindAccess {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return PrincipalRecord{}, deps.Errors.InvalidToken
	}

	deps.MetricInc(deps.Metrics.ValidateSuccess)
	return PrincipalRecord{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Roles:     claims.Roles,
	}, nil
}
